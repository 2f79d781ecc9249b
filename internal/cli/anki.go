package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/anki"
	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
)

var ankiCmd = &cobra.Command{
	Use:   "anki",
	Short: "Export generated rows as an Anki deck",
	Long: `Export generated rows as an Anki deck (.apkg).

Builds one note per row with forward and reverse cards. When a matching
narration clip exists in the audio directory it is bundled into the
deck; rows without audio still get cards, just silent ones.

Examples:
  wortklang anki -i rows.csv -o deck.apkg
  wortklang anki -i rows.csv --audio audio -o deck.apkg --deck "German A1 Verbs"`,
	RunE: runAnki,
}

func init() {
	rootCmd.AddCommand(ankiCmd)

	ankiCmd.Flags().
		StringP("input", "i", "", "Rows table produced by generate (required)")
	ankiCmd.Flags().
		String("audio", "", "Directory holding narration clips (optional)")
	ankiCmd.Flags().
		String("deck", "Wortklang", "Deck name shown in Anki")

	_ = ankiCmd.MarkFlagRequired("input")
}

func runAnki(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	audioDir, _ := cmd.Flags().GetString("audio")
	deckName, _ := cmd.Flags().GetString("deck")
	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = "deck.apkg"
	}

	rows, err := sentence.ReadTable(inputPath)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows in %s", inputPath)
	}

	var artifacts []audio.Artifact
	if audioDir != "" {
		for _, row := range rows {
			path, err := audio.FindArtifact(audioDir, row.Seq, audio.OrderSourceTarget)
			if err != nil {
				logger.Debugw("No narration clip for row", "seq", row.Seq, "word", row.TargetWord)
				continue
			}
			artifacts = append(artifacts, audio.Artifact{
				Seq:   row.Seq,
				Order: audio.OrderSourceTarget,
				Path:  path,
			})
		}
	}

	notes := anki.NotesFromRows(rows, artifacts)

	exporter := anki.NewExporter(deckName)
	if err := exporter.Export(notes, outPath); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outPath)
	fmt.Printf("Exported %d notes to %s\n", len(notes), absOutput)
	return nil
}
