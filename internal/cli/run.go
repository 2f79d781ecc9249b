package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
	"github.com/tbuchert/wortklang/internal/vocab"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline: generate, synthesize, assemble",
	Long: `Run the whole pipeline in one sequential pass.

Reads a vocabulary table, generates and flattens example sentences,
synthesizes narration, and assembles batched videos. Intermediate
artifacts land in the output directory (rows.csv, audio/, videos/) so a
later stage can be rerun on its own if the run is interrupted.

Stages run strictly in order and every external call blocks; rows that
fail synthesis or rendering are reported and skipped, rows that fail
generation are reported and produce no output.

Examples:
  wortklang run -i words.csv -o output
  wortklang run -i words.csv -o output --level a1 --word-type verb
  wortklang run -i words.csv -o output --mode both --slides 2
  wortklang run -i words.csv -o output --words-per-video 5 --subtitles vtt`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().
		StringP("input", "i", "", "Vocabulary table file (required)")

	// generation
	runCmd.Flags().
		StringP("provider", "p", "openai", "Sentence provider (openai, anthropic, gemini)")
	runCmd.Flags().
		StringP("api-key", "k", "", "API key (or set the provider's env var)")
	runCmd.Flags().
		String("model", "", "Model to use (provider-specific, uses sensible defaults)")
	runCmd.Flags().
		String("level", "", "Only process words with this CEFR level")
	runCmd.Flags().
		String("word-type", "", "Only process this word type")
	runCmd.Flags().
		String("source-lang", "en", "Learner's language (ISO 639-1 code)")
	runCmd.Flags().
		String("target-lang", "de", "Language being learned (ISO 639-1 code)")
	runCmd.Flags().
		String("instructions", "", "Extra instructions appended to the generation prompt")
	runCmd.Flags().
		Bool("verify", false, "Detect the language of generated sentences and warn on mismatches")

	// synthesis
	runCmd.Flags().
		String("mode", "source_target", "Narration ordering (source_target, target_source, both)")
	runCmd.Flags().
		Duration("silence", audio.DefaultSilence, "Silence inserted before and after every clip")
	runCmd.Flags().
		String("tts-provider", "openai", "Speech provider (openai, espeak)")
	runCmd.Flags().
		String("voice", "alloy", "Voice for the OpenAI speech provider")
	runCmd.Flags().
		String("speech-model", "gpt-4o-mini-tts", "OpenAI speech model")
	runCmd.Flags().
		Float64("speed", 1.0, "Narration speed (0.25 to 4.0)")

	// assembly
	runCmd.Flags().
		String("slides", "4", "Slides per row: 4 (one per field) or 2 (stacked pairs)")
	runCmd.Flags().
		Int("words-per-video", 10, "Distinct vocabulary words per combined video")
	runCmd.Flags().
		String("font", "", "Font family for slide text")
	runCmd.Flags().
		String("font-file", "", "Font file for slide text")
	runCmd.Flags().
		String("subtitles", "", "Write a subtitle sidecar per video (srt or vtt)")

	_ = runCmd.MarkFlagRequired("input")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = "output"
	}

	genCfg, err := generateConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	genCfg.outputPath = filepath.Join(outputDir, "rows.csv")

	synthCfg, err := synthesizeConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	synthCfg.outputDir = filepath.Join(outputDir, "audio")

	asmCfg, err := assembleConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	asmCfg.audioDir = synthCfg.outputDir
	asmCfg.outputDir = filepath.Join(outputDir, "videos")

	rows, err := generateRows(ctx, vocab.NewFileSource(genCfg.inputPath), genCfg)
	if err != nil {
		return err
	}

	artifacts, failed, err := synthesizeRows(ctx, rows, synthCfg)
	if err != nil {
		return err
	}
	if failed > 0 {
		rows = rowsWithArtifacts(rows, artifacts)
	}

	batches, err := assembleVideos(ctx, rows, asmCfg)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputDir)
	fmt.Printf("Pipeline complete: %s\n", absOutput)
	fmt.Printf("  Rows: %d\n", len(rows))
	fmt.Printf("  Audio artifacts: %d\n", len(artifacts))
	fmt.Printf("  Combined videos: %d\n", len(batches))
	for _, batch := range batches {
		fmt.Printf("    %s (%d words, %d rows)\n",
			filepath.Base(batch.Path), batch.Words, batch.Rows)
	}

	return nil
}

// rowsWithArtifacts drops rows whose synthesis was skipped so the
// assembly stage never looks for missing narration
func rowsWithArtifacts(rows []sentence.FlatRow, artifacts []audio.Artifact) []sentence.FlatRow {
	synthesized := make(map[int]bool)
	for _, artifact := range artifacts {
		synthesized[artifact.Seq] = true
	}

	var kept []sentence.FlatRow
	for _, row := range rows {
		if synthesized[row.Seq] {
			kept = append(kept, row)
		}
	}
	return kept
}
