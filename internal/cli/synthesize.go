package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Synthesize narrated audio for a sentence table",
	Long: `Synthesize narrated audio for every row of a sentence table.

Each row's four fields (words and sentences in both languages) are
narrated standalone in their own language, padded with silence on both
sides, and concatenated into one MP3 per narration ordering. The file
name encodes the row sequence and the ordering: {seq}_0.mp3 narrates
source first, {seq}_1.mp3 target first; mode "both" produces the pair.

A row whose synthesis fails is reported and skipped; the remaining rows
continue.

Examples:
  wortklang synthesize -i rows.csv -o audio
  wortklang synthesize -i rows.csv -o audio --mode both
  wortklang synthesize -i rows.csv -o audio --tts-provider espeak
  wortklang synthesize -i rows.csv -o audio --voice nova --silence 1s`,
	RunE: runSynthesize,
}

func init() {
	rootCmd.AddCommand(synthesizeCmd)

	synthesizeCmd.Flags().
		StringP("input", "i", "rows.csv", "Sentence table file")
	synthesizeCmd.Flags().
		String("mode", "source_target", "Narration ordering (source_target, target_source, both)")
	synthesizeCmd.Flags().
		Duration("silence", audio.DefaultSilence, "Silence inserted before and after every clip")
	synthesizeCmd.Flags().
		String("tts-provider", "openai", "Speech provider (openai, espeak)")
	synthesizeCmd.Flags().
		String("voice", "alloy", "Voice for the OpenAI speech provider")
	synthesizeCmd.Flags().
		String("speech-model", "gpt-4o-mini-tts", "OpenAI speech model (gpt-4o-mini-tts, tts-1, tts-1-hd)")
	synthesizeCmd.Flags().
		Float64("speed", 1.0, "Narration speed (0.25 to 4.0)")
	synthesizeCmd.Flags().
		String("source-lang", "en", "Learner's language (ISO 639-1 code)")
	synthesizeCmd.Flags().
		String("target-lang", "de", "Language being learned (ISO 639-1 code)")
}

// settings for the synthesis stage, shared with the run command
type synthesizeConfig struct {
	outputDir   string
	mode        audio.Mode
	silence     time.Duration
	ttsProvider string
	voice       string
	speechModel string
	speed       float64
	sourceLang  string
	targetLang  string
}

func synthesizeConfigFromFlags(cmd *cobra.Command) (synthesizeConfig, error) {
	var cfg synthesizeConfig

	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := audio.ParseMode(modeStr)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	cfg.silence, _ = cmd.Flags().GetDuration("silence")
	cfg.ttsProvider, _ = cmd.Flags().GetString("tts-provider")
	cfg.voice, _ = cmd.Flags().GetString("voice")
	cfg.speechModel, _ = cmd.Flags().GetString("speech-model")
	cfg.speed, _ = cmd.Flags().GetFloat64("speed")
	cfg.sourceLang, _ = cmd.Flags().GetString("source-lang")
	cfg.targetLang, _ = cmd.Flags().GetString("target-lang")

	return cfg, nil
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	cfg, err := synthesizeConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	inputPath, _ := cmd.Flags().GetString("input")
	cfg.outputDir, _ = cmd.Flags().GetString("output")
	if cfg.outputDir == "" {
		cfg.outputDir = "audio"
	}

	rows, err := sentence.ReadTable(inputPath)
	if err != nil {
		return err
	}

	artifacts, failed, err := synthesizeRows(context.Background(), rows, cfg)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(cfg.outputDir)
	fmt.Printf("Audio artifacts written: %s\n", absOutput)
	fmt.Printf("  Artifacts: %d\n", len(artifacts))
	if failed > 0 {
		fmt.Printf("  Failed rows: %d\n", failed)
	}

	return nil
}

// synthesizeRows runs the synthesis stage over all rows, skipping
// rows that fail and reporting how many were skipped
func synthesizeRows(
	ctx context.Context,
	rows []sentence.FlatRow,
	cfg synthesizeConfig,
) ([]audio.Artifact, int, error) {
	providerCfg := audio.DefaultProviderConfig()
	providerCfg.APIKey = GetOpenAIKey()
	providerCfg.Model = cfg.speechModel
	providerCfg.Voice = cfg.voice
	providerCfg.Speed = cfg.speed

	provider, err := audio.NewProvider(cfg.ttsProvider, providerCfg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create speech provider: %w", err)
	}
	if err := provider.Available(); err != nil {
		return nil, 0, fmt.Errorf("speech provider %s is not available: %w", provider.Name(), err)
	}

	synthesizer := audio.NewSynthesizer(provider, audio.SynthesizeOptions{
		SourceLanguage: cfg.sourceLang,
		TargetLanguage: cfg.targetLang,
		Silence:        cfg.silence,
		OutputDir:      cfg.outputDir,
	})

	logger.Infow("Synthesizing narration",
		"rows", len(rows),
		"mode", cfg.mode,
		"provider", provider.Name(),
		"silence", cfg.silence,
	)

	var artifacts []audio.Artifact
	failed := 0
	for _, row := range rows {
		rowArtifacts, err := synthesizer.SynthesizeRow(ctx, row, cfg.mode)
		if err != nil {
			var synthErr *audio.SynthesisError
			if errors.As(err, &synthErr) {
				logger.Errorw("Row synthesis failed, skipping row",
					"row", synthErr.Seq,
					"word", synthErr.Word,
					"field", synthErr.Field,
					"error", synthErr.Err,
				)
				failed++
				continue
			}
			return nil, failed, err
		}

		artifacts = append(artifacts, rowArtifacts...)
		logger.Debugw("Row synthesized",
			"row", row.Seq,
			"word", row.TargetWord,
			"artifacts", len(rowArtifacts),
		)
	}

	if len(artifacts) == 0 {
		return nil, failed, fmt.Errorf("synthesis failed for all %d rows", len(rows))
	}

	return artifacts, failed, nil
}
