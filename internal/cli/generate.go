package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/sentence"
	"github.com/tbuchert/wortklang/internal/vocab"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate example sentences for a vocabulary table",
	Long: `Generate example sentences for every word of a vocabulary table.

The input is a delimited text file (UTF-8 or UTF-16) with "word" and
"level_type" columns, where level_type holds combined keys like "a1_verb".
For each word the model enumerates its semantically distinct meanings and
writes one example sentence per meaning at the word's CEFR level, plus
translations. The result is flattened to one row per meaning and written
as a CSV table consumed by the synthesize and assemble commands.

Examples:
  wortklang generate -i words.csv -o rows.csv
  wortklang generate -i words.csv --level a1 --word-type verb
  wortklang generate -i words.csv -p anthropic --model claude-sonnet-4-5
  wortklang generate -i words.csv --source-lang en --target-lang fr --verify`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().
		StringP("input", "i", "", "Vocabulary table file (required)")
	generateCmd.Flags().
		StringP("provider", "p", "openai", "Sentence provider (openai, anthropic, gemini)")
	generateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set the provider's env var)")
	generateCmd.Flags().
		String("model", "", "Model to use (provider-specific, uses sensible defaults)")
	generateCmd.Flags().
		String("level", "", "Only generate for words with this CEFR level (a1, a2, b1, b2, c1)")
	generateCmd.Flags().
		String("word-type", "", "Only generate for this word type (noun, verb, adjective, adverb, number)")
	generateCmd.Flags().
		String("source-lang", "en", "Learner's language (ISO 639-1 code)")
	generateCmd.Flags().
		String("target-lang", "de", "Language being learned (ISO 639-1 code)")
	generateCmd.Flags().
		String("instructions", "", "Extra instructions appended to the generation prompt")
	generateCmd.Flags().
		Bool("verify", false, "Detect the language of generated sentences and warn on mismatches")

	_ = generateCmd.MarkFlagRequired("input")
}

// settings for the generation stage, shared with the run command
type generateConfig struct {
	inputPath    string
	outputPath   string
	provider     sentence.Provider
	apiKey       string
	model        string
	level        string
	wordType     string
	sourceLang   string
	targetLang   string
	instructions string
	verify       bool
}

func generateConfigFromFlags(cmd *cobra.Command) (generateConfig, error) {
	var cfg generateConfig

	cfg.inputPath, _ = cmd.Flags().GetString("input")
	cfg.outputPath, _ = cmd.Flags().GetString("output")
	providerStr, _ := cmd.Flags().GetString("provider")
	cfg.provider = sentence.Provider(providerStr)
	flagKey, _ := cmd.Flags().GetString("api-key")
	cfg.model, _ = cmd.Flags().GetString("model")
	cfg.level, _ = cmd.Flags().GetString("level")
	cfg.wordType, _ = cmd.Flags().GetString("word-type")
	cfg.sourceLang, _ = cmd.Flags().GetString("source-lang")
	cfg.targetLang, _ = cmd.Flags().GetString("target-lang")
	cfg.instructions, _ = cmd.Flags().GetString("instructions")
	cfg.verify, _ = cmd.Flags().GetBool("verify")

	apiKey, err := generatorAPIKey(cfg.provider, flagKey)
	if err != nil {
		return cfg, err
	}
	cfg.apiKey = apiKey

	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := generateConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if cfg.outputPath == "" {
		cfg.outputPath = "rows.csv"
	}

	rows, err := generateRows(context.Background(), vocab.NewFileSource(cfg.inputPath), cfg)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(cfg.outputPath)
	fmt.Printf("Sentence table written: %s\n", absOutput)
	fmt.Printf("  Rows: %d\n", len(rows))

	return nil
}

// generateRows runs the generation stage: fetch vocabulary, generate
// one record per entry, flatten to rows, write the table.
func generateRows(
	ctx context.Context,
	source vocab.Source,
	cfg generateConfig,
) ([]sentence.FlatRow, error) {
	entries, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	var level vocab.Level
	if cfg.level != "" {
		if level, err = vocab.ParseLevel(cfg.level); err != nil {
			return nil, err
		}
	}
	var wordType vocab.WordType
	if cfg.wordType != "" {
		if wordType, err = vocab.ParseWordType(cfg.wordType); err != nil {
			return nil, err
		}
	}
	entries = vocab.Filter(entries, level, wordType)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no vocabulary entries match the given filters")
	}

	logger.Infow("Generating sentences",
		"entries", len(entries),
		"provider", cfg.provider,
		"source_language", cfg.sourceLang,
		"target_language", cfg.targetLang,
	)

	gen, err := sentence.Factory(ctx, cfg.provider, cfg.apiKey, sentence.Options{
		SourceLanguage: cfg.sourceLang,
		TargetLanguage: cfg.targetLang,
		Model:          cfg.model,
		Prompt:         cfg.instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence generator: %w", err)
	}

	records, failures, err := sentence.GenerateTable(ctx, gen, entries)
	if err != nil {
		return nil, fmt.Errorf("sentence generation aborted: %w", err)
	}
	for _, failure := range failures {
		logger.Errorw("Sentence generation failed, skipping word",
			"word", failure.Word,
			"error", failure.Err,
		)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sentence generation failed for all %d words", len(entries))
	}

	rows, err := sentence.Flatten(records)
	if err != nil {
		return nil, err
	}

	logger.Infow("Flattened records",
		"records", len(records),
		"rows", len(rows),
		"failed_words", len(failures),
	)

	if cfg.verify {
		verifier := sentence.NewVerifier(cfg.sourceLang, cfg.targetLang)
		for _, mismatch := range verifier.VerifyRows(rows) {
			logger.Warnw("Generated sentence language mismatch",
				"row", mismatch.Seq,
				"field", mismatch.Field,
				"expected", mismatch.Expected,
				"detected", mismatch.Detected,
			)
		}
	}

	if err := sentence.WriteTable(rows, cfg.outputPath); err != nil {
		return nil, err
	}

	return rows, nil
}
