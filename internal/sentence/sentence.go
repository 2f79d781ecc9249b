package sentence

import (
	"context"
	"fmt"

	"github.com/tbuchert/wortklang/internal/vocab"
)

// Record holds the generated material for one vocabulary entry.
// Index i across all four lists describes one distinct meaning of the word.
type Record struct {
	SourceWords     []string
	TargetWords     []string
	SourceSentences []string
	TargetSentences []string
}

// Meanings returns the number of distinct meanings in the record
func (r Record) Meanings() int {
	return len(r.TargetWords)
}

// Validate checks the equal-length invariant of the four lists
func (r Record) Validate() error {
	n := len(r.SourceWords)
	if n == 0 {
		return fmt.Errorf("record has no meanings")
	}
	if len(r.TargetWords) != n ||
		len(r.SourceSentences) != n ||
		len(r.TargetSentences) != n {
		return fmt.Errorf(
			"list lengths disagree: source_word=%d target_word=%d source_sentence=%d target_sentence=%d",
			len(r.SourceWords),
			len(r.TargetWords),
			len(r.SourceSentences),
			len(r.TargetSentences),
		)
	}
	for i := 0; i < n; i++ {
		if r.SourceWords[i] == "" || r.TargetWords[i] == "" ||
			r.SourceSentences[i] == "" || r.TargetSentences[i] == "" {
			return fmt.Errorf("meaning %d has an empty field", i)
		}
	}
	return nil
}

// FlatRow is one (word, meaning) pair of the flattened table.
// Seq is the 0-based position in the flat table and stays the stable
// key for audio and video artifacts derived from the row.
type FlatRow struct {
	Seq            int
	SourceWord     string
	TargetWord     string
	SourceSentence string
	TargetSentence string
}

// GenerationError reports model output that failed schema validation
// or the equal-length invariant for one vocabulary word.
type GenerationError struct {
	Word string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("sentence generation for %q failed: %v", e.Word, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports a record that violated the equal-length
// invariant at flattening time.
type SchemaMismatchError struct {
	Record int
	Err    error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("record %d violates the sentence schema: %v", e.Record, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// interface for sentence generation
type Generator interface {
	Generate(ctx context.Context, entry vocab.Entry) (Record, error)
}

// sentence generation service provider
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

type Options struct {
	SourceLanguage string // learner's language, ISO 639-1 code (e.g. "en")
	TargetLanguage string // language being learned, ISO 639-1 code (e.g. "de")
	Model          string
	Prompt         string // extra instructions appended to the prompt
}

// creates Generator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Generator, error) {
	if opts.SourceLanguage == "" || opts.TargetLanguage == "" {
		return nil, fmt.Errorf("source and target languages are required")
	}
	if opts.SourceLanguage == opts.TargetLanguage {
		return nil, fmt.Errorf(
			"source and target languages cannot both be %q",
			opts.SourceLanguage,
		)
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIGenerator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicGenerator(ctx, apiKey, opts)
	case ProviderGemini:
		return NewGeminiGenerator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported sentence provider: %s", provider)
	}
}

// Failure is a per-entry generation failure from GenerateTable
type Failure struct {
	Word string
	Err  error
}

// GenerateTable generates one record per entry, preserving input order.
// A failing entry produces a Failure instead of a record and the table
// continues; only a cancelled context aborts the whole batch.
func GenerateTable(
	ctx context.Context,
	gen Generator,
	entries []vocab.Entry,
) ([]Record, []Failure, error) {
	var (
		records  []Record
		failures []Failure
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		record, err := gen.Generate(ctx, entry)
		if err != nil {
			failures = append(failures, Failure{Word: entry.Word, Err: err})
			continue
		}
		records = append(records, record)
	}

	return records, failures, nil
}
