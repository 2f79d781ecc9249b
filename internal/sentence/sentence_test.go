package sentence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/tbuchert/wortklang/internal/vocab"
)

func TestFactoryReturnsOpenAIGenerator(t *testing.T) {
	ctx := context.Background()
	opts := Options{SourceLanguage: "en", TargetLanguage: "de"}
	gen, err := Factory(ctx, ProviderOpenAI, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderOpenAI) returned error: %v", err)
	}
	if _, ok := gen.(*OpenAIGenerator); !ok {
		t.Errorf("expected *OpenAIGenerator, got %T", gen)
	}
}

func TestFactoryReturnsAnthropicGenerator(t *testing.T) {
	ctx := context.Background()
	opts := Options{SourceLanguage: "en", TargetLanguage: "de"}
	gen, err := Factory(ctx, ProviderAnthropic, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderAnthropic) returned error: %v", err)
	}
	if _, ok := gen.(*AnthropicGenerator); !ok {
		t.Errorf("expected *AnthropicGenerator, got %T", gen)
	}
}

func TestFactoryReturnsGeminiGenerator(t *testing.T) {
	ctx := context.Background()
	opts := Options{SourceLanguage: "en", TargetLanguage: "de"}
	gen, err := Factory(ctx, ProviderGemini, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderGemini) returned error: %v", err)
	}
	if _, ok := gen.(*GeminiGenerator); !ok {
		t.Errorf("expected *GeminiGenerator, got %T", gen)
	}
}

func TestFactoryRequiresLanguages(t *testing.T) {
	ctx := context.Background()
	_, err := Factory(ctx, ProviderOpenAI, "fake-key", Options{})
	if err == nil {
		t.Error("expected error for missing languages")
	}

	_, err = Factory(ctx, ProviderOpenAI, "fake-key", Options{
		SourceLanguage: "de",
		TargetLanguage: "de",
	})
	if err == nil {
		t.Error("expected error for identical source and target languages")
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	ctx := context.Background()
	opts := Options{SourceLanguage: "en", TargetLanguage: "de"}
	_, err := Factory(ctx, Provider("unknown"), "fake-key", opts)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{
			name: "equal lengths",
			record: Record{
				SourceWords:     []string{"to go", "to walk"},
				TargetWords:     []string{"gehen", "gehen"},
				SourceSentences: []string{"I go home.", "We walk slowly."},
				TargetSentences: []string{"Ich gehe nach Hause.", "Wir gehen langsam."},
			},
			wantErr: false,
		},
		{
			name: "unequal lengths",
			record: Record{
				SourceWords:     []string{"to go", "to walk"},
				TargetWords:     []string{"gehen"},
				SourceSentences: []string{"I go home.", "We walk slowly."},
				TargetSentences: []string{"Ich gehe nach Hause.", "Wir gehen langsam."},
			},
			wantErr: true,
		},
		{
			name:    "empty record",
			record:  Record{},
			wantErr: true,
		},
		{
			name: "empty field",
			record: Record{
				SourceWords:     []string{"to go"},
				TargetWords:     []string{""},
				SourceSentences: []string{"I go home."},
				TargetSentences: []string{"Ich gehe nach Hause."},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

type fakeGenerator struct {
	generateFunc func(ctx context.Context, entry vocab.Entry) (Record, error)
}

func (f *fakeGenerator) Generate(
	ctx context.Context,
	entry vocab.Entry,
) (Record, error) {
	return f.generateFunc(ctx, entry)
}

func TestGenerateTablePreservesOrderAndSkipsFailures(t *testing.T) {
	gen := &fakeGenerator{
		generateFunc: func(ctx context.Context, entry vocab.Entry) (Record, error) {
			if entry.Word == "kaputt" {
				return Record{}, &GenerationError{
					Word: entry.Word,
					Err:  fmt.Errorf("list lengths disagree"),
				}
			}
			return Record{
				SourceWords:     []string{"meaning of " + entry.Word},
				TargetWords:     []string{entry.Word},
				SourceSentences: []string{"A sentence."},
				TargetSentences: []string{"Ein Satz."},
			}, nil
		},
	}

	entries := []vocab.Entry{
		{Word: "gehen", Type: vocab.TypeVerb, Level: vocab.LevelA1},
		{Word: "kaputt", Type: vocab.TypeAdjective, Level: vocab.LevelA1},
		{Word: "Haus", Type: vocab.TypeNoun, Level: vocab.LevelA1},
	}

	records, failures, err := GenerateTable(context.Background(), gen, entries)
	if err != nil {
		t.Fatalf("GenerateTable returned error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].TargetWords[0] != "gehen" || records[1].TargetWords[0] != "Haus" {
		t.Errorf("records out of order: %v, %v", records[0].TargetWords, records[1].TargetWords)
	}

	if len(failures) != 1 || failures[0].Word != "kaputt" {
		t.Fatalf("expected 1 failure for kaputt, got %v", failures)
	}

	var genErr *GenerationError
	if !errors.As(failures[0].Err, &genErr) {
		t.Errorf("expected GenerationError, got %T", failures[0].Err)
	}
}

func TestGenerateTableAbortsOnCancelledContext(t *testing.T) {
	gen := &fakeGenerator{
		generateFunc: func(ctx context.Context, entry vocab.Entry) (Record, error) {
			t.Fatal("Generate should not be called after cancellation")
			return Record{}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := GenerateTable(ctx, gen, []vocab.Entry{{Word: "gehen"}})
	if err == nil {
		t.Error("expected context error")
	}
}

// Integration test: only runs if OPENAI_API_KEY is set
func TestOpenAIGeneratorIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set; skipping integration test")
	}

	ctx := context.Background()
	opts := Options{SourceLanguage: "en", TargetLanguage: "de"}
	gen, err := NewOpenAIGenerator(ctx, apiKey, opts)
	if err != nil {
		t.Fatalf("NewOpenAIGenerator error: %v", err)
	}

	entry := vocab.Entry{Word: "gehen", Type: vocab.TypeVerb, Level: vocab.LevelA1}
	record, err := gen.Generate(ctx, entry)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if err := record.Validate(); err != nil {
		t.Errorf("generated record is invalid: %v", err)
	}
	if record.Meanings() < 1 {
		t.Errorf("expected at least one meaning, got %d", record.Meanings())
	}
}
