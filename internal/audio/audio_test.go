package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbuchert/wortklang/internal/sentence"
)

// fakeProvider writes a marker file per synthesized clip and can be
// told to fail on a specific text
type fakeProvider struct {
	failOn string
	calls  []string
}

func (p *fakeProvider) Synthesize(ctx context.Context, text, language, outPath string) error {
	p.calls = append(p.calls, language+":"+text)
	if p.failOn != "" && text == p.failOn {
		return errors.New("unsupported text")
	}
	return os.WriteFile(outPath, []byte(text), 0644)
}

func (p *fakeProvider) Name() string     { return "fake" }
func (p *fakeProvider) Available() error { return nil }

func testRow() sentence.FlatRow {
	return sentence.FlatRow{
		Seq:            3,
		SourceWord:     "to go",
		TargetWord:     "gehen",
		SourceSentence: "I go home.",
		TargetSentence: "Ich gehe nach Hause.",
	}
}

func newTestSynthesizer(t *testing.T, provider Provider) *Synthesizer {
	t.Helper()
	s := NewSynthesizer(provider, SynthesizeOptions{
		SourceLanguage: "en",
		TargetLanguage: "de",
		OutputDir:      t.TempDir(),
	})
	s.combine = func(clipPaths []string, silence time.Duration, outPath string) error {
		if len(clipPaths) != 4 {
			return fmt.Errorf("expected 4 clips, got %d", len(clipPaths))
		}
		return os.WriteFile(outPath, []byte("combined"), 0644)
	}
	return s
}

func TestOrderingIndexIsFixed(t *testing.T) {
	// the index in the file name never depends on the synthesis mode
	if got := OrderSourceTarget.Index(); got != 0 {
		t.Errorf("OrderSourceTarget.Index() = %d, want 0", got)
	}
	if got := OrderTargetSource.Index(); got != 1 {
		t.Errorf("OrderTargetSource.Index() = %d, want 1", got)
	}
}

func TestOrderingFields(t *testing.T) {
	row := testRow()

	tests := []struct {
		order     Ordering
		wantTexts []string
		wantLangs []string
	}{
		{
			order:     OrderSourceTarget,
			wantTexts: []string{"to go", "gehen", "I go home.", "Ich gehe nach Hause."},
			wantLangs: []string{"en", "de", "en", "de"},
		},
		{
			order:     OrderTargetSource,
			wantTexts: []string{"gehen", "to go", "Ich gehe nach Hause.", "I go home."},
			wantLangs: []string{"de", "en", "de", "en"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			fields := tt.order.Fields(row, "en", "de")
			if len(fields) != 4 {
				t.Fatalf("expected 4 fields, got %d", len(fields))
			}
			for i, field := range fields {
				if field.Text != tt.wantTexts[i] {
					t.Errorf("field %d text = %q, want %q", i, field.Text, tt.wantTexts[i])
				}
				if field.Language != tt.wantLangs[i] {
					t.Errorf("field %d language = %q, want %q", i, field.Language, tt.wantLangs[i])
				}
			}
		})
	}
}

func TestModeOrderings(t *testing.T) {
	tests := []struct {
		mode Mode
		want []Ordering
	}{
		{ModeSourceTarget, []Ordering{OrderSourceTarget}},
		{ModeTargetSource, []Ordering{OrderTargetSource}},
		{ModeBoth, []Ordering{OrderSourceTarget, OrderTargetSource}},
	}

	for _, tt := range tests {
		got := tt.mode.Orderings()
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d orderings, want %d", tt.mode, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: ordering %d = %s, want %s", tt.mode, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	if _, err := ParseMode("backwards"); err == nil {
		t.Error("expected error for unknown mode")
	}
	for _, valid := range []string{"source_target", "target_source", "both"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q) returned error: %v", valid, err)
		}
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName(7, OrderSourceTarget); got != "7_0.mp3" {
		t.Errorf("ArtifactName = %q, want 7_0.mp3", got)
	}
	if got := ArtifactName(7, OrderTargetSource); got != "7_1.mp3" {
		t.Errorf("ArtifactName = %q, want 7_1.mp3", got)
	}
}

func TestSynthesizeRowProducesOneArtifactPerOrdering(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestSynthesizer(t, provider)
	// the combined artifact is a fake file, skip the ffprobe call
	probed := 2500 * time.Millisecond
	s.probe = func(path string) (time.Duration, error) { return probed, nil }

	artifacts, err := s.SynthesizeRow(context.Background(), testRow(), ModeBoth)
	if err != nil {
		t.Fatalf("SynthesizeRow returned error: %v", err)
	}

	if len(artifacts) != 2 {
		t.Fatalf("mode both: expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Order != OrderSourceTarget || artifacts[1].Order != OrderTargetSource {
		t.Errorf("unexpected orderings: %s, %s", artifacts[0].Order, artifacts[1].Order)
	}
	for _, artifact := range artifacts {
		if artifact.Seq != 3 {
			t.Errorf("artifact Seq = %d, want 3", artifact.Seq)
		}
		if artifact.Duration != probed {
			t.Errorf("artifact duration = %v, want %v", artifact.Duration, probed)
		}
		wantName := ArtifactName(3, artifact.Order)
		if filepath.Base(artifact.Path) != wantName {
			t.Errorf("artifact path %q, want base %q", artifact.Path, wantName)
		}
		if _, err := os.Stat(artifact.Path); err != nil {
			t.Errorf("artifact file missing: %v", err)
		}
	}

	// 4 fields per ordering, both orderings synthesized
	if len(provider.calls) != 8 {
		t.Errorf("expected 8 synthesis calls, got %d", len(provider.calls))
	}
}

func TestSynthesizeRowFailsWholeRowOnFieldError(t *testing.T) {
	provider := &fakeProvider{failOn: "Ich gehe nach Hause."}
	s := newTestSynthesizer(t, provider)
	s.probe = func(path string) (time.Duration, error) { return time.Second, nil }

	_, err := s.SynthesizeRow(context.Background(), testRow(), ModeSourceTarget)
	if err == nil {
		t.Fatal("expected error when a field fails")
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected *SynthesisError, got %T", err)
	}
	if synthErr.Seq != 3 {
		t.Errorf("error Seq = %d, want 3", synthErr.Seq)
	}
	if synthErr.Field != "target_sentence" {
		t.Errorf("error Field = %q, want target_sentence", synthErr.Field)
	}

	// no partial artifact may survive a failed row
	entries, readErr := os.ReadDir(s.options.OutputDir)
	if readErr != nil {
		t.Fatalf("failed to read output dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty output dir after failure, found %d entries", len(entries))
	}
}

func TestSynthesizeRowHonorsContextCancellation(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestSynthesizer(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SynthesizeRow(ctx, testRow(), ModeSourceTarget); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewProviderRejectsUnknownName(t *testing.T) {
	if _, err := NewProvider("festival", DefaultProviderConfig()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(DefaultProviderConfig()); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestNewOpenAIProviderValidatesSpeed(t *testing.T) {
	cfg := DefaultProviderConfig()
	cfg.APIKey = "fake-key"
	cfg.Speed = 9.0
	if _, err := NewOpenAIProvider(cfg); err == nil {
		t.Error("expected error for out-of-range speed")
	}
}

func TestFallbackProviderTriesInOrder(t *testing.T) {
	failing := &fakeProvider{failOn: "hallo"}
	working := &fakeProvider{}
	fallback := NewFallbackProvider(failing, working)

	outPath := filepath.Join(t.TempDir(), "out.mp3")
	err := fallback.Synthesize(context.Background(), "hallo", "de", outPath)
	if err != nil {
		t.Fatalf("fallback synthesis failed: %v", err)
	}
	if len(failing.calls) != 1 || len(working.calls) != 1 {
		t.Errorf("expected both providers called once, got %d and %d",
			len(failing.calls), len(working.calls))
	}
}
