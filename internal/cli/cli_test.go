package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
)

func TestGeneratorAPIKeyFlagWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	key, err := generatorAPIKey(sentence.ProviderOpenAI, "flag-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "flag-key" {
		t.Errorf("key = %q, want flag value", key)
	}
}

func TestGeneratorAPIKeyFromEnv(t *testing.T) {
	tests := []struct {
		provider sentence.Provider
		envVar   string
	}{
		{sentence.ProviderOpenAI, "OPENAI_API_KEY"},
		{sentence.ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{sentence.ProviderGemini, "GEMINI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			t.Setenv(tt.envVar, "secret")

			key, err := generatorAPIKey(tt.provider, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if key != "secret" {
				t.Errorf("key = %q, want env value", key)
			}
		})
	}
}

func TestGeneratorAPIKeyMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := generatorAPIKey(sentence.ProviderOpenAI, "")
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error should name the env variable, got: %v", err)
	}
}

func TestGeneratorAPIKeyUnknownProvider(t *testing.T) {
	_, err := generatorAPIKey(sentence.Provider("cohere"), "")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRowsWithArtifacts(t *testing.T) {
	rows := []sentence.FlatRow{
		{Seq: 1, TargetWord: "gehen"},
		{Seq: 2, TargetWord: "kommen"},
		{Seq: 3, TargetWord: "sehen"},
	}
	artifacts := []audio.Artifact{
		{Seq: 1, Order: audio.OrderSourceTarget},
		{Seq: 3, Order: audio.OrderSourceTarget},
		{Seq: 3, Order: audio.OrderTargetSource},
	}

	kept := rowsWithArtifacts(rows, artifacts)
	if len(kept) != 2 {
		t.Fatalf("kept %d rows, want 2", len(kept))
	}
	if kept[0].Seq != 1 || kept[1].Seq != 3 {
		t.Errorf("kept seqs = %d, %d, want 1, 3", kept[0].Seq, kept[1].Seq)
	}
}

func TestNarratedRowsSkipsRowsWithoutAudio(t *testing.T) {
	// a row skipped during synthesis leaves no narration file; it must
	// be skipped at assembly too, not fail the run
	dir := t.TempDir()
	rows := []sentence.FlatRow{
		{Seq: 0, TargetWord: "gehen"},
		{Seq: 1, TargetWord: "kommen"},
		{Seq: 2, TargetWord: "sehen"},
	}
	for _, seq := range []int{0, 2} {
		name := audio.ArtifactName(seq, audio.OrderSourceTarget)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("mp3"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	narrated, missing := narratedRows(dir, rows, audio.OrderSourceTarget)

	if len(narrated) != 2 || narrated[0].Seq != 0 || narrated[1].Seq != 2 {
		t.Errorf("narrated rows = %v, want seqs 0 and 2", narrated)
	}
	if len(missing) != 1 || missing[0].TargetWord != "kommen" {
		t.Errorf("missing rows = %v, want only kommen", missing)
	}
}

func TestNarratedRowsHonorsOrdering(t *testing.T) {
	dir := t.TempDir()
	rows := []sentence.FlatRow{{Seq: 0, TargetWord: "gehen"}}

	name := audio.ArtifactName(0, audio.OrderSourceTarget)
	if err := os.WriteFile(filepath.Join(dir, name), []byte("mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	narrated, missing := narratedRows(dir, rows, audio.OrderTargetSource)
	if len(narrated) != 0 || len(missing) != 1 {
		t.Errorf(
			"narrated %d / missing %d for the other ordering, want 0 / 1",
			len(narrated), len(missing),
		)
	}
}

func TestRowsWithArtifactsKeepsNone(t *testing.T) {
	rows := []sentence.FlatRow{{Seq: 7, TargetWord: "laufen"}}

	kept := rowsWithArtifacts(rows, nil)
	if len(kept) != 0 {
		t.Errorf("kept %d rows, want 0", len(kept))
	}
}
