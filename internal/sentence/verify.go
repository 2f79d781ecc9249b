package sentence

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Mismatch reports a generated sentence whose detected language differs
// from the language it was requested in.
type Mismatch struct {
	Seq      int
	Field    string // "source_sentence" or "target_sentence"
	Expected string // ISO 639-1 code
	Detected string // ISO 639-1 code, or "unknown"
}

// Verifier checks generated sentences against the configured languages.
// Detection runs on sentences only: single words are too short for a
// reliable verdict.
type Verifier struct {
	detector   lingua.LanguageDetector
	sourceLang string
	targetLang string
}

func NewVerifier(sourceLang, targetLang string) *Verifier {
	detector := lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build()
	return &Verifier{
		detector:   detector,
		sourceLang: strings.ToUpper(strings.TrimSpace(sourceLang)),
		targetLang: strings.ToUpper(strings.TrimSpace(targetLang)),
	}
}

// VerifyRows returns a mismatch for every sentence that does not detect
// as its requested language. Rows are never modified or dropped here;
// the caller decides what to do with the report.
func (v *Verifier) VerifyRows(rows []FlatRow) []Mismatch {
	var mismatches []Mismatch

	for _, row := range rows {
		if detected, ok := v.check(row.SourceSentence, v.sourceLang); !ok {
			mismatches = append(mismatches, Mismatch{
				Seq:      row.Seq,
				Field:    "source_sentence",
				Expected: v.sourceLang,
				Detected: detected,
			})
		}
		if detected, ok := v.check(row.TargetSentence, v.targetLang); !ok {
			mismatches = append(mismatches, Mismatch{
				Seq:      row.Seq,
				Field:    "target_sentence",
				Expected: v.targetLang,
				Detected: detected,
			})
		}
	}

	return mismatches
}

func (v *Verifier) check(text, expected string) (string, bool) {
	language, exists := v.detector.DetectLanguageOf(text)
	if !exists {
		return "unknown", false
	}

	detected := language.IsoCode639_1().String()
	return detected, detected == expected
}
