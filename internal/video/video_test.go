package video

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
)

func testRow(seq int) sentence.FlatRow {
	return sentence.FlatRow{
		Seq:            seq,
		SourceWord:     "to go",
		TargetWord:     "gehen",
		SourceSentence: "I go home.",
		TargetSentence: "Ich gehe nach Hause.",
	}
}

func TestParseSlidesFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    SlidesFormat
		wantErr bool
	}{
		{"2", SlidesTwo, false},
		{"4", SlidesFour, false},
		{"2slides", SlidesTwo, false},
		{"4slides", SlidesFour, false},
		{"3", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSlidesFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSlidesFormat(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSlidesFormat(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSlidesFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlanSlidesFourFormat(t *testing.T) {
	total := 10 * time.Second
	slides := PlanSlides(testRow(0), audio.OrderSourceTarget, SlidesFour, total)

	if len(slides) != 4 {
		t.Fatalf("expected 4 slides, got %d", len(slides))
	}

	wantTexts := []string{"to go", "gehen", "I go home.", "Ich gehe nach Hause."}
	for i, slide := range slides {
		if slide.Text != wantTexts[i] {
			t.Errorf("slide %d text = %q, want %q", i, slide.Text, wantTexts[i])
		}
	}
}

func TestPlanSlidesTwoFormatStacksPairs(t *testing.T) {
	total := 10 * time.Second
	slides := PlanSlides(testRow(0), audio.OrderTargetSource, SlidesTwo, total)

	if len(slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(slides))
	}
	if slides[0].Text != "gehen\nto go" {
		t.Errorf("word slide = %q", slides[0].Text)
	}
	if slides[1].Text != "Ich gehe nach Hause.\nI go home." {
		t.Errorf("sentence slide = %q", slides[1].Text)
	}
}

func TestPlanSlidesDurationsCoverTotal(t *testing.T) {
	// slides tile the artifact duration exactly, rounding absorbed by
	// the last slide
	for _, format := range []SlidesFormat{SlidesTwo, SlidesFour} {
		for _, total := range []time.Duration{
			10 * time.Second,
			7*time.Second + 333*time.Millisecond,
			1 * time.Nanosecond,
		} {
			slides := PlanSlides(testRow(0), audio.OrderSourceTarget, format, total)
			if len(slides) != format.Count() {
				t.Fatalf("%s/%v: expected %d slides, got %d",
					format, total, format.Count(), len(slides))
			}

			var sum time.Duration
			for i, slide := range slides {
				if i > 0 && slide.Start != slides[i-1].End {
					t.Errorf("%s/%v: slide %d starts at %v, previous ends at %v",
						format, total, i, slide.Start, slides[i-1].End)
				}
				sum += slide.End - slide.Start
			}
			if slides[0].Start != 0 {
				t.Errorf("%s/%v: first slide starts at %v", format, total, slides[0].Start)
			}
			if slides[len(slides)-1].End != total {
				t.Errorf("%s/%v: last slide ends at %v, want %v",
					format, total, slides[len(slides)-1].End, total)
			}
			if sum != total {
				t.Errorf("%s/%v: durations sum to %v, want %v", format, total, sum, total)
			}
		}
	}
}

func TestPlanBatchesCountsDistinctWordsNotRows(t *testing.T) {
	// words [A, A, B, C, D]: A has two meanings, so the first batch
	// closes only after C, the third distinct word
	words := []string{"A", "A", "B", "C", "D"}
	rows := make([]sentence.FlatRow, len(words))
	for i, word := range words {
		rows[i] = sentence.FlatRow{Seq: i, TargetWord: word}
	}

	plans, err := PlanBatches(rows, 3)
	if err != nil {
		t.Fatalf("PlanBatches returned error: %v", err)
	}

	if len(plans) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(plans))
	}
	if len(plans[0].Rows) != 4 || plans[0].Words != 3 {
		t.Errorf("first batch has %d rows / %d words, want 4 rows / 3 words",
			len(plans[0].Rows), plans[0].Words)
	}
	if len(plans[1].Rows) != 1 || plans[1].Words != 1 {
		t.Errorf("second batch has %d rows / %d words, want 1 row / 1 word",
			len(plans[1].Rows), plans[1].Words)
	}
}

func TestPlanBatchesKeepsBoundaryWordMeaningsTogether(t *testing.T) {
	// words [A, B, B, C]: B fills the batch with its first meaning,
	// so its second meaning must stay in the same batch instead of
	// opening the next one
	words := []string{"A", "B", "B", "C"}
	rows := make([]sentence.FlatRow, len(words))
	for i, word := range words {
		rows[i] = sentence.FlatRow{Seq: i, TargetWord: word}
	}

	plans, err := PlanBatches(rows, 2)
	if err != nil {
		t.Fatalf("PlanBatches returned error: %v", err)
	}

	if len(plans) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(plans))
	}
	if len(plans[0].Rows) != 3 || plans[0].Words != 2 {
		t.Errorf("first batch has %d rows / %d words, want 3 rows / 2 words",
			len(plans[0].Rows), plans[0].Words)
	}
	if len(plans[1].Rows) != 1 || plans[1].Rows[0].TargetWord != "C" {
		t.Errorf("second batch should hold only C, got %d rows", len(plans[1].Rows))
	}
}

func TestPlanBatchesEmitsFinalPartialBatch(t *testing.T) {
	// 25 rows over 12 distinct words, 10 words per video: two batches,
	// the second holding the remaining 2 words
	var rows []sentence.FlatRow
	seq := 0
	for word := 0; word < 12; word++ {
		meanings := 2
		if word >= 11 {
			meanings = 3
		}
		for m := 0; m < meanings; m++ {
			rows = append(rows, sentence.FlatRow{
				Seq:        seq,
				TargetWord: fmt.Sprintf("word%d", word),
			})
			seq++
		}
	}
	if len(rows) != 25 {
		t.Fatalf("test setup: expected 25 rows, got %d", len(rows))
	}

	plans, err := PlanBatches(rows, 10)
	if err != nil {
		t.Fatalf("PlanBatches returned error: %v", err)
	}

	if len(plans) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(plans))
	}
	if plans[0].Words != 10 {
		t.Errorf("first batch has %d words, want 10", plans[0].Words)
	}
	if plans[1].Words != 2 {
		t.Errorf("second batch has %d words, want 2", plans[1].Words)
	}
	if plans[0].Number != 1 || plans[1].Number != 2 {
		t.Errorf("batch numbers %d, %d; want 1, 2", plans[0].Number, plans[1].Number)
	}

	total := len(plans[0].Rows) + len(plans[1].Rows)
	if total != 25 {
		t.Errorf("batches cover %d rows, want 25", total)
	}
}

func TestPlanBatchesRejectsZeroWordsPerVideo(t *testing.T) {
	if _, err := PlanBatches([]sentence.FlatRow{testRow(0)}, 0); err == nil {
		t.Error("expected error for wordsPerVideo of 0")
	}
}

func TestPlanBatchesEmptyInput(t *testing.T) {
	plans, err := PlanBatches(nil, 5)
	if err != nil {
		t.Fatalf("PlanBatches returned error: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("expected no batches for empty input, got %d", len(plans))
	}
}

func TestBatchName(t *testing.T) {
	got := BatchName(3, SlidesFour, audio.OrderTargetSource)
	if got != "combined_video_3_4slides_target_source.mp4" {
		t.Errorf("BatchName = %q", got)
	}
}

func TestAssembleSegmentWrapsRenderFailure(t *testing.T) {
	a := NewAssembler(DefaultStyle(), t.TempDir())
	a.render = func(slides []Slide, audioPath string, total time.Duration, outPath string) error {
		return errors.New("glyph not found")
	}

	artifact := audio.Artifact{
		Seq:      5,
		Order:    audio.OrderSourceTarget,
		Path:     "5_0.mp3",
		Duration: 8 * time.Second,
	}
	_, err := a.AssembleSegment(context.Background(), testRow(5), artifact, SlidesFour)
	if err == nil {
		t.Fatal("expected error from failing render")
	}

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected *RenderError, got %T", err)
	}
	if renderErr.Seq != 5 || renderErr.Word != "gehen" {
		t.Errorf("error context Seq=%d Word=%q", renderErr.Seq, renderErr.Word)
	}
}

func TestAssembleBatchesConcatenatesInRowOrder(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(DefaultStyle(), dir)

	var gotSegments [][]string
	a.concat = func(segmentPaths, audioPaths []string, outPath string) error {
		if len(segmentPaths) != len(audioPaths) {
			t.Fatalf("unpaired concat: %d segments, %d audio", len(segmentPaths), len(audioPaths))
		}
		gotSegments = append(gotSegments, segmentPaths)
		return nil
	}

	words := []string{"A", "A", "B", "C"}
	rows := make([]sentence.FlatRow, len(words))
	segments := make([]Segment, len(words))
	artifacts := make([]audio.Artifact, len(words))
	for i, word := range words {
		rows[i] = sentence.FlatRow{Seq: i, TargetWord: word}
		segments[i] = Segment{
			Seq:   i,
			Order: audio.OrderSourceTarget,
			Path:  fmt.Sprintf("segment_%d_0.mp4", i),
		}
		artifacts[i] = audio.Artifact{
			Seq:   i,
			Order: audio.OrderSourceTarget,
			Path:  fmt.Sprintf("%d_0.mp3", i),
		}
	}

	batches, err := a.AssembleBatches(
		context.Background(),
		segments,
		artifacts,
		rows,
		2,
		SlidesTwo,
		audio.OrderSourceTarget,
	)
	if err != nil {
		t.Fatalf("AssembleBatches returned error: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Rows != 3 || batches[0].Words != 2 {
		t.Errorf("first batch: %d rows / %d words, want 3 / 2", batches[0].Rows, batches[0].Words)
	}
	if filepath.Base(batches[0].Path) != "combined_video_1_2slides_source_target.mp4" {
		t.Errorf("first batch path %q", batches[0].Path)
	}

	// segments must keep row order within each batch
	want := []string{"segment_0_0.mp4", "segment_1_0.mp4", "segment_2_0.mp4"}
	if strings.Join(gotSegments[0], ",") != strings.Join(want, ",") {
		t.Errorf("first batch segments %v, want %v", gotSegments[0], want)
	}
}

func TestAssembleBatchesRequiresMatchingArtifacts(t *testing.T) {
	a := NewAssembler(DefaultStyle(), t.TempDir())
	a.concat = func(segmentPaths, audioPaths []string, outPath string) error { return nil }

	rows := []sentence.FlatRow{{Seq: 0, TargetWord: "A"}}
	segments := []Segment{{Seq: 0, Order: audio.OrderSourceTarget, Path: "segment_0_0.mp4"}}

	_, err := a.AssembleBatches(
		context.Background(),
		segments,
		nil,
		rows,
		1,
		SlidesFour,
		audio.OrderSourceTarget,
	)
	if err == nil {
		t.Fatal("expected error when a row has no audio artifact")
	}
}
