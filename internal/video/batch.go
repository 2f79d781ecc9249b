package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/tbuchert/wortklang/internal/audio"
	ffmpegbin "github.com/tbuchert/wortklang/internal/ffmpeg"
	"github.com/tbuchert/wortklang/internal/sentence"
)

// BatchPlan is one planned output video: a run of consecutive rows
// covering WordsPerVideo distinct vocabulary words (fewer for the
// final batch).
type BatchPlan struct {
	Number int // sequential, starting at 1
	Rows   []sentence.FlatRow
	Words  int // distinct vocabulary words in the batch
}

// PlanBatches groups rows into batches by distinct vocabulary words.
//
// Rows are walked in order; once wordsPerVideo distinct studied words
// have been collected, the batch closes before the next row that
// introduces a new word. Multiple meanings of one word land in the
// same batch and count once, including the meanings of the word that
// filled the batch. The final partial batch is always emitted.
func PlanBatches(rows []sentence.FlatRow, wordsPerVideo int) ([]BatchPlan, error) {
	if wordsPerVideo < 1 {
		return nil, fmt.Errorf("words per video must be at least 1, got %d", wordsPerVideo)
	}

	var plans []BatchPlan
	var current []sentence.FlatRow
	seen := make(map[string]bool)

	flush := func() {
		if len(current) == 0 {
			return
		}
		plans = append(plans, BatchPlan{
			Number: len(plans) + 1,
			Rows:   current,
			Words:  len(seen),
		})
		current = nil
		seen = make(map[string]bool)
	}

	for _, row := range rows {
		// the studied word repeats across meanings; a full batch only
		// closes when a row brings a word it has not seen yet, so
		// trailing meanings of the last counted word stay with it
		if len(seen) >= wordsPerVideo && !seen[row.TargetWord] {
			flush()
		}
		seen[row.TargetWord] = true
		current = append(current, row)
	}
	flush()

	return plans, nil
}

// Batch is one finished combined video
type Batch struct {
	Number int
	Path   string
	Rows   int
	Words  int
}

// BatchName renders the combined video file name
func BatchName(number int, format SlidesFormat, order audio.Ordering) string {
	return fmt.Sprintf("combined_video_%d_%s_%s.mp4", number, format, order)
}

// AssembleBatches concatenates row segments into batched videos.
//
// For every planned batch the segment video tracks are concatenated
// in row order, the audio artifacts are concatenated the same way,
// and the audio track is attached to the video track. Every row must
// have a segment and an artifact for the given ordering; rows that
// failed earlier stages are excluded by the caller before batching.
func (a *Assembler) AssembleBatches(
	ctx context.Context,
	segments []Segment,
	artifacts []audio.Artifact,
	rows []sentence.FlatRow,
	wordsPerVideo int,
	format SlidesFormat,
	order audio.Ordering,
) ([]Batch, error) {
	segmentsBySeq := make(map[int]Segment)
	for _, segment := range segments {
		if segment.Order == order {
			segmentsBySeq[segment.Seq] = segment
		}
	}
	artifactsBySeq := make(map[int]audio.Artifact)
	for _, artifact := range artifacts {
		if artifact.Order == order {
			artifactsBySeq[artifact.Seq] = artifact
		}
	}

	plans, err := PlanBatches(rows, wordsPerVideo)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var batches []Batch
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		segmentPaths := make([]string, 0, len(plan.Rows))
		audioPaths := make([]string, 0, len(plan.Rows))
		for _, row := range plan.Rows {
			segment, ok := segmentsBySeq[row.Seq]
			if !ok {
				return nil, fmt.Errorf(
					"batch %d: no segment for row %d (%q)",
					plan.Number, row.Seq, row.TargetWord,
				)
			}
			artifact, ok := artifactsBySeq[row.Seq]
			if !ok {
				return nil, fmt.Errorf(
					"batch %d: no audio artifact for row %d (%q)",
					plan.Number, row.Seq, row.TargetWord,
				)
			}
			segmentPaths = append(segmentPaths, segment.Path)
			audioPaths = append(audioPaths, artifact.Path)
		}

		outPath := filepath.Join(a.outputDir, BatchName(plan.Number, format, order))
		if err := a.concat(segmentPaths, audioPaths, outPath); err != nil {
			return nil, fmt.Errorf("failed to assemble batch %d: %w", plan.Number, err)
		}

		batches = append(batches, Batch{
			Number: plan.Number,
			Path:   outPath,
			Rows:   len(plan.Rows),
			Words:  plan.Words,
		})
	}

	return batches, nil
}

// concatenates segment video tracks and artifact audio tracks,
// pairing them row by row
func (a *Assembler) concatBatch(segmentPaths, audioPaths []string, outPath string) error {
	if len(segmentPaths) == 0 || len(segmentPaths) != len(audioPaths) {
		return fmt.Errorf(
			"segment and audio counts disagree: %d vs %d",
			len(segmentPaths),
			len(audioPaths),
		)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	streams := make([]*ffmpeg.Stream, 0, len(segmentPaths)*2)
	for i := range segmentPaths {
		streams = append(streams, ffmpeg.Input(segmentPaths[i]).Video())
		streams = append(streams, ffmpeg.Input(audioPaths[i]).Audio())
	}

	err = ffmpeg.Concat(streams, ffmpeg.KwArgs{"v": 1, "a": 1}).
		Output(outPath, ffmpeg.KwArgs{
			"vcodec": "mpeg4",
			"acodec": "aac",
			"r":      a.style.FPS,
		}).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg batch concat failed: %w", err)
	}

	return nil
}
