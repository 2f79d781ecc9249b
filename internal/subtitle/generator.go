package subtitle

import (
	"fmt"
	"time"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/video"
)

// FromBatch builds the subtitle track for one batched video: every
// slide of every row becomes one cue, timed at its absolute position
// within the batch.
func FromBatch(
	plan video.BatchPlan,
	artifacts []audio.Artifact,
	format video.SlidesFormat,
	order audio.Ordering,
	language string,
) (*Subtitle, error) {
	artifactsBySeq := make(map[int]audio.Artifact)
	for _, artifact := range artifacts {
		if artifact.Order == order {
			artifactsBySeq[artifact.Seq] = artifact
		}
	}

	sub := &Subtitle{
		Entries:  []Entry{},
		Language: language,
		Format:   string(FormatSRT),
	}

	var elapsed time.Duration
	index := 1
	for _, row := range plan.Rows {
		artifact, ok := artifactsBySeq[row.Seq]
		if !ok {
			return nil, fmt.Errorf(
				"batch %d: no audio artifact for row %d (%q)",
				plan.Number, row.Seq, row.TargetWord,
			)
		}

		for _, slide := range video.PlanSlides(row, order, format, artifact.Duration) {
			sub.Entries = append(sub.Entries, Entry{
				Index:     index,
				StartTime: elapsed + slide.Start,
				EndTime:   elapsed + slide.End,
				Text:      slide.Text,
			})
			index++
		}
		elapsed += artifact.Duration
	}

	return sub, nil
}

// WriteBatchSidecar writes the subtitle track next to a batched video
func WriteBatchSidecar(
	plan video.BatchPlan,
	artifacts []audio.Artifact,
	slidesFormat video.SlidesFormat,
	order audio.Ordering,
	language string,
	videoPath string,
	format Format,
) (string, error) {
	sub, err := FromBatch(plan, artifacts, slidesFormat, order, language)
	if err != nil {
		return "", err
	}
	sub.Format = string(format)

	writer, err := NewWriter(format)
	if err != nil {
		return "", err
	}

	path := SidecarPath(videoPath, format)
	if err := writer.Write(sub, path); err != nil {
		return "", fmt.Errorf("failed to write subtitle sidecar: %w", err)
	}
	return path, nil
}
