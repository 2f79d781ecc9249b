package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
	"github.com/tbuchert/wortklang/internal/subtitle"
	"github.com/tbuchert/wortklang/internal/video"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble batched videos from a sentence table and audio",
	Long: `Assemble text-slide videos from a sentence table and its narration.

Every row becomes one segment: timed text overlays over a solid
background, synchronized to the row's narration. Segments are batched by
distinct vocabulary words (meanings of the same word stay together and
count once) and concatenated into combined videos named
combined_video_{n}_{slides}_{ordering}.mp4, numbered from 1.

A row whose rendering fails is reported and skipped; the remaining rows
continue. Under mode "both" a full set of videos is produced per
narration ordering.

Examples:
  wortklang assemble -i rows.csv --audio audio -o videos
  wortklang assemble -i rows.csv --audio audio -o videos --slides 2
  wortklang assemble -i rows.csv --audio audio -o videos --words-per-video 10
  wortklang assemble -i rows.csv --audio audio -o videos --subtitles srt`,
	RunE: runAssemble,
}

func init() {
	rootCmd.AddCommand(assembleCmd)

	assembleCmd.Flags().
		StringP("input", "i", "rows.csv", "Sentence table file")
	assembleCmd.Flags().
		String("audio", "audio", "Directory holding the synthesized narration")
	assembleCmd.Flags().
		String("slides", "4", "Slides per row: 4 (one per field) or 2 (stacked pairs)")
	assembleCmd.Flags().
		String("mode", "source_target", "Narration ordering (source_target, target_source, both)")
	assembleCmd.Flags().
		Int("words-per-video", 10, "Distinct vocabulary words per combined video")
	assembleCmd.Flags().
		String("font", "", "Font family for slide text (resolved through fontconfig)")
	assembleCmd.Flags().
		String("font-file", "", "Font file for slide text (takes precedence over --font)")
	assembleCmd.Flags().
		String("subtitles", "", "Write a subtitle sidecar per video (srt or vtt)")
	assembleCmd.Flags().
		String("target-lang", "de", "Language being learned, used to tag subtitle sidecars")
}

// settings for the assembly stage, shared with the run command
type assembleConfig struct {
	audioDir      string
	outputDir     string
	slides        video.SlidesFormat
	mode          audio.Mode
	wordsPerVideo int
	style         video.Style
	subtitles     subtitle.Format // empty when no sidecars are wanted
	targetLang    string
}

func assembleConfigFromFlags(cmd *cobra.Command) (assembleConfig, error) {
	var cfg assembleConfig

	slidesStr, _ := cmd.Flags().GetString("slides")
	slides, err := video.ParseSlidesFormat(slidesStr)
	if err != nil {
		return cfg, err
	}
	cfg.slides = slides

	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := audio.ParseMode(modeStr)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	cfg.wordsPerVideo, _ = cmd.Flags().GetInt("words-per-video")
	if cfg.wordsPerVideo < 1 {
		return cfg, fmt.Errorf("words-per-video must be at least 1, got %d", cfg.wordsPerVideo)
	}

	cfg.style = video.DefaultStyle()
	cfg.style.Font, _ = cmd.Flags().GetString("font")
	cfg.style.FontFile, _ = cmd.Flags().GetString("font-file")

	subtitlesStr, _ := cmd.Flags().GetString("subtitles")
	if subtitlesStr != "" {
		format, err := subtitle.ParseFormat(subtitlesStr)
		if err != nil {
			return cfg, err
		}
		cfg.subtitles = format
	}

	cfg.audioDir, _ = cmd.Flags().GetString("audio")
	cfg.targetLang, _ = cmd.Flags().GetString("target-lang")

	return cfg, nil
}

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg, err := assembleConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	inputPath, _ := cmd.Flags().GetString("input")
	cfg.outputDir, _ = cmd.Flags().GetString("output")
	if cfg.outputDir == "" {
		cfg.outputDir = "videos"
	}

	rows, err := sentence.ReadTable(inputPath)
	if err != nil {
		return err
	}

	batches, err := assembleVideos(context.Background(), rows, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Combined videos written: %d\n", len(batches))
	for _, batch := range batches {
		absPath, _ := filepath.Abs(batch.Path)
		fmt.Printf("  %s (%d words, %d rows)\n", absPath, batch.Words, batch.Rows)
	}

	return nil
}

// assembleVideos runs the assembly stage for every ordering of the
// mode: per-row segments, then distinct-word batches, then optional
// subtitle sidecars.
func assembleVideos(
	ctx context.Context,
	rows []sentence.FlatRow,
	cfg assembleConfig,
) ([]video.Batch, error) {
	assembler := video.NewAssembler(cfg.style, cfg.outputDir)

	var allBatches []video.Batch
	for _, order := range cfg.mode.Orderings() {
		batches, err := assembleOrdering(ctx, assembler, rows, order, cfg)
		if err != nil {
			return nil, err
		}
		allBatches = append(allBatches, batches...)
	}

	if len(allBatches) == 0 {
		return nil, fmt.Errorf("no videos could be assembled")
	}
	return allBatches, nil
}

func assembleOrdering(
	ctx context.Context,
	assembler *video.Assembler,
	rows []sentence.FlatRow,
	order audio.Ordering,
	cfg assembleConfig,
) ([]video.Batch, error) {
	logger.Infow("Assembling segments",
		"rows", len(rows),
		"ordering", order,
		"slides", cfg.slides,
	)

	narrated, missing := narratedRows(cfg.audioDir, rows, order)
	for _, row := range missing {
		logger.Errorw("Narration missing, skipping row",
			"row", row.Seq,
			"word", row.TargetWord,
		)
	}
	if len(narrated) == 0 {
		return nil, fmt.Errorf(
			"no narration found in %s for ordering %s", cfg.audioDir, order,
		)
	}

	var (
		okRows    []sentence.FlatRow
		segments  []video.Segment
		artifacts []audio.Artifact
	)
	for _, row := range narrated {
		artifact, err := loadArtifact(cfg.audioDir, row.Seq, order)
		if err != nil {
			return nil, err
		}

		segment, err := assembler.AssembleSegment(ctx, row, artifact, cfg.slides)
		if err != nil {
			var renderErr *video.RenderError
			if errors.As(err, &renderErr) {
				logger.Errorw("Segment rendering failed, skipping row",
					"row", renderErr.Seq,
					"word", renderErr.Word,
					"error", renderErr.Err,
				)
				continue
			}
			return nil, err
		}

		okRows = append(okRows, row)
		segments = append(segments, segment)
		artifacts = append(artifacts, artifact)
	}

	if len(okRows) == 0 {
		return nil, fmt.Errorf(
			"all %d rows failed to render for ordering %s", len(narrated), order,
		)
	}

	batches, err := assembler.AssembleBatches(
		ctx, segments, artifacts, okRows, cfg.wordsPerVideo, cfg.slides, order,
	)
	if err != nil {
		return nil, err
	}

	if cfg.subtitles != "" {
		plans, err := video.PlanBatches(okRows, cfg.wordsPerVideo)
		if err != nil {
			return nil, err
		}
		for i, batch := range batches {
			sidecarPath, err := subtitle.WriteBatchSidecar(
				plans[i], artifacts, cfg.slides, order,
				cfg.targetLang, batch.Path, cfg.subtitles,
			)
			if err != nil {
				return nil, err
			}
			logger.Debugw("Subtitle sidecar written",
				"batch", batch.Number,
				"path", sidecarPath,
			)
		}
	}

	return batches, nil
}

// narratedRows splits rows by whether their narration file exists for
// the ordering. A row skipped during synthesis stays skipped here
// instead of failing the whole assembly.
func narratedRows(
	audioDir string,
	rows []sentence.FlatRow,
	order audio.Ordering,
) (narrated, missing []sentence.FlatRow) {
	for _, row := range rows {
		if _, err := audio.FindArtifact(audioDir, row.Seq, order); err != nil {
			missing = append(missing, row)
			continue
		}
		narrated = append(narrated, row)
	}
	return narrated, missing
}

// loadArtifact locates a row's narration file and probes its duration
func loadArtifact(audioDir string, seq int, order audio.Ordering) (audio.Artifact, error) {
	path, err := audio.FindArtifact(audioDir, seq, order)
	if err != nil {
		return audio.Artifact{}, err
	}
	duration, err := audio.GetDuration(path)
	if err != nil {
		return audio.Artifact{}, fmt.Errorf(
			"failed to probe audio for row %d: %w", seq, err,
		)
	}
	return audio.Artifact{Seq: seq, Order: order, Path: path, Duration: duration}, nil
}
