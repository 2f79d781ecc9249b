package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/tbuchert/wortklang/internal/audio"
	ffmpegbin "github.com/tbuchert/wortklang/internal/ffmpeg"
	"github.com/tbuchert/wortklang/internal/sentence"
)

// SlidesFormat is the number of text overlays shown per narrated row
type SlidesFormat int

const (
	// one slide per word pair and one per sentence pair
	SlidesTwo SlidesFormat = 2
	// one slide per narrated field
	SlidesFour SlidesFormat = 4
)

func ParseSlidesFormat(s string) (SlidesFormat, error) {
	switch s {
	case "2", "2slides":
		return SlidesTwo, nil
	case "4", "4slides":
		return SlidesFour, nil
	default:
		return 0, fmt.Errorf("unsupported slides format %q: use 2 or 4", s)
	}
}

// String renders the format as it appears in output file names
func (f SlidesFormat) String() string {
	return fmt.Sprintf("%dslides", int(f))
}

func (f SlidesFormat) Count() int {
	return int(f)
}

// Slide is one timed text overlay within a row's segment
type Slide struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// PlanSlides lays out the overlays for one row over the artifact's
// total duration. Slide order follows the narration ordering; the
// slide boundaries split the total evenly, with the last slide
// absorbing any rounding remainder.
func PlanSlides(
	row sentence.FlatRow,
	order audio.Ordering,
	format SlidesFormat,
	total time.Duration,
) []Slide {
	fields := order.Fields(row, "", "")

	var texts []string
	switch format {
	case SlidesTwo:
		texts = []string{
			fields[0].Text + "\n" + fields[1].Text,
			fields[2].Text + "\n" + fields[3].Text,
		}
	default:
		texts = []string{
			fields[0].Text,
			fields[1].Text,
			fields[2].Text,
			fields[3].Text,
		}
	}

	count := len(texts)
	slides := make([]Slide, count)
	for i, text := range texts {
		slides[i] = Slide{
			Text:  text,
			Start: total * time.Duration(i) / time.Duration(count),
			End:   total * time.Duration(i+1) / time.Duration(count),
		}
	}
	return slides
}

// Style controls how slides are rendered
type Style struct {
	Width      int
	Height     int
	FontSize   int
	FontColor  string
	Font       string // font family, resolved through fontconfig
	FontFile   string // explicit font file, takes precedence over Font
	Background string
	FPS        int
}

func DefaultStyle() Style {
	return Style{
		Width:      1920,
		Height:     1080,
		FontSize:   85,
		FontColor:  "white",
		Background: "black",
		FPS:        24,
	}
}

// RenderError reports a row whose slides could not be rendered.
// The row is skipped; assembly of other rows continues.
type RenderError struct {
	Seq  int
	Word string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering row %d (%q) failed: %v", e.Seq, e.Word, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Segment is one rendered per-row clip with the row narration muxed in
type Segment struct {
	Seq      int
	Order    audio.Ordering
	Path     string
	Duration time.Duration
}

// SegmentName renders the segment file name for a row and ordering
func SegmentName(seq int, order audio.Ordering) string {
	return fmt.Sprintf("segment_%d_%d.mp4", seq, order.Index())
}

// Assembler renders per-row segments and concatenates them into
// batched videos
type Assembler struct {
	style     Style
	outputDir string

	// seams for tests: rendering and concatenation shell out to ffmpeg
	render func(slides []Slide, audioPath string, total time.Duration, outPath string) error
	concat func(segmentPaths, audioPaths []string, outPath string) error
}

func NewAssembler(style Style, outputDir string) *Assembler {
	a := &Assembler{
		style:     style,
		outputDir: outputDir,
	}
	a.render = a.renderSegment
	a.concat = a.concatBatch
	return a
}

// AssembleSegment renders one row's slides over a solid background,
// synchronized to the artifact duration, with the narration muxed in.
func (a *Assembler) AssembleSegment(
	ctx context.Context,
	row sentence.FlatRow,
	artifact audio.Artifact,
	format SlidesFormat,
) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}
	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return Segment{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	slides := PlanSlides(row, artifact.Order, format, artifact.Duration)
	outPath := filepath.Join(a.outputDir, SegmentName(row.Seq, artifact.Order))

	if err := a.render(slides, artifact.Path, artifact.Duration, outPath); err != nil {
		return Segment{}, &RenderError{
			Seq:  row.Seq,
			Word: row.TargetWord,
			Err:  err,
		}
	}

	return Segment{
		Seq:      row.Seq,
		Order:    artifact.Order,
		Path:     outPath,
		Duration: artifact.Duration,
	}, nil
}

// renders timed drawtext overlays on a solid color source and muxes
// the row narration
func (a *Assembler) renderSegment(
	slides []Slide,
	audioPath string,
	total time.Duration,
	outPath string,
) error {
	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	textDir, err := os.MkdirTemp("", "wortklang-slides-*")
	if err != nil {
		return fmt.Errorf("failed to create slide text directory: %w", err)
	}
	defer os.RemoveAll(textDir)

	source := fmt.Sprintf(
		"color=c=%s:s=%dx%d:d=%.3f:r=%d",
		a.style.Background,
		a.style.Width,
		a.style.Height,
		total.Seconds(),
		a.style.FPS,
	)
	stream := ffmpeg.Input(source, ffmpeg.KwArgs{"f": "lavfi"})

	for i, slide := range slides {
		// drawtext escaping rules are unforgiving; a text file per
		// slide sidesteps them entirely
		textPath := filepath.Join(textDir, fmt.Sprintf("slide_%d.txt", i))
		if err := os.WriteFile(textPath, []byte(slide.Text), 0644); err != nil {
			return fmt.Errorf("failed to write slide text: %w", err)
		}

		kwargs := ffmpeg.KwArgs{
			"textfile":  textPath,
			"fontsize":  a.style.FontSize,
			"fontcolor": a.style.FontColor,
			"x":         "(w-text_w)/2",
			"y":         "(h-text_h)/2",
			"enable": fmt.Sprintf(
				"between(t,%.3f,%.3f)",
				slide.Start.Seconds(),
				slide.End.Seconds(),
			),
		}
		if a.style.FontFile != "" {
			kwargs["fontfile"] = a.style.FontFile
		} else if a.style.Font != "" {
			kwargs["font"] = a.style.Font
		}

		stream = stream.Filter("drawtext", ffmpeg.Args{}, kwargs)
	}

	narration := ffmpeg.Input(audioPath).Audio()

	err = ffmpeg.Output(
		[]*ffmpeg.Stream{stream, narration},
		outPath,
		ffmpeg.KwArgs{
			"vcodec":   "mpeg4",
			"acodec":   "aac",
			"shortest": "",
		},
	).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg segment render failed: %w", err)
	}

	return nil
}
