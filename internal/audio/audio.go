package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/tbuchert/wortklang/internal/ffmpeg"
	"github.com/tbuchert/wortklang/internal/sentence"
)

// Ordering is one of the two fixed narration orders for a row.
// The numeric index is part of the artifact file name and never
// changes with the synthesis mode, so a given file name always
// identifies the same narration order.
type Ordering string

const (
	// source word, target word, source sentence, target sentence
	OrderSourceTarget Ordering = "source_target"
	// target word, source word, target sentence, source sentence
	OrderTargetSource Ordering = "target_source"
)

// Index returns the fixed order index used in artifact file names
func (o Ordering) Index() int {
	if o == OrderTargetSource {
		return 1
	}
	return 0
}

// one narrated field: its text and the language to speak it in
type Field struct {
	Name     string
	Text     string
	Language string // ISO 639-1 code
}

// Fields returns the four narrated fields of a row in this ordering
func (o Ordering) Fields(row sentence.FlatRow, sourceLang, targetLang string) []Field {
	if o == OrderTargetSource {
		return []Field{
			{Name: "target_word", Text: row.TargetWord, Language: targetLang},
			{Name: "source_word", Text: row.SourceWord, Language: sourceLang},
			{Name: "target_sentence", Text: row.TargetSentence, Language: targetLang},
			{Name: "source_sentence", Text: row.SourceSentence, Language: sourceLang},
		}
	}
	return []Field{
		{Name: "source_word", Text: row.SourceWord, Language: sourceLang},
		{Name: "target_word", Text: row.TargetWord, Language: targetLang},
		{Name: "source_sentence", Text: row.SourceSentence, Language: sourceLang},
		{Name: "target_sentence", Text: row.TargetSentence, Language: targetLang},
	}
}

// Mode selects which narration orderings a synthesis run produces
type Mode string

const (
	ModeSourceTarget Mode = "source_target"
	ModeTargetSource Mode = "target_source"
	ModeBoth         Mode = "both"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSourceTarget, ModeTargetSource, ModeBoth:
		return Mode(s), nil
	default:
		return "", fmt.Errorf(
			"unsupported mode %q: use source_target, target_source, or both",
			s,
		)
	}
}

// Orderings returns the narration orders this mode produces
func (m Mode) Orderings() []Ordering {
	switch m {
	case ModeTargetSource:
		return []Ordering{OrderTargetSource}
	case ModeBoth:
		return []Ordering{OrderSourceTarget, OrderTargetSource}
	default:
		return []Ordering{OrderSourceTarget}
	}
}

// Artifact is one combined narration file for a row and ordering
type Artifact struct {
	Seq      int
	Order    Ordering
	Path     string
	Duration time.Duration
}

// ArtifactName renders the artifact file name for a row and ordering
func ArtifactName(seq int, order Ordering) string {
	return fmt.Sprintf("%d_%d.mp3", seq, order.Index())
}

// SynthesisError reports a failed narration for one row. The row's
// artifact is never partially written: any field failure discards
// the whole row.
type SynthesisError struct {
	Seq   int
	Word  string
	Field string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf(
		"synthesis of row %d (%q) failed at %s: %v",
		e.Seq,
		e.Word,
		e.Field,
		e.Err,
	)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// DefaultSilence is the pause inserted before and after every clip
const DefaultSilence = 1500 * time.Millisecond

// settings for row narration
type SynthesizeOptions struct {
	SourceLanguage string // ISO 639-1 code
	TargetLanguage string // ISO 639-1 code
	Silence        time.Duration
	OutputDir      string
}

// Synthesizer turns flat rows into narrated audio artifacts
type Synthesizer struct {
	provider Provider
	options  SynthesizeOptions

	// seams for tests: combining and probing shell out to ffmpeg
	combine func(clipPaths []string, silence time.Duration, outPath string) error
	probe   func(path string) (time.Duration, error)
}

func NewSynthesizer(provider Provider, opts SynthesizeOptions) *Synthesizer {
	if opts.Silence <= 0 {
		opts.Silence = DefaultSilence
	}
	return &Synthesizer{
		provider: provider,
		options:  opts,
		combine:  combineClips,
		probe:    GetDuration,
	}
}

// SynthesizeRow narrates one row in every ordering of the mode.
// Each ordering yields one artifact: the four fields are synthesized
// standalone, padded with silence on both sides, and concatenated.
func (s *Synthesizer) SynthesizeRow(
	ctx context.Context,
	row sentence.FlatRow,
	mode Mode,
) ([]Artifact, error) {
	if err := os.MkdirAll(s.options.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var artifacts []Artifact
	for _, order := range mode.Orderings() {
		artifact, err := s.synthesizeOrdering(ctx, row, order)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}

func (s *Synthesizer) synthesizeOrdering(
	ctx context.Context,
	row sentence.FlatRow,
	order Ordering,
) (Artifact, error) {
	clipDir, err := os.MkdirTemp("", "wortklang-clips-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create clip directory: %w", err)
	}
	defer os.RemoveAll(clipDir)

	fields := order.Fields(
		row,
		s.options.SourceLanguage,
		s.options.TargetLanguage,
	)

	clipPaths := make([]string, 0, len(fields))
	for i, field := range fields {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}

		clipPath := filepath.Join(clipDir, fmt.Sprintf("clip_%d.mp3", i))
		if err := s.provider.Synthesize(
			ctx,
			field.Text,
			field.Language,
			clipPath,
		); err != nil {
			return Artifact{}, &SynthesisError{
				Seq:   row.Seq,
				Word:  row.TargetWord,
				Field: field.Name,
				Err:   err,
			}
		}
		clipPaths = append(clipPaths, clipPath)
	}

	outPath := filepath.Join(s.options.OutputDir, ArtifactName(row.Seq, order))
	if err := s.combine(clipPaths, s.options.Silence, outPath); err != nil {
		return Artifact{}, &SynthesisError{
			Seq:   row.Seq,
			Word:  row.TargetWord,
			Field: "combine",
			Err:   err,
		}
	}

	duration, err := s.probe(outPath)
	if err != nil {
		return Artifact{}, &SynthesisError{
			Seq:   row.Seq,
			Word:  row.TargetWord,
			Field: "probe",
			Err:   err,
		}
	}

	return Artifact{
		Seq:      row.Seq,
		Order:    order,
		Path:     outPath,
		Duration: duration,
	}, nil
}

// pads every clip with silence on both sides and concatenates them
// into a single mp3
func combineClips(
	clipPaths []string,
	silence time.Duration,
	outPath string,
) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to combine")
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	delayMs := silence.Milliseconds()
	padSeconds := fmt.Sprintf("%.3f", silence.Seconds())

	padded := make([]*ffmpeg.Stream, 0, len(clipPaths))
	for _, clipPath := range clipPaths {
		stream := ffmpeg.Input(clipPath).Audio().
			Filter("adelay", ffmpeg.Args{
				fmt.Sprintf("%d|%d", delayMs, delayMs),
			}).
			Filter("apad", ffmpeg.Args{}, ffmpeg.KwArgs{
				"pad_dur": padSeconds,
			})
		padded = append(padded, stream)
	}

	err = ffmpeg.Concat(padded, ffmpeg.KwArgs{"v": 0, "a": 1}).
		Output(outPath, ffmpeg.KwArgs{"acodec": "libmp3lame"}).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("failed to combine clips: %w", err)
	}

	return nil
}

// converts a wav clip to mp3, used by the espeak provider
func convertToMP3(wavPath, mp3Path string) error {
	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	err = ffmpeg.Input(wavPath).
		Output(mp3Path, ffmpeg.KwArgs{"acodec": "libmp3lame"}).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("failed to convert wav to mp3: %w", err)
	}
	return nil
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// duration of an audio/video file
func GetDuration(filePath string) (time.Duration, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return 0, fmt.Errorf("file not found: %s", filePath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var seconds float64
	if _, err := fmt.Sscanf(probe.Format.Duration, "%f", &seconds); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// FindArtifact returns the artifact path for a row and ordering,
// failing if the file does not exist in dir
func FindArtifact(dir string, seq int, order Ordering) (string, error) {
	path := filepath.Join(dir, ArtifactName(seq, order))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf(
			"audio artifact not found: %s (run synthesize first)",
			path,
		)
	}
	return path, nil
}
