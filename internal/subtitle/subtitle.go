package subtitle

import (
	"fmt"
	"time"
)

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSRT, FormatVTT:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q: use srt or vtt", s)
	}
}

// interface for writing subtitles to files
type Writer interface {
	Write(subtitle *Subtitle, path string) error
}
