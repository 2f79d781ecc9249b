package vocab

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Source produces vocabulary entries from some backing store.
// Scraping, files, and anything else all sit behind this interface
// so the pipeline never depends on how words were collected.
type Source interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// FileSource reads vocabulary from a delimited text file.
// UTF-16 exports (with BOM) and plain UTF-8 are both accepted.
// The file needs a header row with "word" and "level_type" columns;
// level_type holds combined keys like "a1_verb".
type FileSource struct {
	Path      string
	Delimiter rune // field separator (default comma)
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Delimiter: ','}
}

func (s *FileSource) Fetch(ctx context.Context) ([]Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()

	reader, err := decodeText(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	delimiter := s.Delimiter
	if delimiter == 0 {
		delimiter = ','
	}

	cr := csv.NewReader(reader)
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("vocabulary file %s is empty", s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	wordCol, levelTypeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "word":
			wordCol = i
		case "level_type":
			levelTypeCol = i
		}
	}
	if wordCol < 0 || levelTypeCol < 0 {
		return nil, fmt.Errorf(
			"vocabulary file %s must have 'word' and 'level_type' columns, got %v",
			s.Path,
			header,
		)
	}

	var entries []Entry
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if wordCol >= len(record) || levelTypeCol >= len(record) {
			return nil, fmt.Errorf(
				"line %d has %d fields, expected at least %d",
				line,
				len(record),
				max(wordCol, levelTypeCol)+1,
			)
		}

		word := strings.TrimSpace(record[wordCol])
		if word == "" {
			continue
		}

		level, wordType, err := ParseLevelType(record[levelTypeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d (%q): %w", line, word, err)
		}

		entries = append(entries, Entry{
			Word:  word,
			Type:  wordType,
			Level: level,
		})
	}

	return entries, nil
}

// wraps r with a UTF-16 decoder when a BOM is present, otherwise
// passes UTF-8 through (stripping its BOM if any)
func decodeText(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	bom, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}

	if len(bom) == 2 &&
		((bom[0] == 0xFF && bom[1] == 0xFE) ||
			(bom[0] == 0xFE && bom[1] == 0xFF)) {
		decoder := unicode.UTF16(
			unicode.LittleEndian,
			unicode.UseBOM,
		).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	if utf8bom, err := br.Peek(3); err == nil &&
		utf8bom[0] == 0xEF && utf8bom[1] == 0xBB && utf8bom[2] == 0xBF {
		if _, err := br.Discard(3); err != nil {
			return nil, err
		}
	}

	return br, nil
}
