package sentence

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var tableHeader = []string{
	"source_word",
	"target_word",
	"source_sentence",
	"target_sentence",
}

// WriteTable writes the flat table as UTF-8 CSV, one row per meaning.
// The column names match the generation wire schema.
func WriteTable(rows []FlatRow, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tableHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.SourceWord,
			row.TargetWord,
			row.SourceSentence,
			row.TargetSentence,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.Seq, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

// ReadTable reads a flat table back; Seq is the 0-based row position
func ReadTable(path string) ([]FlatRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table file %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < len(tableHeader) {
		return nil, fmt.Errorf(
			"table file %s has %d columns, expected %v",
			path,
			len(header),
			tableHeader,
		)
	}
	for i, want := range tableHeader {
		if header[i] != want {
			return nil, fmt.Errorf(
				"table file %s column %d is %q, expected %q",
				path,
				i,
				header[i],
				want,
			)
		}
	}

	var rows []FlatRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows), err)
		}

		rows = append(rows, FlatRow{
			Seq:            len(rows),
			SourceWord:     record[0],
			TargetWord:     record[1],
			SourceSentence: record[2],
			TargetSentence: record[3],
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("table file %s has no rows", path)
	}

	return rows, nil
}
