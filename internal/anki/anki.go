// Package anki exports the flat sentence table as an Anki deck.
//
// An .apkg file is a zip archive holding an SQLite collection
// (collection.anki2), numbered media files, and a JSON map from media
// number to original file name. One note is written per flat row,
// with forward and reverse cards.
package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tbuchert/wortklang/internal/audio"
	"github.com/tbuchert/wortklang/internal/sentence"
)

// Note is one flashcard note built from a flat row
type Note struct {
	Seq            int
	TargetWord     string
	SourceWord     string
	TargetSentence string
	SourceSentence string
	AudioPath      string // optional narration attachment
}

// NotesFromRows pairs rows with their narration artifacts. Rows
// without an artifact still become notes, just without sound.
func NotesFromRows(rows []sentence.FlatRow, artifacts []audio.Artifact) []Note {
	audioBySeq := make(map[int]string)
	for _, artifact := range artifacts {
		// forward narration only; the reverse ordering adds nothing
		// to a flashcard
		if artifact.Order == audio.OrderSourceTarget {
			audioBySeq[artifact.Seq] = artifact.Path
		}
	}

	notes := make([]Note, len(rows))
	for i, row := range rows {
		notes[i] = Note{
			Seq:            row.Seq,
			TargetWord:     row.TargetWord,
			SourceWord:     row.SourceWord,
			TargetSentence: row.TargetSentence,
			SourceSentence: row.SourceSentence,
			AudioPath:      audioBySeq[row.Seq],
		}
	}
	return notes
}

// Exporter builds .apkg files
type Exporter struct {
	deckName     string
	deckID       int64
	modelID      int64
	mediaFiles   map[string]int
	mediaCounter int
}

func NewExporter(deckName string) *Exporter {
	if deckName == "" {
		deckName = "Vocabulary"
	}
	// timestamp-derived IDs keep repeated exports distinct
	now := time.Now().UnixMilli()
	return &Exporter{
		deckName:   deckName,
		deckID:     now,
		modelID:    now + 1,
		mediaFiles: make(map[string]int),
	}
}

// Export writes the deck to outPath
func (e *Exporter) Export(notes []Note, outPath string) error {
	if len(notes) == 0 {
		return fmt.Errorf("no notes to export")
	}

	tempDir, err := os.MkdirTemp("", "wortklang-anki-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// media first: the note fields reference the collected file names
	if err := e.collectMedia(notes, tempDir); err != nil {
		return fmt.Errorf("failed to collect media: %w", err)
	}
	if err := e.writeMediaMap(tempDir); err != nil {
		return fmt.Errorf("failed to write media map: %w", err)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := e.writeCollection(dbPath, notes); err != nil {
		return fmt.Errorf("failed to build collection: %w", err)
	}

	if err := zipDirectory(tempDir, outPath); err != nil {
		return fmt.Errorf("failed to package deck: %w", err)
	}
	return nil
}

func (e *Exporter) collectMedia(notes []Note, tempDir string) error {
	for _, note := range notes {
		if note.AudioPath == "" {
			continue
		}
		if _, err := os.Stat(note.AudioPath); err != nil {
			return fmt.Errorf("audio file for row %d not found: %w", note.Seq, err)
		}

		name := mediaName(note)
		if _, exists := e.mediaFiles[name]; exists {
			continue
		}

		target := filepath.Join(tempDir, fmt.Sprintf("%d", e.mediaCounter))
		if err := copyFile(note.AudioPath, target); err != nil {
			return err
		}
		e.mediaFiles[name] = e.mediaCounter
		e.mediaCounter++
	}
	return nil
}

// mediaName keys attachments by row sequence so meanings of the same
// word never collide
func mediaName(note Note) string {
	return fmt.Sprintf("row%d_%s", note.Seq, filepath.Base(note.AudioPath))
}

func (e *Exporter) writeMediaMap(tempDir string) error {
	mapping := make(map[string]string, len(e.mediaFiles))
	for name, num := range e.mediaFiles {
		mapping[fmt.Sprintf("%d", num)] = name
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func (e *Exporter) writeCollection(dbPath string, notes []Note) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		return err
	}
	if err := e.insertCollectionRow(db); err != nil {
		return err
	}
	return e.insertNotes(db, notes)
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE revlog (
			id integer PRIMARY KEY,
			cid integer NOT NULL,
			usn integer NOT NULL,
			ease integer NOT NULL,
			ivl integer NOT NULL,
			lastIvl integer NOT NULL,
			factor integer NOT NULL,
			time integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE TABLE graves (
			usn integer NOT NULL,
			oid integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_usn ON cards (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
		`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
		`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
		`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (e *Exporter) insertCollectionRow(db *sql.DB) error {
	now := time.Now().Unix()

	decks := map[string]interface{}{
		"1": deckConfig(1, "Default", now),
		fmt.Sprintf("%d", e.deckID): deckConfig(e.deckID, e.deckName, now),
	}
	decksJSON, _ := json.Marshal(decks)

	models := map[string]interface{}{
		fmt.Sprintf("%d", e.modelID): e.noteType(),
	}
	modelsJSON, _ := json.Marshal(models)

	conf := map[string]interface{}{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      fmt.Sprintf("%d", e.modelID),
		"dayLearnFirst": false,
	}
	confJSON, _ := json.Marshal(conf)

	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]interface{}{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]interface{}{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}
	dconfJSON, _ := json.Marshal(dconf)

	_, err := db.Exec(
		`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1, now, now*1000, now*1000, 11, 0, 0, 0,
		string(confJSON), string(modelsJSON), string(decksJSON), string(dconfJSON), "{}",
	)
	return err
}

func deckConfig(id int64, name string, now int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"name":             name,
		"mod":              now,
		"desc":             "",
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

// note fields, in field separator order
var noteFields = []string{
	"TargetWord",
	"SourceWord",
	"TargetSentence",
	"SourceSentence",
	"Audio",
}

func (e *Exporter) noteType() map[string]interface{} {
	flds := make([]map[string]interface{}, len(noteFields))
	for i, name := range noteFields {
		flds[i] = map[string]interface{}{
			"name":   name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []string{},
		}
	}

	return map[string]interface{}{
		"id":    e.modelID,
		"name":  "Vocabulary sentence (forward + reverse)",
		"type":  0,
		"mod":   time.Now().Unix(),
		"usn":   -1,
		"sortf": 0,
		"did":   e.deckID,
		"req": [][]interface{}{
			{0, "all", []int{0}},
			{1, "all", []int{1}},
		},
		"vers":      []int{},
		"tags":      []string{},
		"latexPre":  "",
		"latexPost": "",
		"flds":      flds,
		"tmpls": []map[string]interface{}{
			{
				"name": "Forward",
				"ord":  0,
				"qfmt": `<div class="word">{{TargetWord}}</div>
<div class="sentence">{{TargetSentence}}</div>`,
				"afmt": `{{FrontSide}}

<hr id="answer">

<div class="word">{{SourceWord}}</div>
<div class="sentence">{{SourceSentence}}</div>
{{#Audio}}<div class="audio">{{Audio}}</div>{{/Audio}}`,
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
			{
				"name": "Reverse",
				"ord":  1,
				"qfmt": `<div class="word">{{SourceWord}}</div>
<div class="sentence">{{SourceSentence}}</div>`,
				"afmt": `{{FrontSide}}

<hr id="answer">

<div class="word">{{TargetWord}}</div>
<div class="sentence">{{TargetSentence}}</div>
{{#Audio}}<div class="audio">{{Audio}}</div>{{/Audio}}`,
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
		},
		"css": noteCSS,
	}
}

const noteCSS = `.card {
  font-family: Arial, sans-serif;
  font-size: 20px;
  text-align: center;
  color: #333;
  background-color: white;
}

.word {
  font-size: 32px;
  font-weight: bold;
  margin: 20px 0;
}

.sentence {
  font-size: 22px;
  margin: 10px 0;
}

.audio {
  margin: 15px 0;
}`

func (e *Exporter) insertNotes(db *sql.DB, notes []Note) error {
	now := time.Now()

	for i, note := range notes {
		// three IDs per note: the note itself and its two cards
		noteID := now.UnixMilli() + int64(i*3)
		forwardID := noteID + 1
		reverseID := noteID + 2

		audioField := ""
		if note.AudioPath != "" {
			name := mediaName(note)
			if _, ok := e.mediaFiles[name]; ok {
				audioField = fmt.Sprintf("[sound:%s]", name)
			}
		}

		fields := strings.Join([]string{
			note.TargetWord,
			note.SourceWord,
			note.TargetSentence,
			note.SourceSentence,
			audioField,
		}, "\x1f")

		guid := fmt.Sprintf("wk_%d_%d", now.Unix(), note.Seq)

		_, err := db.Exec(
			`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			noteID, guid, e.modelID, now.Unix(), -1, "",
			fields, note.TargetWord, 0, 0, "",
		)
		if err != nil {
			return fmt.Errorf("failed to insert note for row %d: %w", note.Seq, err)
		}

		cardQuery := `INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		for ord, cardID := range []int64{forwardID, reverseID} {
			_, err = db.Exec(cardQuery,
				cardID, noteID, e.deckID, ord, now.Unix(), -1,
				0, 0, cardID, 0, 0, 0, 0, 0, 0, 0, 0, "",
			)
			if err != nil {
				return fmt.Errorf("failed to insert card for row %d: %w", note.Seq, err)
			}
		}
	}

	return nil
}

func zipDirectory(dir, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	archive := zip.NewWriter(out)
	defer archive.Close()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		writer, err := archive.Create(relPath)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(writer, f)
		return err
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
