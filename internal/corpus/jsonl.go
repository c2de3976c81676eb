// Package corpus reads and writes the JSONL card corpus files produced by
// the scrape and tag pipelines.
package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/risulab/cardsearch/internal/domain"
)

// Scanner buffer cap. Card descriptions can run long but not unbounded.
const maxLineBytes = 4 << 20

// Read loads a JSONL corpus file, deduplicating by uuid with the last
// record winning: append-style resume files rewrite earlier entries.
// Malformed lines are skipped, not fatal. A missing file is an empty corpus.
func Read(path string) ([]domain.TaggedCharacter, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	byUUID := make(map[string]int)
	var records []domain.TaggedCharacter

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.TaggedCharacter
		if err := json.Unmarshal(line, &rec); err != nil || rec.UUID == "" {
			continue
		}
		if i, seen := byUUID[rec.UUID]; seen {
			records[i] = rec
			continue
		}
		byUUID[rec.UUID] = len(records)
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return records, nil
}

// Write replaces the corpus file atomically: write to a temp file in the
// same directory, then rename over the target.
func Write(path string, records []domain.TaggedCharacter) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp corpus: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			tmp.Close()
			return fmt.Errorf("encode corpus record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp corpus: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace corpus %s: %w", path, err)
	}
	return nil
}

// Appender appends records to a corpus file, one JSON object per line.
// Used by the tagging pipeline for crash-resumable progress.
type Appender struct {
	f *os.File
	w *bufio.Writer
}

// OpenAppend opens (or creates) a corpus file for appending.
func OpenAppend(path string) (*Appender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create corpus dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s for append: %w", path, err)
	}
	return &Appender{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one record and flushes it, so a crash loses at most the
// record being written.
func (a *Appender) Append(rec *domain.TaggedCharacter) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode corpus record: %w", err)
	}
	data = append(data, '\n')
	if _, err := a.w.Write(data); err != nil {
		return fmt.Errorf("append corpus record: %w", err)
	}
	if err := a.w.Flush(); err != nil {
		return fmt.Errorf("flush corpus record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (a *Appender) Close() error {
	if err := a.w.Flush(); err != nil {
		a.f.Close()
		return fmt.Errorf("flush corpus: %w", err)
	}
	if err := a.f.Close(); err != nil {
		return fmt.Errorf("close corpus: %w", err)
	}
	return nil
}
