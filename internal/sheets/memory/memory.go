// Package memory is an in-process spreadsheet source for local runs and
// tests. Ranges are looked up verbatim.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nudgify/internal/ingest"
	ports "nudgify/internal/sheets"
)

var _ ports.TableReader = (*Store)(nil)

type Store struct {
	mu           sync.Mutex
	defaultID    string
	defaultRange string
	sheets       map[string][][]any
}

func New(defaultID, defaultRange string) *Store {
	return &Store{defaultID: defaultID, defaultRange: defaultRange, sheets: map[string][][]any{}}
}

// Put stores a value matrix whose first row is the header.
func (s *Store) Put(spreadsheetID, rng string, values [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[key(spreadsheetID, rng)] = values
}

// ReadTable returns the stored matrix as a table.
func (s *Store) ReadTable(ctx context.Context, spreadsheetID, rng string) (ingest.Table, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Table{}, err
	}
	if spreadsheetID == "" {
		spreadsheetID = s.defaultID
	}
	if spreadsheetID == "" {
		return ingest.Table{}, ports.ErrMissingSpreadsheet
	}
	if rng == "" {
		rng = s.defaultRange
	}
	s.mu.Lock()
	values, ok := s.sheets[key(spreadsheetID, rng)]
	s.mu.Unlock()
	if !ok {
		return ingest.Table{}, fmt.Errorf("range %s not found in spreadsheet %s", rng, spreadsheetID)
	}
	return ingest.FromValues(values), nil
}

// LoadDir seeds the store from every *.csv file in dir. Each file becomes the
// default range of a spreadsheet named after the file, so statement.csv is
// read with spreadsheet id "statement". A missing directory loads nothing.
func (s *Store) LoadDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return 0, err
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", path, err)
		}
		t, err := ingest.ReadCSV(f)
		f.Close()
		if err != nil {
			return 0, fmt.Errorf("load %s: %w", path, err)
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s.Put(id, s.defaultRange, tableValues(t))
	}
	return len(paths), nil
}

func tableValues(t ingest.Table) [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	values = append(values, header)
	for _, row := range t.Rows {
		rec := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = row[c]
		}
		values = append(values, rec)
	}
	return values
}

func key(id, rng string) string {
	return id + "\x00" + rng
}
