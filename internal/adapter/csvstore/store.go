// Package csvstore reads and writes the catalog file in standard CSV.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/layer-catalog-service/internal/domain"
)

// Store is a catalog file on disk.
type Store struct {
	path string
}

// New creates a store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

// Read returns the header row and the records. A missing or empty file yields
// no headers and no records.
func (s *Store) Read() ([]string, []domain.Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog header: %w", err)
	}

	var records []domain.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read catalog row: %w", err)
		}
		rec := make(domain.Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return headers, records, nil
}

// Write replaces the file with headers and records. The directory is created
// if needed and the file is swapped in with a rename.
func (s *Store) Write(headers []string, records []domain.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(headers); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(headers))
	for _, rec := range records {
		for i, h := range headers {
			row[i] = rec[h]
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row %s: %w", rec[domain.FieldID], err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
