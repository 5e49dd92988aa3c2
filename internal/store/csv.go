package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

const utf8BOM = "\ufeff"

// CSVStore keeps a source's history in a UTF-8 CSV file.
//
// Persist rewrites the file through a temporary file and an atomic rename.
// The bytes of existing rows are copied as they are, new rows are appended
// in the column order of the existing header.
type CSVStore struct {
	path   string
	logger zerolog.Logger
}

// NewCSV creates a new CSVStore for the file at path.
func NewCSV(path string, logger zerolog.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: logger.With().Str("component", "store").Str("path", path).Logger(),
	}
}

// Load reads the file. A missing file yields an empty snapshot.
func (s *CSVStore) Load(_ context.Context) (*Snapshot, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", s.path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if err := CheckHeader(header); err != nil {
		return nil, fmt.Errorf("checking header of %s: %w", s.path, err)
	}

	snapshot := &Snapshot{Header: header}
	unparseable := 0
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		record, ok := ParseRow(header, fields)
		if !ok {
			unparseable++
		}
		snapshot.Rows = append(snapshot.Rows, Row{Fields: fields, Record: record, OK: ok})
	}

	s.logger.Debug().
		Int("rows", snapshot.Len()).
		Int("unparseable", unparseable).
		Msg("loaded store")

	return snapshot, nil
}

// Persist writes the rows of next that were added in this run.
// Nothing is written when added is empty.
func (s *CSVStore) Persist(_ context.Context, next *Snapshot, added []models.PriceRecord) error {
	if len(added) == 0 {
		s.logger.Debug().Msg("nothing added, store left untouched")
		return nil
	}
	if err := CheckHeader(next.Header); err != nil {
		return fmt.Errorf("checking header of %s: %w", s.path, err)
	}
	if len(added) > len(next.Rows) {
		return fmt.Errorf("snapshot has %d rows, fewer than the %d added", len(next.Rows), len(added))
	}

	existing, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}

	w := csv.NewWriter(&buf)
	if len(bytes.TrimSpace(existing)) == 0 {
		buf.Reset()
		if err := w.Write(next.Header); err != nil {
			return fmt.Errorf("encoding header: %w", err)
		}
	}
	for _, row := range next.Rows[len(next.Rows)-len(added):] {
		if err := w.Write(row.Fields); err != nil {
			return fmt.Errorf("encoding row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", s.path, err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}

	s.logger.Debug().
		Int("added", len(added)).
		Int("rows", next.Len()).
		Msg("persisted store")

	return nil
}

// Backend returns the backend name.
func (s *CSVStore) Backend() string {
	return "csv"
}

// Ping checks that the directory of the file exists.
func (s *CSVStore) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("checking data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// Close implements Store.
func (s *CSVStore) Close() error {
	return nil
}
