package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// MappingStore persists the category consolidation mapping as a two-column
// `Original,New Category` table. The full mapping is rewritten after every
// confirmed decision so a crash loses at most the in-flight decision.
type MappingStore struct {
	path          string
	retryInterval time.Duration
	logger        zerolog.Logger
}

// NewMappingStore creates a store backed by the given CSV path.
func NewMappingStore(path string, logger zerolog.Logger) *MappingStore {
	return &MappingStore{
		path:          path,
		retryInterval: 10 * time.Second,
		logger:        logger.With().Str("component", "store").Str("file", path).Logger(),
	}
}

// Load reads the persisted mapping. A missing file is an empty mapping,
// not an error, so a fresh session starts cleanly.
func (s *MappingStore) Load() (map[string]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}

	mappings := make(map[string]string)
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue // header
		}
		mappings[record[0]] = record[1]
	}
	return mappings, nil
}

// Save rewrites the whole mapping, waiting out any file lock. Rows are
// written in sorted key order so the file diffs cleanly between sessions.
func (s *MappingStore) Save(mappings map[string]string) error {
	originals := make([]string, 0, len(mappings))
	for original := range mappings {
		originals = append(originals, original)
	}
	sort.Strings(originals)

	for {
		err := s.saveOnce(originals, mappings)
		if err == nil {
			return nil
		}
		if !isFileLocked(err) {
			return err
		}
		s.logger.Warn().Dur("retry_in", s.retryInterval).
			Msg("mapping file is locked, waiting for it to clear")
		time.Sleep(s.retryInterval)
	}
}

// saveOnce writes the mapping to a temp file in the target directory and
// renames it into place, so a crash mid-write never leaves a truncated
// mapping behind.
func (s *MappingStore) saveOnce(originals []string, mappings map[string]string) error {
	f, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := writeMappingRows(f, originals, mappings); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func writeMappingRows(f *os.File, originals []string, mappings map[string]string) error {
	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"Original", "New Category"}); err != nil {
		return err
	}
	for _, original := range originals {
		if err := writer.Write([]string{original, mappings[original]}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
