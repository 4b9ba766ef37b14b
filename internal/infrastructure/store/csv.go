// Package store provides the checkpointed CSV persistence used by the
// batch flows: append-only result tables, the category mapping table, and
// the loyalty-export input reader.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CSVWriter appends fixed-width rows to an output table, creating the file
// with a header row on first write. A file locked by another process (the
// operator reviewing the output in a spreadsheet is the common case) is
// retried indefinitely on a fixed interval rather than failed.
type CSVWriter struct {
	path          string
	columns       []string
	retryInterval time.Duration
	logger        zerolog.Logger

	mu sync.Mutex
}

// NewCSVWriter creates a writer for the given output path and column set.
func NewCSVWriter(path string, columns []string, logger zerolog.Logger) *CSVWriter {
	return &CSVWriter{
		path:          path,
		columns:       columns,
		retryInterval: 10 * time.Second,
		logger:        logger.With().Str("component", "store").Str("file", path).Logger(),
	}
}

// Append writes the rows, waiting out any file lock. Each row must have
// exactly one value per column.
func (w *CSVWriter) Append(rows [][]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, row := range rows {
		if len(row) != len(w.columns) {
			return fmt.Errorf("row has %d values, table has %d columns", len(row), len(w.columns))
		}
	}

	for {
		err := w.appendOnce(rows)
		if err == nil {
			return nil
		}
		if !isFileLocked(err) {
			return err
		}
		w.logger.Warn().Dur("retry_in", w.retryInterval).
			Msg("output file is locked, waiting for it to clear")
		time.Sleep(w.retryInterval)
	}
}

func (w *CSVWriter) appendOnce(rows [][]string) error {
	_, statErr := os.Stat(w.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if writeHeader {
		if err := writer.Write(w.columns); err != nil {
			return err
		}
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// ProcessedUIDs reads back the table's first column so already-written rows
// can be skipped on a rerun. A missing file yields an empty set.
func (w *CSVWriter) ProcessedUIDs() (map[string]bool, error) {
	f, err := os.Open(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.path, err)
	}

	processed := make(map[string]bool)
	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue // header
		}
		processed[record[0]] = true
	}
	return processed, nil
}

// isFileLocked reports whether the write failed because another process
// holds the file open exclusively.
func isFileLocked(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
