package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_AppendCreatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	writer := NewCSVWriter(path, []string{"UID", "Product Name", "Score"}, zerolog.Nop())

	err := writer.Append([][]string{
		{"u1", "Heinz Baked Beans", "100.0"},
		{"u2", "Milk 2L", "87.3"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "UID,Product Name,Score\nu1,Heinz Baked Beans,100.0\nu2,Milk 2L,87.3\n", string(data))
}

func TestCSVWriter_AppendDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	writer := NewCSVWriter(path, []string{"UID", "Name"}, zerolog.Nop())

	require.NoError(t, writer.Append([][]string{{"u1", "first"}}))
	require.NoError(t, writer.Append([][]string{{"u2", "second"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "UID,Name\nu1,first\nu2,second\n", string(data))
}

func TestCSVWriter_RejectsMismatchedRowWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	writer := NewCSVWriter(path, []string{"UID", "Name"}, zerolog.Nop())

	err := writer.Append([][]string{{"u1", "name", "extra"}})
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be created for a rejected row")
}

func TestCSVWriter_ProcessedUIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	writer := NewCSVWriter(path, []string{"UID", "Name"}, zerolog.Nop())

	require.NoError(t, writer.Append([][]string{{"u1", "first"}, {"u2", "second"}}))

	processed, err := writer.ProcessedUIDs()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, processed)
}

func TestCSVWriter_ProcessedUIDsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-written.csv")
	writer := NewCSVWriter(path, []string{"UID", "Name"}, zerolog.Nop())

	processed, err := writer.ProcessedUIDs()
	require.NoError(t, err)
	assert.Empty(t, processed)
}

func TestIsFileLocked(t *testing.T) {
	assert.True(t, isFileLocked(os.ErrPermission))
	assert.False(t, isFileLocked(os.ErrNotExist))
	assert.False(t, isFileLocked(nil))
}
