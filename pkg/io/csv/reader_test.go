package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRead(t *testing.T) {
	path := writeTempCSV(t, "ts,value\n1,50.5\n2,51\n3,49.8\n")

	r, err := NewReader(path, WithColumn(1))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"ts", "value"}, r.Headers())

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{50.5, 51, 49.8}, data)
}

func TestReadNoHeader(t *testing.T) {
	path := writeTempCSV(t, "10\n11\n12\n")

	r, err := NewReader(path, WithHeader(false))
	require.NoError(t, err)
	defer r.Close()

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12}, data)
}

func TestSkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "value\n50\nnot-a-number\n51\n\n52\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 51, 52}, data)
}

func TestStream(t *testing.T) {
	path := writeTempCSV(t, "value\n1\n2\n3\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	stream, err := r.Stream(context.Background())
	require.NoError(t, err)

	var got []float64
	for v := range stream {
		got = append(got, v)
	}
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestNegativeColumn(t *testing.T) {
	path := writeTempCSV(t, "value\n1\n")

	_, err := NewReader(path, WithColumn(-1))
	assert.Error(t, err)
}
