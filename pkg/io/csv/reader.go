// Package csv provides a CSV-backed signal source: one scalar sample per
// row, taken from a chosen column.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
)

// Reader reads a scalar series from a CSV file. Rows whose chosen column is
// missing or not numeric are skipped, so one malformed row cannot stop the
// stream.
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	column    int
	hasHeader bool
	headers   []string
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithColumn selects which column holds the sample values. Defaults to the
// first column.
func WithColumn(col int) Option {
	return func(r *Reader) {
		r.column = col
	}
}

// NewReader creates a new CSV reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:      file,
		reader:    csv.NewReader(file),
		hasHeader: true,
	}
	r.reader.FieldsPerRecord = -1

	for _, opt := range opts {
		opt(r)
	}

	if r.column < 0 {
		file.Close()
		return nil, errors.New("column must be non-negative")
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, err
		}
		r.headers = headers
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns the remaining samples of the series.
func (r *Reader) Read() ([]float64, error) {
	var data []float64

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		v, err := r.parseRow(record)
		if err != nil {
			continue // Skip malformed rows
		}
		data = append(data, v)
	}

	return data, nil
}

// Stream returns a channel of samples for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan float64, error) {
	out := make(chan float64, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}

				v, err := r.parseRow(record)
				if err != nil {
					continue
				}

				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// parseRow extracts the sample value from a record.
func (r *Reader) parseRow(record []string) (float64, error) {
	if r.column >= len(record) {
		return 0, errors.New("row has too few columns")
	}
	return strconv.ParseFloat(record[r.column], 64)
}
