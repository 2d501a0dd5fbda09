// Package jsonl provides a JSON-lines sink: one classification record per
// line, suitable for piping into downstream tooling or archiving a run.
package jsonl

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	streamio "github.com/hed1ad/streamguard/pkg/io"
)

// Writer writes classification records as JSON lines.
type Writer struct {
	buf    *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewWriter creates a Writer on top of an arbitrary io.Writer.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{
		buf: buf,
		enc: json.NewEncoder(buf),
	}
}

// NewFileWriter creates a Writer that appends to the file at path, creating
// it if needed.
func NewFileWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// Write outputs a single record.
func (w *Writer) Write(rec streamio.Record) error {
	return w.enc.Encode(rec)
}

// Close flushes buffered records and releases the underlying file, if any.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
