package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// Writer appends TickStats rows to a CSV stream. The header is written
// with the first row.
type Writer struct {
	w             io.Writer
	closer        io.Closer
	headerWritten bool
	rows          int
}

// NewWriter returns a writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Create creates the CSV file at path. An empty path returns a nil
// writer, on which every method is a no-op.
func Create(path string) (*Writer, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry file: %w", err)
	}
	return &Writer{w: f, closer: f}, nil
}

// Write appends one row.
func (w *Writer) Write(s TickStats) error {
	if w == nil {
		return nil
	}
	records := []TickStats{s}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		w.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, w.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written.
func (w *Writer) Rows() int {
	if w == nil {
		return 0
	}
	return w.rows
}

// Close closes the underlying file, if the writer owns one.
func (w *Writer) Close() error {
	if w == nil || w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Read parses rows written by a Writer.
func Read(r io.Reader) ([]TickStats, error) {
	var rows []TickStats
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading telemetry: %w", err)
	}
	return rows, nil
}
