// Package report turns merged sample metrics into the host removal table.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hostmetrics/internal/extract"
	"hostmetrics/internal/types"
)

// Mode selects the header variant.
type Mode int

const (
	PairedEnd Mode = iota
	SingleEnd
)

// ModeFor returns SingleEnd when singleEnd is set.
func ModeFor(singleEnd bool) Mode {
	if singleEnd {
		return SingleEnd
	}
	return PairedEnd
}

func (m Mode) String() string {
	if m == SingleEnd {
		return "single-end"
	}
	return "paired-end"
}

// Header returns the column names for the mode.
func (m Mode) Header() []string {
	if m == SingleEnd {
		return []string{"Sample", "SE reads not mapped (kept)", "SE reads mapped (discarded)"}
	}
	return []string{
		"Sample",
		"PE reads not mapped concordantly (kept)",
		"PE reads mapped concordantly (discarded)",
	}
}

// Columns names the labels feeding the kept and discarded columns.
type Columns struct {
	Kept      string
	Discarded []string
}

// FieldError reports a sample whose fields cannot fill a column.
type FieldError struct {
	Sample string
	Label  string
	// Line is the report line of the offending value, 0 for a missing field.
	Line int
	Err  error
}

func (e *FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("sample %s: field %q (line %d): %v", e.Sample, e.Label, e.Line, e.Err)
	}
	return fmt.Sprintf("sample %s: field %q: %v", e.Sample, e.Label, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ErrMissingField is wrapped by FieldError when a label was never extracted.
var ErrMissingField = errors.New("field missing")

// Row is one output line.
type Row struct {
	Sample    string
	Kept      string
	Discarded string
}

// Table is the finished output table.
type Table struct {
	Header []string
	Rows   []Row
}

// Build derives the table from m, one row per sample sorted by sample name.
// Every sample must carry the kept label as a scalar and every discarded
// label as a number.
func Build(m extract.Metrics, mode Mode, cols Columns) (*Table, error) {
	t := &Table{Header: mode.Header()}
	for _, sample := range m.Samples() {
		fields := m[sample]

		kept, ok := fields[cols.Kept]
		if !ok {
			return nil, &FieldError{Sample: sample, Label: cols.Kept, Err: ErrMissingField}
		}
		keptText, ok := kept.Text()
		if !ok {
			return nil, &FieldError{Sample: sample, Label: cols.Kept, Line: kept.Line(), Err: errors.New("value is not a scalar")}
		}

		var sum types.Number
		for _, label := range cols.Discarded {
			v, ok := fields[label]
			if !ok {
				return nil, &FieldError{Sample: sample, Label: label, Err: ErrMissingField}
			}
			n, err := v.Number()
			if err != nil {
				return nil, &FieldError{Sample: sample, Label: label, Line: v.Line(), Err: err}
			}
			sum = sum.Add(n)
		}

		t.Rows = append(t.Rows, Row{Sample: sample, Kept: keptText, Discarded: sum.String()})
	}
	return t, nil
}

// WriteTo writes the table as tab-separated lines, header first.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(t.Header, "\t"))
	buf.WriteByte('\n')
	for _, r := range t.Rows {
		buf.WriteString(r.Sample)
		buf.WriteByte('\t')
		buf.WriteString(r.Kept)
		buf.WriteByte('\t')
		buf.WriteString(r.Discarded)
		buf.WriteByte('\n')
	}
	return buf.WriteTo(w)
}

// EnsureDir creates the parent directory of path. An existing directory is
// fine; a bare file name needs nothing.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteFile writes the table to path, creating the parent directory.
func WriteFile(path string, t *Table) (err error) {
	if err := EnsureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if _, err := t.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
