// Package output renders CLI results as human-readable text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Format selects the output rendering mode.
type Format string

const (
	// FormatText renders tables and lists for humans.
	FormatText Format = "text"
	// FormatJSON renders machine-readable JSON.
	FormatJSON Format = "json"
)

// Writer renders values in the configured format.
type Writer struct {
	format Format
	out    io.Writer
}

// New creates a writer for the given format, writing to stdout.
func New(format Format) *Writer {
	return NewTo(format, os.Stdout)
}

// NewTo creates a writer for the given format and destination.
func NewTo(format Format, out io.Writer) *Writer {
	if format != FormatJSON {
		format = FormatText
	}
	return &Writer{format: format, out: out}
}

// JSON reports whether the writer renders JSON.
func (w *Writer) JSON() bool {
	return w.format == FormatJSON
}

// Write renders v: pretty JSON in JSON mode, fmt.Sprint otherwise.
func (w *Writer) Write(v any) error {
	if w.format == FormatJSON {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w.out, v)
	return err
}

// Table renders a tab-aligned table in text mode, or rows as JSON objects
// keyed by header in JSON mode.
func (w *Writer) Table(headers []string, rows [][]string) error {
	if w.format == FormatJSON {
		objs := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[strings.ToLower(h)] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		return w.Write(objs)
	}

	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Error renders a structured error payload.
func (w *Writer) Error(err error) error {
	if w.format == FormatJSON {
		return w.Write(map[string]any{"error": err.Error()})
	}
	_, werr := fmt.Fprintf(w.out, "error: %s\n", err.Error())
	return werr
}
