// Package export writes transaction reports as CSV or PDF.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Report is everything an exporter needs; the summary covers exactly
// the listed transactions.
type Report struct {
	Range        core.DateRange
	Transactions []core.Transaction
	Summary      core.Summary
	Currency     string
	GeneratedAt  time.Time
}

// Exporter writes a report to some destination.
type Exporter interface {
	Export(ctx context.Context, r Report) error
	// Destination names where the report goes, for logs and messages.
	Destination() string
}

// Format is a file export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatPDF:
		return f, nil
	}
	return "", core.Invalid("format", fmt.Sprintf("%q is not csv or pdf", s))
}

// FormatForPath picks the format from the file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatCSV
}

// File exports to a local file, replacing it if present.
type File struct {
	Path   string
	Format Format
}

func NewFile(path string, format Format) *File {
	if format == "" {
		format = FormatForPath(path)
	}
	return &File{Path: path, Format: format}
}

func (f *File) Destination() string { return f.Path }

func (f *File) Export(ctx context.Context, r Report) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return core.ExportFailure(f.Path, err)
		}
	}
	out, err := os.Create(f.Path)
	if err != nil {
		return core.ExportFailure(f.Path, err)
	}

	switch f.Format {
	case FormatPDF:
		err = NewPDF(out).Export(ctx, r)
	default:
		err = NewCSV(out).Export(ctx, r)
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = core.ExportFailure(f.Path, cerr)
	}
	return err
}
