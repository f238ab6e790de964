// Package export renders tabular reports as CSV or PDF.
package export

import (
	"fmt"
	"strings"
)

// Supported formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// Table is one titled grid of string cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Report is an ordered set of tables.
type Report struct {
	Title  string
	Tables []Table
}

// Renderer turns a report into bytes.
type Renderer interface {
	Render(report Report) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for a format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return CSVRenderer{}, nil
	case FormatPDF:
		return PDFRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func validate(report Report) error {
	if len(report.Tables) == 0 {
		return fmt.Errorf("report %q has no tables", report.Title)
	}
	for _, t := range report.Tables {
		if len(t.Headers) == 0 {
			return fmt.Errorf("table %q requires at least one header", t.Title)
		}
	}
	return nil
}
