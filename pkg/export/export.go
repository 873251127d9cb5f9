// Package export renders tabular datasets into downloadable documents.
package export

import (
	"fmt"
	"strings"
)

// Format identifies an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises user input, defaulting to CSV when empty.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Document is a rendered export ready to stream.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Renderer dispatches datasets to the exporter for each format.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

// NewRenderer builds a renderer with the default exporters.
func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render encodes the dataset and names the file after base.
func (r *Renderer) Render(format Format, base string, data Dataset) (*Document, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case FormatCSV:
		body, err = r.csv.Render(data)
	case FormatPDF:
		body, err = r.pdf.Render(data)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("%s.%s", SanitizeFilename(base), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// SanitizeFilename strips path separators and spaces from a file stem.
func SanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "export"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(strings.TrimSpace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
