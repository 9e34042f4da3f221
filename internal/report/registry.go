package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"resell-reports/internal/report/excel"
	"resell-reports/internal/report/html"
)

// Options configures the writers created by NewRegistry.
type Options struct {
	Timezone       *time.Location
	CurrencySymbol string
	// PrintTemplate optionally overrides the embedded print template.
	PrintTemplate string
	// PrintMaxRows caps the rows listed in print documents.
	PrintMaxRows int
}

// Registry manages report writers for different formats.
type Registry struct {
	writers map[string]ReportWriter
}

// NewRegistry creates a new report registry with pre-registered Excel and HTML writers.
// A nil timezone defaults to UTC.
func NewRegistry(opts Options) *Registry {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}

	excelWriter := excel.NewWriter(opts.Timezone, opts.CurrencySymbol)
	htmlWriter := html.NewWriter(opts.Timezone, opts.CurrencySymbol, opts.PrintTemplate, opts.PrintMaxRows)

	r := &Registry{
		writers: make(map[string]ReportWriter),
	}

	// Register writers using their Format() return values
	r.writers[excelWriter.Format()] = excelWriter
	r.writers[htmlWriter.Format()] = htmlWriter

	return r
}

// Get returns a writer for the specified format.
// Format names are case-insensitive (e.g., "Excel", "EXCEL", "excel" all work).
// Returns an error if the format is not supported.
func (r *Registry) Get(format string) (ReportWriter, error) {
	normalizedFormat := strings.ToLower(strings.TrimSpace(format))

	writer, ok := r.writers[normalizedFormat]
	if !ok {
		supported := r.GetAll()
		return nil, fmt.Errorf("unsupported report format %q, supported formats: %s",
			format, strings.Join(supported, ", "))
	}

	return writer, nil
}

// GetAll returns all supported format names in sorted order.
func (r *Registry) GetAll() []string {
	formats := make([]string, 0, len(r.writers))
	for format := range r.writers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Has checks if the specified format is supported.
// Format names are case-insensitive.
func (r *Registry) Has(format string) bool {
	normalizedFormat := strings.ToLower(strings.TrimSpace(format))
	_, ok := r.writers[normalizedFormat]
	return ok
}
