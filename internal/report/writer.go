// Package report defines the ReportWriter interface shared by the output
// renderers and a registry for looking them up by format name.
package report

import (
	"resell-reports/internal/model"
)

// ReportWriter renders report data into one output format.
type ReportWriter interface {
	// Render builds the document in memory.
	Render(data *model.ReportData) ([]byte, error)

	// Write builds the document and saves it to outputPath. The extension
	// is appended when missing.
	Write(data *model.ReportData, outputPath string) error

	// Format returns the format identifier for this writer.
	// Common values are "excel" and "html".
	Format() string

	// Extension returns the file extension including the dot.
	Extension() string

	// ContentType returns the MIME type of rendered documents.
	ContentType() string
}
