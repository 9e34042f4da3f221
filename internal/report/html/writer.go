// Package html provides the print document renderer. It produces a
// self-contained, print-ready HTML page that opens the print dialog on load.
package html

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resell-reports/internal/model"
	"resell-reports/internal/report/format"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// DefaultMaxRows is the largest number of rows a print document lists.
const DefaultMaxRows = 500

// Writer renders report data as a print document.
type Writer struct {
	timezone       *time.Location
	currencySymbol string
	templatePath   string // User-defined template path (optional)
	maxRows        int
}

// TemplateData holds all data passed to the HTML template.
type TemplateData struct {
	Title          string
	Category       string
	Description    string
	GeneratedAt    string
	FilterSummary  string
	IncludeMetrics bool
	IncludeList    bool
	Metrics        []format.MetricRow
	Columns        []ColumnData
	Rows           [][]CellData
	Totals         []CellData
	Truncated      bool
	ShownRows      int
	TotalRows      int
}

// ColumnData is one table header cell.
type ColumnData struct {
	Label string
	Class string
}

// CellData is one rendered table cell.
type CellData struct {
	Value string
	Class string
}

// NewWriter creates a new print document writer.
// If timezone is nil, it defaults to UTC. If templatePath is empty, the
// embedded default template will be used. maxRows <= 0 means DefaultMaxRows.
func NewWriter(timezone *time.Location, currencySymbol, templatePath string, maxRows int) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	if currencySymbol == "" {
		currencySymbol = format.DefaultCurrencySymbol
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Writer{
		timezone:       timezone,
		currencySymbol: currencySymbol,
		templatePath:   templatePath,
		maxRows:        maxRows,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "html"
}

// Extension returns the file extension of rendered documents.
func (w *Writer) Extension() string {
	return ".html"
}

// ContentType returns the MIME type of rendered documents.
func (w *Writer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render builds the document and returns its bytes.
func (w *Writer) Render(data *model.ReportData) ([]byte, error) {
	if data == nil || data.Meta == nil {
		return nil, fmt.Errorf("%w: report data is nil", model.ErrRender)
	}

	tmpl, err := w.loadTemplate()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load template: %v", model.ErrRender, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, w.prepareTemplateData(data)); err != nil {
		return nil, fmt.Errorf("%w: failed to execute template: %v", model.ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Write builds the document and saves it to outputPath.
func (w *Writer) Write(data *model.ReportData, outputPath string) error {
	// Ensure output path has .html extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = outputPath + ".html"
	}

	content, err := w.Render(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// loadTemplate loads the HTML template.
// It first tries to load a user-defined template, then falls back to the embedded default.
func (w *Writer) loadTemplate() (*template.Template, error) {
	// Try user-defined template first
	if w.templatePath != "" {
		if _, err := os.Stat(w.templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(w.templatePath)).ParseFiles(w.templatePath)
			if err != nil {
				return nil, fmt.Errorf("failed to parse user template: %w", err)
			}
			return tmpl, nil
		}
		// User template not found, fall through to default
	}

	tmpl, err := template.New("print.html").ParseFS(embeddedTemplates, "templates/print.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// prepareTemplateData converts ReportData to TemplateData for template rendering.
func (w *Writer) prepareTemplateData(data *model.ReportData) *TemplateData {
	meta := data.Meta
	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	td := &TemplateData{
		Title:          meta.Title,
		Category:       meta.Category,
		Description:    meta.Description,
		GeneratedAt:    generated.In(w.timezone).Format("2006-01-02 15:04"),
		FilterSummary:  format.FilterSummary(data.Filters),
		IncludeMetrics: data.Options.IncludeMetrics,
		IncludeList:    data.Options.IncludeItemList,
		TotalRows:      len(data.Rows),
	}

	if td.IncludeMetrics {
		td.Metrics = format.MetricRows(meta, data.Metrics, w.currencySymbol)
	}
	if !td.IncludeList {
		return td
	}

	for _, col := range meta.Columns {
		td.Columns = append(td.Columns, ColumnData{Label: col.Label, Class: cellClass(col.Format)})
	}

	rows := data.Rows
	if len(rows) > w.maxRows {
		rows = rows[:w.maxRows]
		td.Truncated = true
	}
	td.ShownRows = len(rows)

	td.Rows = make([][]CellData, 0, len(rows))
	for _, row := range rows {
		cells := make([]CellData, 0, len(meta.Columns))
		for _, col := range meta.Columns {
			cells = append(cells, CellData{
				Value: format.Value(row.Field(col.Key), col.Format, w.currencySymbol),
				Class: cellClass(col.Format),
			})
		}
		td.Rows = append(td.Rows, cells)
	}

	if len(meta.TotalColumns) > 0 {
		totals := format.Totals(meta, data.Rows)
		for i, col := range meta.Columns {
			cell := CellData{Class: cellClass(col.Format)}
			switch {
			case meta.IsTotalColumn(col.Key):
				cell.Value = format.Value(totals[col.Key], col.Format, w.currencySymbol)
			case i == 0:
				cell.Value = "Total"
			}
			td.Totals = append(td.Totals, cell)
		}
	}

	return td
}

// cellClass right-aligns numeric columns.
func cellClass(kind model.FormatKind) string {
	switch kind {
	case model.FormatCurrency, model.FormatNumber, model.FormatPercent:
		return "num"
	default:
		return "text"
	}
}
