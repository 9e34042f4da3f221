// Package excel provides the spreadsheet renderer. It builds an .xlsx
// workbook with a formatted data sheet, a totals row and a metrics sheet.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"resell-reports/internal/model"
	"resell-reports/internal/report/format"
)

const (
	// Sheet names
	sheetReport  = "Report"
	sheetMetrics = "Metrics"

	// Default sheet to remove
	defaultSheet = "Sheet1"

	// Layout rows (1-based)
	rowTitle   = 1
	rowFilters = 2
	rowHeader  = 4
	rowData    = 5

	// Colors (RGB without #)
	colorHeaderBg = "4472C4" // Blue background for header
	colorHeaderFg = "FFFFFF" // White text for header
	colorStripeBg = "F2F2F2" // Light grey for alternate data rows
	colorTotalBg  = "D9E1F2" // Pale blue for the totals row
	colorMutedFg  = "595959" // Grey text for the filter summary

	// Column widths
	minColWidth = 12.0
	maxColWidth = 40.0

	// Number formats by column kind
	numFmtNumber  = "#,##0"
	numFmtPercent = "0.00%"
	numFmtDate    = "yyyy-mm-dd"
)

// Writer renders report data as an Excel workbook.
type Writer struct {
	timezone       *time.Location
	currencySymbol string
}

// NewWriter creates a new Excel report writer.
// If timezone is nil, it defaults to UTC.
func NewWriter(timezone *time.Location, currencySymbol string) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	if currencySymbol == "" {
		currencySymbol = format.DefaultCurrencySymbol
	}
	return &Writer{
		timezone:       timezone,
		currencySymbol: currencySymbol,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "excel"
}

// Extension returns the file extension of rendered documents.
func (w *Writer) Extension() string {
	return ".xlsx"
}

// ContentType returns the MIME type of rendered documents.
func (w *Writer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render builds the workbook and returns its bytes.
func (w *Writer) Render(data *model.ReportData) ([]byte, error) {
	f, err := w.build(data)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize workbook: %v", model.ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Write builds the workbook and saves it to outputPath.
func (w *Writer) Write(data *model.ReportData, outputPath string) error {
	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	f, err := w.build(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("%w: save workbook: %v", model.ErrRender, err)
	}
	return nil
}

func (w *Writer) build(data *model.ReportData) (*excelize.File, error) {
	if data == nil || data.Meta == nil {
		return nil, fmt.Errorf("%w: report data is nil", model.ErrRender)
	}

	f := excelize.NewFile()

	styles, err := newStyleSet(f, w.currencySymbol)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: create styles: %v", model.ErrRender, err)
	}

	if err := w.createReportSheet(f, styles, data); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: report sheet: %v", model.ErrRender, err)
	}
	if err := w.createMetricsSheet(f, styles, data); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: metrics sheet: %v", model.ErrRender, err)
	}

	// Remove default Sheet1
	_ = f.DeleteSheet(defaultSheet)

	// Set active sheet to the report
	idx, _ := f.GetSheetIndex(sheetReport)
	f.SetActiveSheet(idx)

	return f, nil
}

// createReportSheet writes the title, filter summary, header, data and
// totals rows.
func (w *Writer) createReportSheet(f *excelize.File, styles *styleSet, data *model.ReportData) error {
	if _, err := f.NewSheet(sheetReport); err != nil {
		return err
	}
	meta := data.Meta
	lastCol := columnName(max(len(meta.Columns), 1))

	// Title and filter summary
	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	title := fmt.Sprintf("%s - generated %s", meta.Title, generated.In(w.timezone).Format("2006-01-02 15:04"))
	if err := f.SetCellValue(sheetReport, "A1", title); err != nil {
		return err
	}
	f.MergeCell(sheetReport, "A1", lastCol+"1")
	f.SetCellStyle(sheetReport, "A1", "A1", styles.title)
	f.SetRowHeight(sheetReport, rowTitle, 24)

	if err := f.SetCellValue(sheetReport, "A2", format.FilterSummary(data.Filters)); err != nil {
		return err
	}
	f.MergeCell(sheetReport, "A2", lastCol+"2")
	f.SetCellStyle(sheetReport, "A2", "A2", styles.subtitle)

	// Header
	for i, col := range meta.Columns {
		name := columnName(i + 1)
		cell := fmt.Sprintf("%s%d", name, rowHeader)
		if err := f.SetCellValue(sheetReport, cell, col.Label); err != nil {
			return err
		}
		f.SetCellStyle(sheetReport, cell, cell, styles.header)
		f.SetColWidth(sheetReport, name, name, columnWidth(col.Label))
	}
	f.SetRowHeight(sheetReport, rowHeader, 20)

	// Freeze everything above the data
	f.SetPanes(sheetReport, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      rowHeader,
		TopLeftCell: fmt.Sprintf("A%d", rowData),
		ActivePane:  "bottomLeft",
	})

	// Data rows
	for i, row := range data.Rows {
		rowNum := rowData + i
		stripe := i % 2
		for j, col := range meta.Columns {
			cell := fmt.Sprintf("%s%d", columnName(j+1), rowNum)
			if err := f.SetCellValue(sheetReport, cell, w.cellValue(row.Field(col.Key), col.Format)); err != nil {
				return err
			}
			f.SetCellStyle(sheetReport, cell, cell, styles.data[col.Format][stripe])
		}
	}

	// Totals row
	if len(meta.TotalColumns) > 0 {
		totals := format.Totals(meta, data.Rows)
		rowNum := rowData + len(data.Rows)
		for j, col := range meta.Columns {
			cell := fmt.Sprintf("%s%d", columnName(j+1), rowNum)
			var value any
			switch {
			case meta.IsTotalColumn(col.Key):
				value = w.cellValue(totals[col.Key], col.Format)
			case j == 0:
				value = "Total"
			}
			if value != nil {
				if err := f.SetCellValue(sheetReport, cell, value); err != nil {
					return err
				}
			}
			f.SetCellStyle(sheetReport, cell, cell, styles.total[col.Format])
		}
	}

	return nil
}

// createMetricsSheet lists every declared metric with its rendered value.
func (w *Writer) createMetricsSheet(f *excelize.File, styles *styleSet, data *model.ReportData) error {
	if _, err := f.NewSheet(sheetMetrics); err != nil {
		return err
	}

	f.SetColWidth(sheetMetrics, "A", "A", 30)
	f.SetColWidth(sheetMetrics, "B", "B", 25)

	for i, header := range []string{"Metric", "Value"} {
		cell := fmt.Sprintf("%s1", columnName(i+1))
		if err := f.SetCellValue(sheetMetrics, cell, header); err != nil {
			return err
		}
		f.SetCellStyle(sheetMetrics, cell, cell, styles.header)
	}

	for i, m := range format.MetricRows(data.Meta, data.Metrics, w.currencySymbol) {
		row := i + 2
		if err := f.SetCellValue(sheetMetrics, fmt.Sprintf("A%d", row), m.Label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetMetrics, fmt.Sprintf("B%d", row), m.Value); err != nil {
			return err
		}
	}
	return nil
}

// cellValue converts a row value to what is stored in the cell for kind.
func (w *Writer) cellValue(v any, kind model.FormatKind) any {
	switch kind {
	case model.FormatCurrency, model.FormatNumber:
		return format.Float(v)
	case model.FormatPercent:
		// stored 0-100, the cell format multiplies by 100 again
		return format.Float(v) / 100
	case model.FormatDate:
		s := format.Date(v)
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t
		}
		return s
	default:
		return format.Value(v, model.FormatText, w.currencySymbol)
	}
}

// columnWidth derives a column width from its header label.
func columnWidth(label string) float64 {
	width := float64(len([]rune(label)) + 4)
	return min(max(width, minColWidth), maxColWidth)
}

// columnName converts a 1-based column index to Excel column name (A, B, ..., Z, AA, AB, ...).
func columnName(index int) string {
	result := ""
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}
