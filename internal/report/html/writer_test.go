package html

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"resell-reports/internal/model"
)

type testRow map[string]any

func (r testRow) Field(key string) any { return r[key] }

const dataRowMarker = `<tr class="data-row">`

func createTestData(rows int) *model.ReportData {
	data := &model.ReportData{
		Meta: &model.ReportMeta{
			ID:          "inventory-aging",
			Title:       "Inventory Aging",
			Category:    "Inventory",
			Description: "Unsold stock by how long it has been held.",
			Columns: []model.Column{
				{Key: "title", Label: "Item", Format: model.FormatText},
				{Key: "days_held", Label: "Days Held", Format: model.FormatNumber},
				{Key: "cost_basis", Label: "Cost", Format: model.FormatCurrency},
			},
			Metrics: []model.MetricSpec{
				{Key: "total_items", Label: "Items", Format: model.FormatNumber},
				{Key: "total_cost", Label: "Total Cost", Format: model.FormatCurrency},
			},
			TotalColumns: []string{"cost_basis"},
		},
		Filters:     model.Filters{model.FilterAgeBucket: "90+"},
		Metrics:     model.Metrics{"total_items": rows, "total_cost": float64(rows) * 2},
		Options:     model.DefaultExportOptions(),
		GeneratedAt: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC),
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, testRow{"title": fmt.Sprintf("Item %d", i), "days_held": 100 + i, "cost_basis": 2.0})
	}
	return data
}

func render(t *testing.T, w *Writer, data *model.ReportData) string {
	t.Helper()
	content, err := w.Render(data)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return string(content)
}

func TestNewWriter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		w := NewWriter(nil, "", "", 0)
		if w.timezone != time.UTC {
			t.Errorf("expected UTC timezone, got %s", w.timezone)
		}
		if w.maxRows != DefaultMaxRows {
			t.Errorf("expected maxRows %d, got %d", DefaultMaxRows, w.maxRows)
		}
		if w.currencySymbol != "£" {
			t.Errorf("expected £, got %s", w.currencySymbol)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		loc, _ := time.LoadLocation("Europe/London")
		w := NewWriter(loc, "$", "/path/to/template.html", 10)
		if w.timezone != loc || w.currencySymbol != "$" || w.maxRows != 10 {
			t.Errorf("unexpected writer %+v", w)
		}
		if w.templatePath != "/path/to/template.html" {
			t.Errorf("expected template path to be set")
		}
	})
}

func TestWriter_Format(t *testing.T) {
	w := NewWriter(nil, "", "", 0)
	if w.Format() != "html" {
		t.Errorf("expected format 'html', got '%s'", w.Format())
	}
	if w.Extension() != ".html" {
		t.Errorf("expected extension '.html', got '%s'", w.Extension())
	}
}

func TestWriter_Render_NilData(t *testing.T) {
	w := NewWriter(nil, "", "", 0)
	if _, err := w.Render(nil); !errors.Is(err, model.ErrRender) {
		t.Errorf("expected ErrRender, got %v", err)
	}
}

// Scenario: 600 rows truncate to 500 with a notice.
func TestWriter_Render_Truncates(t *testing.T) {
	html := render(t, NewWriter(nil, "", "", 0), createTestData(600))

	if got := strings.Count(html, dataRowMarker); got != 500 {
		t.Errorf("expected 500 data rows, got %d", got)
	}
	if !strings.Contains(html, `class="truncation-notice"`) {
		t.Error("expected truncation notice")
	}
	if !strings.Contains(html, "Showing the first 500 of 600 rows") {
		t.Error("expected notice to state shown and total rows")
	}
	if !strings.Contains(html, "spreadsheet export") {
		t.Error("expected notice to point to the spreadsheet export")
	}
	if strings.Contains(html, "Item 500<") {
		t.Error("row beyond the limit was rendered")
	}
}

// Scenario: the item list can be switched off entirely.
func TestWriter_Render_ListDisabled(t *testing.T) {
	data := createTestData(600)
	data.Options.IncludeItemList = false

	html := render(t, NewWriter(nil, "", "", 0), data)

	if got := strings.Count(html, dataRowMarker); got != 0 {
		t.Errorf("expected 0 data rows, got %d", got)
	}
	if strings.Contains(html, `class="truncation-notice"`) {
		t.Error("expected no truncation notice without a list")
	}
	if strings.Contains(html, "<table>") {
		t.Error("expected no table without a list")
	}
	if !strings.Contains(html, `class="metric-card"`) {
		t.Error("expected metrics to still render")
	}
}

func TestWriter_Render_NoTruncationAtLimit(t *testing.T) {
	html := render(t, NewWriter(nil, "", "", 0), createTestData(500))

	if got := strings.Count(html, dataRowMarker); got != 500 {
		t.Errorf("expected 500 data rows, got %d", got)
	}
	if strings.Contains(html, `class="truncation-notice"`) {
		t.Error("expected no truncation notice at exactly the limit")
	}
}

func TestWriter_Render_MetricsToggle(t *testing.T) {
	data := createTestData(3)
	data.Options.IncludeMetrics = false

	html := render(t, NewWriter(nil, "", "", 0), data)
	if strings.Contains(html, `class="metric-card"`) {
		t.Error("expected no metric cards")
	}

	data.Options.IncludeMetrics = true
	html = render(t, NewWriter(nil, "", "", 0), data)
	if got := strings.Count(html, `class="metric-card"`); got != 2 {
		t.Errorf("expected 2 metric cards, got %d", got)
	}
	if !strings.Contains(html, "£6.00") {
		t.Error("expected formatted currency metric")
	}
}

func TestWriter_Render_Content(t *testing.T) {
	html := render(t, NewWriter(time.UTC, "£", "", 0), createTestData(2))

	expected := []string{
		"<title>Inventory Aging</title>",
		"Generated 2024-06-15 08:00",
		"Age bucket: 90+ days",
		`<th class="num">Cost</th>`,
		`<td class="text">Item 0</td>`,
		`<td class="num">101</td>`,
		`<tr class="totals-row">`,
		`<td class="text">Total</td>`,
		`<td class="num">£4.00</td>`,
		"window.print()",
	}
	for _, s := range expected {
		if !strings.Contains(html, s) {
			t.Errorf("expected document to contain %q", s)
		}
	}
}

func TestWriter_Render_EscapesValues(t *testing.T) {
	data := createTestData(1)
	data.Rows[0] = testRow{"title": `<script>alert("x")</script>`, "days_held": 1, "cost_basis": 1.0}

	html := render(t, NewWriter(nil, "", "", 0), data)
	if strings.Contains(html, `<script>alert`) {
		t.Error("expected row values to be escaped")
	}
}

func TestWriter_Render_UserTemplate(t *testing.T) {
	tmplPath := filepath.Join(t.TempDir(), "custom.html")
	content := `<h1>{{.Title}}</h1>{{range .Rows}}<tr class="data-row"></tr>{{end}}`
	if err := os.WriteFile(tmplPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	html := render(t, NewWriter(nil, "", tmplPath, 2), createTestData(5))
	if !strings.HasPrefix(html, "<h1>Inventory Aging</h1>") {
		t.Errorf("expected custom template output, got %q", html)
	}
	if got := strings.Count(html, dataRowMarker); got != 2 {
		t.Errorf("expected 2 data rows, got %d", got)
	}
}

func TestWriter_Render_MissingUserTemplateFallsBack(t *testing.T) {
	html := render(t, NewWriter(nil, "", "/does/not/exist.html", 0), createTestData(1))
	if !strings.Contains(html, "window.print()") {
		t.Error("expected embedded template to be used")
	}
}

func TestWriter_Write(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report")

	w := NewWriter(nil, "", "", 0)
	if err := w.Write(createTestData(1), outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(outputPath + ".html"); err != nil {
		t.Errorf("expected output file with .html extension: %v", err)
	}
}
