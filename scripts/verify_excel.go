//go:build ignore
// +build ignore

// This script renders every built-in report from sample data and prints the
// workbook contents back for manual verification.
// Run with: go run scripts/verify_excel.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"resell-reports/internal/definition"
	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
	"resell-reports/internal/report"
)

func main() {
	tz, _ := time.LoadLocation("Europe/London")
	now := time.Now().In(tz)
	source := ledger.NewMemorySource(sampleLedger(now))
	defs := definition.NewRegistry(definition.WithLocation(tz))
	writers := report.NewRegistry(report.Options{Timezone: tz})

	outDir := filepath.Join(".", "sample_reports")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", outDir, err)
		os.Exit(1)
	}
	for _, def := range defs.List() {
		meta := def.Meta()
		rows, err := def.FetchRows(context.Background(), source, model.Filters{}.Merge(meta.DefaultFilters), 1000)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching %s: %v\n", meta.ID, err)
			os.Exit(1)
		}
		data := &model.ReportData{
			Meta:        meta,
			Filters:     model.Filters{}.Merge(meta.DefaultFilters),
			Rows:        rows,
			Metrics:     def.ComputeMetrics(rows),
			Options:     model.DefaultExportOptions(),
			GeneratedAt: now,
		}

		for _, format := range writers.GetAll() {
			w, _ := writers.Get(format)
			path := filepath.Join(outDir, meta.ID+w.Extension())
			if err := w.Write(data, path); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("✅ %s\n", path)
		}
		dump(filepath.Join(outDir, meta.ID+".xlsx"))
	}

	fmt.Println("\nPlease open the files to verify:")
	fmt.Println("  - Header row is frozen and totals row is bold")
	fmt.Println("  - Currency cells show £ with two decimals")
	fmt.Println("  - HTML documents open the print dialog")
}

// dump prints every non-empty row of each sheet.
func dump(path string) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  %s\n", sheet)
		fmt.Println("═══════════════════════════════════════")
		rows, _ := f.GetRows(sheet)
		for _, row := range rows {
			if len(row) > 0 {
				fmt.Printf("  %v\n", row)
			}
		}
	}
	fmt.Println()
}

func sampleLedger(now time.Time) map[string][]ledger.Record {
	day := func(n int) string { return now.AddDate(0, 0, -n).Format("2006-01-02") }
	platforms := []string{"ebay", "vinted", "depop", "etsy"}

	var sales []ledger.Record
	for i := 0; i < 40; i++ {
		price := 12.0 + float64(i%9)*3.5
		fees := price * 0.12
		sales = append(sales, ledger.Record{
			"id":            fmt.Sprintf("s%02d", i),
			"user_id":       "demo",
			"item_title":    fmt.Sprintf("Sample item %d", i),
			"platform":      platforms[i%len(platforms)],
			"sale_date":     day(i * 5),
			"selling_price": price,
			"platform_fees": fees,
			"shipping_cost": 3.2,
			"other_costs":   0.5,
			"cost_basis":    price * 0.4,
			"net_profit":    price - fees - 3.7 - price*0.4,
		})
	}

	var items []ledger.Record
	for i := 0; i < 25; i++ {
		items = append(items, ledger.Record{
			"id":             fmt.Sprintf("i%02d", i),
			"user_id":        "demo",
			"title":          fmt.Sprintf("Stock item %d", i),
			"sku":            fmt.Sprintf("SKU-%03d", i),
			"category":       "Clothing",
			"status":         "available",
			"purchase_date":  day(i * 7),
			"purchase_price": 4.0 + float64(i%5),
		})
	}

	return map[string][]ledger.Record{
		ledger.TableSales:     sales,
		ledger.TableInventory: items,
	}
}
