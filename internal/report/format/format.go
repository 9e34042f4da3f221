// Package format renders report values for display and computes the totals
// row shared by the spreadsheet and print renderers.
package format

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"resell-reports/internal/model"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "£"

// platformNames maps marketplace keys to their display names.
var platformNames = map[string]string{
	"ebay":     "eBay",
	"vinted":   "Vinted",
	"depop":    "Depop",
	"etsy":     "Etsy",
	"facebook": "Facebook Marketplace",
	"poshmark": "Poshmark",
	"amazon":   "Amazon",
	"other":    "Other",
}

// PlatformName returns the display name of a marketplace key. Unknown values
// are returned unchanged.
func PlatformName(s string) string {
	if name, ok := platformNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return name
	}
	return s
}

// Float coerces a cell value to a number, 0 when it is not numeric.
func Float(v any) float64 {
	if v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Value renders v according to kind.
func Value(v any, kind model.FormatKind, currencySymbol string) string {
	switch kind {
	case model.FormatCurrency:
		return Currency(Float(v), currencySymbol)
	case model.FormatNumber:
		return Number(Float(v))
	case model.FormatPercent:
		return Percent(Float(v))
	case model.FormatDate:
		return Date(v)
	default:
		if v == nil {
			return ""
		}
		return PlatformName(cast.ToString(v))
	}
}

// Currency renders f as "£1,234.50", with the sign before the symbol.
func Currency(f float64, symbol string) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return sign + symbol + humanize.FormatFloat("#,###.##", f)
}

// Number renders f rounded to an integer with thousands separators.
func Number(f float64) string {
	return humanize.Comma(int64(math.Round(f)))
}

// Percent renders a 0-100 value as "12.50%".
func Percent(f float64) string {
	return humanize.FormatFloat("#,###.##", f) + "%"
}

// Date renders a date value as YYYY-MM-DD. Strings are cut to their date
// part; values that are not dates are rendered verbatim.
func Date(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	}

	s := strings.TrimSpace(cast.ToString(v))
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return s[:10]
		}
	}
	return s
}

// Label turns a status key like "in_stock" into "In stock".
func Label(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FilterSummary renders the active filters on one line, or "All data".
func FilterSummary(f model.Filters) string {
	var parts []string

	start, end := f.Date(model.FilterStartDate), f.Date(model.FilterEndDate)
	switch {
	case start != "" && end != "":
		parts = append(parts, "Date range: "+start+" to "+end)
	case start != "":
		parts = append(parts, "From: "+start)
	case end != "":
		parts = append(parts, "Up to: "+end)
	}

	if p := f.String(model.FilterPlatform); p != "" {
		parts = append(parts, "Platform: "+PlatformName(p))
	}
	// Unknown buckets are not applied, so they are not shown.
	if label := model.AgeBucketLabel(f.String(model.FilterAgeBucket)); label != "" {
		parts = append(parts, "Age bucket: "+label)
	}
	if s := f.String(model.FilterStatus); s != "" {
		parts = append(parts, "Status: "+Label(s))
	}
	if c := f.String(model.FilterCategory); c != "" {
		parts = append(parts, "Category: "+c)
	}

	if len(parts) == 0 {
		return "All data"
	}
	return strings.Join(parts, " | ")
}

// Totals sums every summable column of meta across rows.
func Totals(meta *model.ReportMeta, rows []model.Row) map[string]float64 {
	sums := make(map[string]decimal.Decimal, len(meta.TotalColumns))
	for _, key := range meta.TotalColumns {
		sums[key] = decimal.Zero
	}
	for _, row := range rows {
		for _, key := range meta.TotalColumns {
			sums[key] = sums[key].Add(decimal.NewFromFloat(Float(row.Field(key))))
		}
	}

	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum.InexactFloat64()
	}
	return out
}

// MetricRows pairs each declared metric with its rendered value.
func MetricRows(meta *model.ReportMeta, metrics model.Metrics, currencySymbol string) []MetricRow {
	out := make([]MetricRow, 0, len(meta.Metrics))
	for _, spec := range meta.Metrics {
		out = append(out, MetricRow{
			Key:   spec.Key,
			Label: spec.Label,
			Value: Value(metrics[spec.Key], spec.Format, currencySymbol),
		})
	}
	return out
}

// MetricRow is one rendered metric.
type MetricRow struct {
	Key   string
	Label string
	Value string
}
