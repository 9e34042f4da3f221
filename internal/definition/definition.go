// Package definition provides the built-in report definitions and the
// registry that serves them.
package definition

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// Definition is one report type: its schema plus how rows are fetched and
// summarized. Implementations hold no mutable state and are safe for
// concurrent use.
type Definition interface {
	// Meta returns the static schema of the report.
	Meta() *model.ReportMeta

	// FetchRows queries src with filters and returns at most limit rows.
	FetchRows(ctx context.Context, src ledger.Source, filters model.Filters, limit int) ([]model.Row, error)

	// ComputeMetrics summarizes rows produced by FetchRows.
	ComputeMetrics(rows []model.Row) model.Metrics
}

// env is the read-only environment shared by the built-in definitions.
type env struct {
	now            func() time.Time
	location       *time.Location
	pageSize       int
	// aggregateLimit caps the records read before grouping or filtering.
	aggregateLimit int
}

// today returns the current calendar date in the report timezone, as a UTC
// midnight so it can be compared with stored dates.
func (e env) today() time.Time {
	y, m, d := e.now().In(e.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// scan runs a paginated query with the environment's page size.
func (e env) scan(ctx context.Context, src ledger.Source, q ledger.Query, limit int) ([]ledger.Record, error) {
	return ledger.Scan(ctx, src, q, limit, e.pageSize)
}

// endOfDay makes an end-date bound cover the whole day.
func endOfDay(date string) string {
	if date == "" {
		return ""
	}
	return date + "T23:59:59"
}

// salesQuery builds the common sales query for the standard filters.
func salesQuery(filters model.Filters, descending bool) ledger.Query {
	return ledger.Query{Table: ledger.TableSales, OrderBy: ledger.FieldSaleDate, Descending: descending}.
		Between(ledger.FieldSaleDate, filters.Date(model.FilterStartDate), endOfDay(filters.Date(model.FilterEndDate))).
		Eq(ledger.FieldPlatform, filters.String(model.FilterPlatform)).
		Eq(ledger.FieldStatus, filters.String(model.FilterStatus)).
		Eq(ledger.FieldCategory, filters.String(model.FilterCategory)).
		NotDeleted()
}

// typed narrows rows back to the definition's own row type.
func typed[R model.Row](rows []model.Row) []R {
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		if r, ok := row.(R); ok {
			out = append(out, r)
		}
	}
	return out
}

// untyped widens a slice of concrete rows.
func untyped[R model.Row](rows []R) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// money accumulates monetary amounts without float drift.
type money struct {
	d decimal.Decimal
}

func (m *money) add(f float64) {
	m.d = m.d.Add(decimal.NewFromFloat(f))
}

func (m money) float() float64 {
	return m.d.Round(2).InexactFloat64()
}

// rate returns part/whole*100 rounded to two places, 0 when whole is 0.
func rate(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// mean returns sum/n rounded to two places, 0 when n is 0.
func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return decimal.NewFromFloat(sum).Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
}

// round2 rounds a stored amount to pennies.
func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
