package definition

import (
	"context"
	"sort"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// ProfitByMonthID identifies the monthly profit report.
const ProfitByMonthID = "profit-by-month"

// MonthRow aggregates the sales of one calendar month.
type MonthRow struct {
	Month        string  `json:"month"`
	SalesCount   int     `json:"sales_count"`
	Revenue      float64 `json:"revenue"`
	Fees         float64 `json:"fees"`
	Shipping     float64 `json:"shipping"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// Field implements model.Row.
func (r MonthRow) Field(key string) any {
	switch key {
	case "month":
		return r.Month
	case "sales_count":
		return r.SalesCount
	case "revenue":
		return r.Revenue
	case "fees":
		return r.Fees
	case "shipping":
		return r.Shipping
	case "cost":
		return r.Cost
	case "profit":
		return r.Profit
	case "profit_margin":
		return r.ProfitMargin
	}
	return nil
}

type profitByMonth struct {
	env
	meta model.ReportMeta
}

func newProfitByMonth(e env) *profitByMonth {
	return &profitByMonth{
		env: e,
		meta: model.ReportMeta{
			ID:          ProfitByMonthID,
			Title:       "Profit by Month",
			Category:    "Financial",
			Description: "Revenue, costs and net profit grouped by calendar month.",
			Columns: []model.Column{
				{Key: "month", Label: "Month", Format: model.FormatText},
				{Key: "sales_count", Label: "Sales", Format: model.FormatNumber},
				{Key: "revenue", Label: "Revenue", Format: model.FormatCurrency},
				{Key: "fees", Label: "Fees", Format: model.FormatCurrency},
				{Key: "shipping", Label: "Shipping", Format: model.FormatCurrency},
				{Key: "cost", Label: "Cost", Format: model.FormatCurrency},
				{Key: "profit", Label: "Net Profit", Format: model.FormatCurrency},
				{Key: "profit_margin", Label: "Margin", Format: model.FormatPercent},
			},
			Metrics: []model.MetricSpec{
				{Key: "total_months", Label: "Months", Format: model.FormatNumber},
				{Key: "total_sales", Label: "Total Sales", Format: model.FormatNumber},
				{Key: "total_revenue", Label: "Total Revenue", Format: model.FormatCurrency},
				{Key: "total_profit", Label: "Net Profit", Format: model.FormatCurrency},
				{Key: "avg_monthly_profit", Label: "Average Monthly Profit", Format: model.FormatCurrency},
				{Key: "profit_margin", Label: "Profit Margin", Format: model.FormatPercent},
				{Key: "best_month", Label: "Best Month", Format: model.FormatText},
				{Key: "best_month_profit", Label: "Best Month Profit", Format: model.FormatCurrency},
			},
			TotalColumns: []string{"sales_count", "revenue", "fees", "shipping", "cost", "profit"},
		},
	}
}

func (d *profitByMonth) Meta() *model.ReportMeta { return &d.meta }

type monthTotals struct {
	count                                 int
	revenue, fees, shipping, cost, profit money
}

func (d *profitByMonth) FetchRows(ctx context.Context, src ledger.Source, filters model.Filters, limit int) ([]model.Row, error) {
	// limit bounds output rows; every matching sale feeds the aggregates
	records, err := d.scan(ctx, src, salesQuery(filters, false), d.aggregateLimit)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*monthTotals)
	for _, r := range records {
		date := r.String(ledger.FieldSaleDate)
		if len(date) < 7 {
			continue
		}
		key := date[:7]
		g, ok := groups[key]
		if !ok {
			g = &monthTotals{}
			groups[key] = g
		}
		g.count++
		g.revenue.add(r.Float(ledger.FieldSellingPrice))
		g.fees.add(r.Float(ledger.FieldPlatformFees))
		g.shipping.add(r.Float(ledger.FieldShippingCost))
		g.cost.add(r.Float(ledger.FieldCostBasis))
		g.profit.add(r.Float(ledger.FieldNetProfit))
	}

	months := make([]string, 0, len(groups))
	for key := range groups {
		months = append(months, key)
	}
	sort.Strings(months)

	rows := make([]MonthRow, 0, len(months))
	for _, key := range months {
		if len(rows) >= limit {
			break
		}
		g := groups[key]
		rows = append(rows, MonthRow{
			Month:        key,
			SalesCount:   g.count,
			Revenue:      g.revenue.float(),
			Fees:         g.fees.float(),
			Shipping:     g.shipping.float(),
			Cost:         g.cost.float(),
			Profit:       g.profit.float(),
			ProfitMargin: rate(g.profit.float(), g.revenue.float()),
		})
	}
	return untyped(rows), nil
}

func (d *profitByMonth) ComputeMetrics(rows []model.Row) model.Metrics {
	months := typed[MonthRow](rows)
	// scan in ascending month order so the earliest month wins ties
	sort.SliceStable(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	var (
		sales           int
		revenue, profit money
		best            *MonthRow
	)
	for i := range months {
		m := &months[i]
		sales += m.SalesCount
		revenue.add(m.Revenue)
		profit.add(m.Profit)
		if best == nil || m.Profit > best.Profit {
			best = m
		}
	}

	metrics := model.Metrics{
		"total_months":       len(months),
		"total_sales":        sales,
		"total_revenue":      revenue.float(),
		"total_profit":       profit.float(),
		"avg_monthly_profit": mean(profit.float(), len(months)),
		"profit_margin":      rate(profit.float(), revenue.float()),
		"best_month":         "",
		"best_month_profit":  0.0,
	}
	if best != nil {
		metrics["best_month"] = best.Month
		metrics["best_month_profit"] = best.Profit
	}
	return metrics
}
