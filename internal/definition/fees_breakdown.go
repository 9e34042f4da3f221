package definition

import (
	"context"
	"sort"
	"strings"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
	"resell-reports/internal/report/format"
)

// FeesBreakdownID identifies the per-marketplace fee report.
const FeesBreakdownID = "fees-breakdown"

// otherPlatform groups sales without a platform.
const otherPlatform = "other"

// PlatformRow aggregates the sales and deductions of one marketplace.
type PlatformRow struct {
	Platform        string  `json:"platform"`
	SalesCount      int     `json:"sales_count"`
	GrossRevenue    float64 `json:"gross_revenue"`
	TotalFees       float64 `json:"total_fees"`
	ShippingCosts   float64 `json:"shipping_costs"`
	VATAndOther     float64 `json:"vat_and_other"`
	TotalDeductions float64 `json:"total_deductions"`
	NetProfit       float64 `json:"net_profit"`
	FeeRate         float64 `json:"fee_rate"`
}

// Field implements model.Row.
func (r PlatformRow) Field(key string) any {
	switch key {
	case "platform":
		return r.Platform
	case "sales_count":
		return r.SalesCount
	case "gross_revenue":
		return r.GrossRevenue
	case "total_fees":
		return r.TotalFees
	case "shipping_costs":
		return r.ShippingCosts
	case "vat_and_other":
		return r.VATAndOther
	case "total_deductions":
		return r.TotalDeductions
	case "net_profit":
		return r.NetProfit
	case "fee_rate":
		return r.FeeRate
	}
	return nil
}

type feesBreakdown struct {
	env
	meta model.ReportMeta
}

func newFeesBreakdown(e env) *feesBreakdown {
	return &feesBreakdown{
		env: e,
		meta: model.ReportMeta{
			ID:          FeesBreakdownID,
			Title:       "Fees Breakdown",
			Category:    "Financial",
			Description: "Marketplace fees, shipping and other deductions by platform.",
			Columns: []model.Column{
				{Key: "platform", Label: "Platform", Format: model.FormatText},
				{Key: "sales_count", Label: "Sales", Format: model.FormatNumber},
				{Key: "gross_revenue", Label: "Gross Revenue", Format: model.FormatCurrency},
				{Key: "total_fees", Label: "Platform Fees", Format: model.FormatCurrency},
				{Key: "shipping_costs", Label: "Shipping", Format: model.FormatCurrency},
				{Key: "vat_and_other", Label: "VAT & Other", Format: model.FormatCurrency},
				{Key: "total_deductions", Label: "Total Deductions", Format: model.FormatCurrency},
				{Key: "net_profit", Label: "Net Profit", Format: model.FormatCurrency},
				{Key: "fee_rate", Label: "Fee Rate", Format: model.FormatPercent},
			},
			Metrics: []model.MetricSpec{
				{Key: "total_sales", Label: "Total Sales", Format: model.FormatNumber},
				{Key: "total_gross", Label: "Gross Revenue", Format: model.FormatCurrency},
				{Key: "total_fees", Label: "Platform Fees", Format: model.FormatCurrency},
				{Key: "total_shipping", Label: "Shipping", Format: model.FormatCurrency},
				{Key: "total_vat_other", Label: "VAT & Other", Format: model.FormatCurrency},
				{Key: "total_deductions", Label: "Total Deductions", Format: model.FormatCurrency},
				{Key: "total_net", Label: "Net Profit", Format: model.FormatCurrency},
				{Key: "avg_fee_rate", Label: "Average Fee Rate", Format: model.FormatPercent},
			},
			TotalColumns: []string{
				"sales_count", "gross_revenue", "total_fees", "shipping_costs",
				"vat_and_other", "total_deductions", "net_profit",
			},
		},
	}
}

func (d *feesBreakdown) Meta() *model.ReportMeta { return &d.meta }

type platformTotals struct {
	name                              string
	count                             int
	gross, fees, shipping, other, net money
}

func (d *feesBreakdown) FetchRows(ctx context.Context, src ledger.Source, filters model.Filters, limit int) ([]model.Row, error) {
	records, err := d.scan(ctx, src, salesQuery(filters, true), d.aggregateLimit)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*platformTotals)
	for _, r := range records {
		name := r.String(ledger.FieldPlatform)
		key := strings.ToLower(name)
		if key == "" {
			name, key = otherPlatform, otherPlatform
		}
		g, ok := groups[key]
		if !ok {
			g = &platformTotals{name: name}
			groups[key] = g
		}
		g.count++
		g.gross.add(r.Float(ledger.FieldSellingPrice))
		g.fees.add(r.Float(ledger.FieldPlatformFees))
		g.shipping.add(r.Float(ledger.FieldShippingCost))
		g.other.add(r.Float(ledger.FieldOtherCosts))
		g.net.add(r.Float(ledger.FieldNetProfit))
	}

	type keyed struct {
		key string
		row PlatformRow
	}
	all := make([]keyed, 0, len(groups))
	for key, g := range groups {
		var deductions money
		deductions.add(g.fees.float())
		deductions.add(g.shipping.float())
		deductions.add(g.other.float())

		all = append(all, keyed{key: key, row: PlatformRow{
			Platform:        format.PlatformName(g.name),
			SalesCount:      g.count,
			GrossRevenue:    g.gross.float(),
			TotalFees:       g.fees.float(),
			ShippingCosts:   g.shipping.float(),
			VATAndOther:     g.other.float(),
			TotalDeductions: deductions.float(),
			NetProfit:       g.net.float(),
			FeeRate:         rate(g.fees.float(), g.gross.float()),
		}})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].row.GrossRevenue != all[j].row.GrossRevenue {
			return all[i].row.GrossRevenue > all[j].row.GrossRevenue
		}
		return all[i].key < all[j].key
	})

	rows := make([]PlatformRow, 0, min(len(all), max(limit, 0)))
	for _, k := range all {
		if len(rows) >= limit {
			break
		}
		rows = append(rows, k.row)
	}
	return untyped(rows), nil
}

func (d *feesBreakdown) ComputeMetrics(rows []model.Row) model.Metrics {
	platforms := typed[PlatformRow](rows)

	var (
		sales                                        int
		gross, fees, shipping, other, deductions, net money
	)
	for _, p := range platforms {
		sales += p.SalesCount
		gross.add(p.GrossRevenue)
		fees.add(p.TotalFees)
		shipping.add(p.ShippingCosts)
		other.add(p.VATAndOther)
		deductions.add(p.TotalDeductions)
		net.add(p.NetProfit)
	}

	return model.Metrics{
		"total_sales":      sales,
		"total_gross":      gross.float(),
		"total_fees":       fees.float(),
		"total_shipping":   shipping.float(),
		"total_vat_other":  other.float(),
		"total_deductions": deductions.float(),
		"total_net":        net.float(),
		"avg_fee_rate":     rate(fees.float(), gross.float()),
	}
}
