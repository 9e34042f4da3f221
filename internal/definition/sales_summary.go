package definition

import (
	"context"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// SalesSummaryID identifies the per-transaction sales report.
const SalesSummaryID = "sales-summary"

// SaleRow is one sale transaction.
type SaleRow struct {
	SaleDate     string  `json:"sale_date"`
	ItemTitle    string  `json:"item_title"`
	Platform     string  `json:"platform"`
	SellingPrice float64 `json:"selling_price"`
	PlatformFees float64 `json:"platform_fees"`
	ShippingCost float64 `json:"shipping_cost"`
	OtherCosts   float64 `json:"other_costs"`
	CostBasis    float64 `json:"cost_basis"`
	NetProfit    float64 `json:"net_profit"`
}

// Field implements model.Row.
func (r SaleRow) Field(key string) any {
	switch key {
	case "sale_date":
		return r.SaleDate
	case "item_title":
		return r.ItemTitle
	case "platform":
		return r.Platform
	case "selling_price":
		return r.SellingPrice
	case "platform_fees":
		return r.PlatformFees
	case "shipping_cost":
		return r.ShippingCost
	case "other_costs":
		return r.OtherCosts
	case "cost_basis":
		return r.CostBasis
	case "net_profit":
		return r.NetProfit
	}
	return nil
}

type salesSummary struct {
	env
	meta model.ReportMeta
}

func newSalesSummary(e env) *salesSummary {
	return &salesSummary{
		env: e,
		meta: model.ReportMeta{
			ID:          SalesSummaryID,
			Title:       "Sales Summary",
			Category:    "Sales",
			Description: "Every sale in the period with its revenue, deductions and profit.",
			Columns: []model.Column{
				{Key: "sale_date", Label: "Date", Format: model.FormatDate},
				{Key: "item_title", Label: "Item", Format: model.FormatText},
				{Key: "platform", Label: "Platform", Format: model.FormatText},
				{Key: "selling_price", Label: "Sale Price", Format: model.FormatCurrency},
				{Key: "platform_fees", Label: "Fees", Format: model.FormatCurrency},
				{Key: "shipping_cost", Label: "Shipping", Format: model.FormatCurrency},
				{Key: "other_costs", Label: "VAT & Other", Format: model.FormatCurrency},
				{Key: "cost_basis", Label: "Cost", Format: model.FormatCurrency},
				{Key: "net_profit", Label: "Net Profit", Format: model.FormatCurrency},
			},
			Metrics: []model.MetricSpec{
				{Key: "total_sales", Label: "Total Sales", Format: model.FormatNumber},
				{Key: "total_revenue", Label: "Total Revenue", Format: model.FormatCurrency},
				{Key: "total_fees", Label: "Total Fees", Format: model.FormatCurrency},
				{Key: "total_shipping", Label: "Total Shipping", Format: model.FormatCurrency},
				{Key: "total_other", Label: "VAT & Other", Format: model.FormatCurrency},
				{Key: "total_cost", Label: "Total Cost", Format: model.FormatCurrency},
				{Key: "total_profit", Label: "Net Profit", Format: model.FormatCurrency},
				{Key: "avg_profit", Label: "Average Profit", Format: model.FormatCurrency},
				{Key: "profit_margin", Label: "Profit Margin", Format: model.FormatPercent},
			},
			TotalColumns: []string{
				"selling_price", "platform_fees", "shipping_cost", "other_costs", "cost_basis", "net_profit",
			},
		},
	}
}

func (d *salesSummary) Meta() *model.ReportMeta { return &d.meta }

func (d *salesSummary) FetchRows(ctx context.Context, src ledger.Source, filters model.Filters, limit int) ([]model.Row, error) {
	records, err := d.scan(ctx, src, salesQuery(filters, true), limit)
	if err != nil {
		return nil, err
	}

	rows := make([]SaleRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, SaleRow{
			SaleDate:     r.String(ledger.FieldSaleDate),
			ItemTitle:    r.String(ledger.FieldItemTitle),
			Platform:     r.String(ledger.FieldPlatform),
			SellingPrice: round2(r.Float(ledger.FieldSellingPrice)),
			PlatformFees: round2(r.Float(ledger.FieldPlatformFees)),
			ShippingCost: round2(r.Float(ledger.FieldShippingCost)),
			OtherCosts:   round2(r.Float(ledger.FieldOtherCosts)),
			CostBasis:    round2(r.Float(ledger.FieldCostBasis)),
			NetProfit:    round2(r.Float(ledger.FieldNetProfit)),
		})
	}
	return untyped(rows), nil
}

func (d *salesSummary) ComputeMetrics(rows []model.Row) model.Metrics {
	sales := typed[SaleRow](rows)

	var revenue, fees, shipping, other, cost, profit money
	for _, s := range sales {
		revenue.add(s.SellingPrice)
		fees.add(s.PlatformFees)
		shipping.add(s.ShippingCost)
		other.add(s.OtherCosts)
		cost.add(s.CostBasis)
		profit.add(s.NetProfit)
	}

	return model.Metrics{
		"total_sales":    len(sales),
		"total_revenue":  revenue.float(),
		"total_fees":     fees.float(),
		"total_shipping": shipping.float(),
		"total_other":    other.float(),
		"total_cost":     cost.float(),
		"total_profit":   profit.float(),
		"avg_profit":     mean(profit.float(), len(sales)),
		"profit_margin":  rate(profit.float(), revenue.float()),
	}
}
