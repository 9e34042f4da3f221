package definition

import (
	"context"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// InventoryAgingID identifies the stock dwell-time report.
const InventoryAgingID = "inventory-aging"

// AgingRow is one inventory item with its dwell time.
type AgingRow struct {
	Title        string  `json:"title"`
	SKU          string  `json:"sku"`
	Category     string  `json:"category"`
	Platform     string  `json:"platform"`
	Status       string  `json:"status"`
	PurchaseDate string  `json:"purchase_date"`
	DaysHeld     int     `json:"days_held"`
	AgeBucket    string  `json:"age_bucket"`
	CostBasis    float64 `json:"cost_basis"`
}

// Field implements model.Row.
func (r AgingRow) Field(key string) any {
	switch key {
	case "title":
		return r.Title
	case "sku":
		return r.SKU
	case "category":
		return r.Category
	case "platform":
		return r.Platform
	case "status":
		return r.Status
	case "purchase_date":
		return r.PurchaseDate
	case "days_held":
		return r.DaysHeld
	case "age_bucket":
		return r.AgeBucket
	case "cost_basis":
		return r.CostBasis
	}
	return nil
}

// AgeBucket returns the bucket label for a dwell time. Upper edges are
// inclusive.
func AgeBucket(daysHeld int) string {
	switch {
	case daysHeld <= 30:
		return model.AgeBucketFresh
	case daysHeld <= 60:
		return model.AgeBucketRecent
	case daysHeld <= 90:
		return model.AgeBucketAging
	default:
		return model.AgeBucketStale
	}
}

type inventoryAging struct {
	env
	meta model.ReportMeta
}

func newInventoryAging(e env) *inventoryAging {
	return &inventoryAging{
		env: e,
		meta: model.ReportMeta{
			ID:          InventoryAgingID,
			Title:       "Inventory Aging",
			Category:    "Inventory",
			Description: "Unsold stock by how long it has been held.",
			Columns: []model.Column{
				{Key: "title", Label: "Item", Format: model.FormatText},
				{Key: "sku", Label: "SKU", Format: model.FormatText},
				{Key: "category", Label: "Category", Format: model.FormatText},
				{Key: "platform", Label: "Platform", Format: model.FormatText},
				{Key: "purchase_date", Label: "Purchased", Format: model.FormatDate},
				{Key: "days_held", Label: "Days Held", Format: model.FormatNumber},
				{Key: "age_bucket", Label: "Age", Format: model.FormatText},
				{Key: "cost_basis", Label: "Cost", Format: model.FormatCurrency},
			},
			Metrics: []model.MetricSpec{
				{Key: "total_items", Label: "Items", Format: model.FormatNumber},
				{Key: "total_cost", Label: "Total Cost", Format: model.FormatCurrency},
				{Key: "avg_days_held", Label: "Average Days Held", Format: model.FormatNumber},
				{Key: "stale_items", Label: "Items Over 90 Days", Format: model.FormatNumber},
				{Key: "stale_cost", Label: "Cost Over 90 Days", Format: model.FormatCurrency},
			},
			DefaultFilters: model.Filters{model.FilterStatus: "available"},
			TotalColumns:   []string{"cost_basis"},
		},
	}
}

func (d *inventoryAging) Meta() *model.ReportMeta { return &d.meta }

func (d *inventoryAging) FetchRows(ctx context.Context, src ledger.Source, filters model.Filters, limit int) ([]model.Row, error) {
	q := ledger.Query{Table: ledger.TableInventory, OrderBy: ledger.FieldPurchaseDate}.
		Eq(ledger.FieldStatus, filters.String(model.FilterStatus)).
		Eq(ledger.FieldCategory, filters.String(model.FilterCategory)).
		Eq(ledger.FieldPlatform, filters.String(model.FilterPlatform)).
		NotDeleted()

	// The age bucket is applied after the scan, so limit bounds the
	// filtered rows rather than the records read.
	records, err := d.scan(ctx, src, q, max(d.aggregateLimit, limit))
	if err != nil {
		return nil, err
	}

	today := d.today()
	bucket := filters.String(model.FilterAgeBucket)

	rows := make([]AgingRow, 0, min(len(records), max(limit, 0)))
	for _, r := range records {
		if len(rows) >= limit {
			break
		}
		days := 0
		purchased, ok := r.Date(ledger.FieldPurchaseDate)
		if ok {
			days = max(0, int(today.Sub(purchased).Hours()/24))
		}
		if !inBucket(days, bucket) {
			continue
		}

		row := AgingRow{
			Title:     r.String(ledger.FieldTitle),
			SKU:       r.String(ledger.FieldSKU),
			Category:  r.String(ledger.FieldCategory),
			Platform:  r.String(ledger.FieldPlatform),
			Status:    r.String(ledger.FieldStatus),
			DaysHeld:  days,
			AgeBucket: AgeBucket(days),
			CostBasis: round2(r.Float(ledger.FieldPurchasePrice)),
		}
		if ok {
			row.PurchaseDate = purchased.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return untyped(rows), nil
}

// inBucket applies the age_bucket filter. Unknown values are no filter.
func inBucket(days int, filter string) bool {
	switch filter {
	case "30":
		return days <= 30
	case "60":
		return days > 30 && days <= 60
	case "90":
		return days > 60 && days <= 90
	case "90+":
		return days > 90
	}
	return true
}

func (d *inventoryAging) ComputeMetrics(rows []model.Row) model.Metrics {
	items := typed[AgingRow](rows)

	var (
		cost, staleCost money
		days, stale     int
	)
	for _, it := range items {
		cost.add(it.CostBasis)
		days += it.DaysHeld
		if it.DaysHeld > model.StaleAfterDays {
			stale++
			staleCost.add(it.CostBasis)
		}
	}

	return model.Metrics{
		"total_items":   len(items),
		"total_cost":    cost.float(),
		"avg_days_held": mean(float64(days), len(items)),
		"stale_items":   stale,
		"stale_cost":    staleCost.float(),
	}
}
