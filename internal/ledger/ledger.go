// Package ledger defines the read-only contract the report engine uses to
// query sales and inventory records, plus a paginated scan helper.
package ledger

import (
	"context"
	"fmt"
)

// Tables queried by the report engine.
const (
	TableSales     = "sales"
	TableInventory = "inventory_items"
)

// Fields referenced by queries and definitions.
const (
	FieldID            = "id"
	FieldUserID        = "user_id"
	FieldDeletedAt     = "deleted_at"
	FieldSaleDate      = "sale_date"
	FieldItemTitle     = "item_title"
	FieldPlatform      = "platform"
	FieldSellingPrice  = "selling_price"
	FieldPlatformFees  = "platform_fees"
	FieldShippingCost  = "shipping_cost"
	FieldOtherCosts    = "other_costs" // VAT and other deductions
	FieldCostBasis     = "cost_basis"
	FieldNetProfit     = "net_profit"
	FieldTitle         = "title"
	FieldSKU           = "sku"
	FieldCategory      = "category"
	FieldStatus        = "status"
	FieldPurchaseDate  = "purchase_date"
	FieldPurchasePrice = "purchase_price"
)

// DefaultPageSize is the number of records fetched per round trip.
const DefaultPageSize = 1000

// Op is a predicate operator.
type Op string

const (
	OpEq     Op = "eq"
	OpGte    Op = "gte"
	OpLte    Op = "lte"
	OpIsNull Op = "is_null"
)

// Predicate is one filter applied by the store.
type Predicate struct {
	Field string
	Op    Op
	Value string
}

// Query describes one page request against a table.
type Query struct {
	Table      string
	Predicates []Predicate
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
	// CountExact asks the store for the total number of matching records.
	CountExact bool
}

// Eq appends an equality predicate when value is non-empty.
func (q Query) Eq(field, value string) Query {
	if value == "" {
		return q
	}
	q.Predicates = append(append([]Predicate(nil), q.Predicates...), Predicate{Field: field, Op: OpEq, Value: value})
	return q
}

// Between appends inclusive range predicates for the non-empty bounds.
func (q Query) Between(field, from, to string) Query {
	preds := append([]Predicate(nil), q.Predicates...)
	if from != "" {
		preds = append(preds, Predicate{Field: field, Op: OpGte, Value: from})
	}
	if to != "" {
		preds = append(preds, Predicate{Field: field, Op: OpLte, Value: to})
	}
	q.Predicates = preds
	return q
}

// NotDeleted appends the soft-delete exclusion predicate.
func (q Query) NotDeleted() Query {
	q.Predicates = append(append([]Predicate(nil), q.Predicates...), Predicate{Field: FieldDeletedAt, Op: OpIsNull})
	return q
}

// Page is one page of query results.
type Page struct {
	Records []Record
	// Total is the exact match count when requested, otherwise -1.
	Total int
}

// Source is a queryable collection of ledger records.
// Implementations must wrap failures with model.ErrUpstreamQuery.
type Source interface {
	Select(ctx context.Context, q Query) (*Page, error)
}

// Scan fetches up to limit records matching q, page by page. Pages are read
// sequentially to bound memory; a short page ends the scan.
func Scan(ctx context.Context, src Source, q Query, limit, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if limit <= 0 {
		return nil, nil
	}

	records := make([]Record, 0, min(limit, pageSize))
	for offset := 0; len(records) < limit; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q.Offset = offset
		q.Limit = min(pageSize, limit-len(records))
		page, err := src.Select(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("scan %s at offset %d: %w", q.Table, offset, err)
		}

		records = append(records, page.Records...)
		if len(page.Records) < q.Limit {
			break
		}
	}
	return records, nil
}
