package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resell-reports/internal/model"
)

// countingSource records every query it receives.
type countingSource struct {
	inner   Source
	queries []Query
}

func (c *countingSource) Select(ctx context.Context, q Query) (*Page, error) {
	c.queries = append(c.queries, q)
	return c.inner.Select(ctx, q)
}

func makeSales(n int) []Record {
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, Record{
			FieldID:       fmt.Sprintf("s%04d", i),
			FieldUserID:   "u1",
			FieldSaleDate: fmt.Sprintf("2024-03-%02d", i%28+1),
		})
	}
	return records
}

func TestScan_PaginatesSequentially(t *testing.T) {
	src := &countingSource{inner: NewMemorySource(map[string][]Record{TableSales: makeSales(25)})}

	records, err := Scan(context.Background(), src, Query{Table: TableSales}, 100, 10)
	require.NoError(t, err)

	assert.Len(t, records, 25)
	require.Len(t, src.queries, 3)
	assert.Equal(t, 0, src.queries[0].Offset)
	assert.Equal(t, 10, src.queries[1].Offset)
	assert.Equal(t, 20, src.queries[2].Offset)
}

func TestScan_StopsAtLimit(t *testing.T) {
	src := &countingSource{inner: NewMemorySource(map[string][]Record{TableSales: makeSales(25)})}

	records, err := Scan(context.Background(), src, Query{Table: TableSales}, 15, 10)
	require.NoError(t, err)

	assert.Len(t, records, 15)
	require.Len(t, src.queries, 2)
	assert.Equal(t, 5, src.queries[1].Limit)
}

func TestScan_ZeroLimit(t *testing.T) {
	records, err := Scan(context.Background(), NewMemorySource(nil), Query{Table: TableSales}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScan_PropagatesUpstreamError(t *testing.T) {
	src := NewMemorySource(map[string][]Record{TableSales: makeSales(3)})
	src.FailWith(errors.New("connection reset"))

	_, err := Scan(context.Background(), src, Query{Table: TableSales}, 10, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamQuery)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMemorySource_Predicates(t *testing.T) {
	src := NewMemorySource(map[string][]Record{
		TableSales: {
			{FieldID: "a", FieldPlatform: "ebay", FieldSaleDate: "2024-03-01"},
			{FieldID: "b", FieldPlatform: "vinted", FieldSaleDate: "2024-03-15"},
			{FieldID: "c", FieldPlatform: "ebay", FieldSaleDate: "2024-03-31"},
			{FieldID: "d", FieldPlatform: "ebay", FieldSaleDate: "2024-04-01"},
			{FieldID: "e", FieldPlatform: "ebay", FieldSaleDate: "2024-03-20", FieldDeletedAt: "2024-05-01"},
		},
	})

	q := Query{Table: TableSales, OrderBy: FieldSaleDate, CountExact: true}.
		Eq(FieldPlatform, "ebay").
		Between(FieldSaleDate, "2024-03-01", "2024-03-31").
		NotDeleted()

	page, err := src.Select(context.Background(), q)
	require.NoError(t, err)

	ids := make([]string, 0, len(page.Records))
	for _, r := range page.Records {
		ids = append(ids, r.String(FieldID))
	}
	assert.Equal(t, []string{"a", "c"}, ids)
	assert.Equal(t, 2, page.Total)
}

func TestMemorySource_Descending(t *testing.T) {
	src := NewMemorySource(map[string][]Record{TableSales: makeSales(3)})

	page, err := src.Select(context.Background(), Query{Table: TableSales, OrderBy: FieldSaleDate, Descending: true})
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "2024-03-03", page.Records[0].String(FieldSaleDate))
	assert.Equal(t, -1, page.Total)
}

func TestQueryBuilders_DoNotAlias(t *testing.T) {
	base := Query{Table: TableSales}.Eq(FieldPlatform, "ebay")
	a := base.Eq(FieldStatus, "sold")
	b := base.Eq(FieldStatus, "returned")

	require.Len(t, a.Predicates, 2)
	require.Len(t, b.Predicates, 2)
	assert.Equal(t, "sold", a.Predicates[1].Value)
	assert.Equal(t, "returned", b.Predicates[1].Value)
}

func TestQueryBuilders_SkipEmpty(t *testing.T) {
	q := Query{Table: TableSales}.Eq(FieldPlatform, "").Between(FieldSaleDate, "", "")
	assert.Empty(t, q.Predicates)
}

func TestScoped_AddsOwnerPredicate(t *testing.T) {
	src := NewMemorySource(map[string][]Record{
		TableSales: {
			{FieldID: "a", FieldUserID: "u1"},
			{FieldID: "b", FieldUserID: "u2"},
		},
	})

	page, err := ScopeTo(src, "u2").Select(context.Background(), Query{Table: TableSales})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "b", page.Records[0].String(FieldID))
}

func TestRecord_Coercion(t *testing.T) {
	r := Record{
		"num":    12.5,
		"str":    "7.25",
		"int":    3,
		"bad":    "n/a",
		"null":   nil,
		"date":   "2024-03-05T14:00:00Z",
		"nodate": "someday",
	}

	assert.Equal(t, 12.5, r.Float("num"))
	assert.Equal(t, 7.25, r.Float("str"))
	assert.Equal(t, 3.0, r.Float("int"))
	assert.Equal(t, 0.0, r.Float("bad"))
	assert.Equal(t, 0.0, r.Float("null"))
	assert.Equal(t, 0.0, r.Float("missing"))

	d, ok := r.Date("date")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", d.Format("2006-01-02"))

	_, ok = r.Date("nodate")
	assert.False(t, ok)
	_, ok = r.Date("missing")
	assert.False(t, ok)
}

func TestParseFixtures(t *testing.T) {
	data := []byte(`
sales:
  - id: s1
    user_id: u1
    platform: ebay
    sale_date: 2024-03-02
    selling_price: 10
inventory_items:
  - id: i1
    user_id: u1
    title: Denim jacket
    purchase_price: "4.50"
`)
	f, err := ParseFixtures(data)
	require.NoError(t, err)
	require.Len(t, f.Sales, 1)
	require.Len(t, f.Inventory, 1)

	assert.Equal(t, "ebay", f.Sales[0].String(FieldPlatform))
	assert.Equal(t, 10.0, f.Sales[0].Float(FieldSellingPrice))
	assert.Equal(t, 4.5, f.Inventory[0].Float(FieldPurchasePrice))

	assert.Equal(t, "2024-03-02", f.Sales[0][FieldSaleDate])

	d, ok := f.Sales[0].Date(FieldSaleDate)
	require.True(t, ok)
	assert.Equal(t, "2024-03-02", d.Format("2006-01-02"))
}

func TestParseFixtures_MissingID(t *testing.T) {
	_, err := ParseFixtures([]byte("sales:\n  - platform: ebay\n"))
	assert.Error(t, err)
}

func TestLoadFixtures_FileNotFound(t *testing.T) {
	_, err := LoadFixtures("/nonexistent/fixtures.yaml")
	assert.Error(t, err)
}
