package postgrest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resell-reports/internal/config"
	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// setupTestServer creates a test server and client for testing.
func setupTestServer(t *testing.T, handler http.HandlerFunc, retries int) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	cfg := &config.PostgRESTConfig{
		Endpoint: server.URL + "/rest/v1",
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	}
	retryCfg := &config.RetryConfig{
		MaxRetries: retries,
		BaseDelay:  10 * time.Millisecond,
	}
	return server, NewClient(cfg, retryCfg, zerolog.Nop())
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(&config.PostgRESTConfig{Endpoint: "http://localhost:54321"}, nil, zerolog.Nop())

	assert.Equal(t, 30*time.Second, client.timeout)
	assert.Equal(t, 0, client.retry.MaxRetries)
	assert.NotNil(t, client.httpClient)
}

func TestSelect_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/sales", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		query := r.URL.Query()
		assert.Equal(t, "eq.u1", query.Get("user_id"))
		assert.Equal(t, []string{"gte.2024-03-01", "lte.2024-03-31T23:59:59"}, query["sale_date"])
		assert.Equal(t, "is.null", query.Get("deleted_at"))
		assert.Equal(t, "sale_date.desc,id.asc", query.Get("order"))
		assert.Equal(t, "1000", query.Get("offset"))
		assert.Equal(t, "500", query.Get("limit"))
		assert.Empty(t, r.Header.Get("Prefer"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[
			{"id": "s1", "platform": "ebay", "selling_price": 10.5, "platform_fees": null},
			{"id": "s2", "platform": "vinted", "selling_price": "20"}
		]`))
	}

	server, client := setupTestServer(t, handler, 0)
	defer server.Close()

	q := ledger.Query{Table: ledger.TableSales, OrderBy: ledger.FieldSaleDate, Descending: true, Offset: 1000, Limit: 500}.
		Eq(ledger.FieldUserID, "u1").
		Between(ledger.FieldSaleDate, "2024-03-01", "2024-03-31T23:59:59").
		NotDeleted()

	page, err := client.Select(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)

	assert.Equal(t, -1, page.Total)
	assert.Equal(t, 10.5, page.Records[0].Float(ledger.FieldSellingPrice))
	assert.Equal(t, 0.0, page.Records[0].Float(ledger.FieldPlatformFees))
	assert.Equal(t, 20.0, page.Records[1].Float(ledger.FieldSellingPrice))
}

func TestSelect_ExactCount(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", "0-0/3573")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(`[{"id": "i1"}]`))
	}

	server, client := setupTestServer(t, handler, 0)
	defer server.Close()

	page, err := client.Select(context.Background(), ledger.Query{Table: ledger.TableInventory, Limit: 1, CountExact: true})
	require.NoError(t, err)
	assert.Equal(t, 3573, page.Total)
	assert.Len(t, page.Records, 1)
}

func TestSelect_UpstreamError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "column sales.nope does not exist"}`))
	}

	server, client := setupTestServer(t, handler, 0)
	defer server.Close()

	_, err := client.Select(context.Background(), ledger.Query{Table: ledger.TableSales})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamQuery)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "does not exist")
}

func TestSelect_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	server, client := setupTestServer(t, handler, 0)
	defer server.Close()

	_, err := client.Select(context.Background(), ledger.Query{Table: ledger.TableSales})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSelect_RetriesServerErrorsWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}

	server, client := setupTestServer(t, handler, 2)
	defer server.Close()

	page, err := client.Select(context.Background(), ledger.Query{Table: ledger.TableSales})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBuildParams_Minimal(t *testing.T) {
	params := buildParams(ledger.Query{Table: ledger.TableSales})

	assert.Equal(t, "*", params.Get("select"))
	assert.Empty(t, params.Get("order"))
	assert.Empty(t, params.Get("offset"))
	assert.Empty(t, params.Get("limit"))
}

func TestParseContentRangeTotal(t *testing.T) {
	tests := []struct {
		header string
		want   int
	}{
		{"0-24/3573", 3573},
		{"*/0", 0},
		{"0-24/*", -1},
		{"", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseContentRangeTotal(tt.header), tt.header)
	}
}
