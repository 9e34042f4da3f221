package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resell-reports/internal/definition"
	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
	"resell-reports/internal/report"
	"resell-reports/internal/runstore"
	"resell-reports/internal/service"
)

type mockReports struct {
	mock.Mock
}

func (m *mockReports) Reports() []*model.ReportMeta {
	args := m.Called()
	return args.Get(0).([]*model.ReportMeta)
}

func (m *mockReports) RunReport(
	ctx context.Context,
	userID, reportID string,
	filters model.Filters,
	opts model.ExportOptions,
) (*model.Run, error) {
	args := m.Called(ctx, userID, reportID, filters, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockReports) GetRun(ctx context.Context, userID, runID string) (*model.Run, error) {
	args := m.Called(ctx, userID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockReports) BuildSpreadsheet(ctx context.Context, userID, runID string) (*service.Document, error) {
	args := m.Called(ctx, userID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Document), args.Error(1)
}

func (m *mockReports) BuildPrintDocument(
	ctx context.Context,
	userID, runID string,
	opts model.ExportOptions,
) (*service.Document, error) {
	args := m.Called(ctx, userID, runID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Document), args.Error(1)
}

func newTestRouter(reports Reports) http.Handler {
	logger := zerolog.Nop()
	return NewRouter(NewHandler(reports), &logger)
}

func do(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAPI_RequiresIdentity(t *testing.T) {
	h := newTestRouter(new(mockReports))

	for _, path := range []string{"/api/v1/reports", "/api/v1/reports/runs/r1"} {
		rec := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "unauthorized", decodeError(t, rec))
	}
}

func TestAPI_ListReports(t *testing.T) {
	m := new(mockReports)
	m.On("Reports").Return([]*model.ReportMeta{{ID: "sales-summary", Title: "Sales Summary"}})

	rec := do(t, newTestRouter(m), http.MethodGet, "/api/v1/reports", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metas []model.ReportMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, "sales-summary", metas[0].ID)
}

func TestAPI_CreateRun(t *testing.T) {
	m := new(mockReports)
	run := &model.Run{ID: "r1", ReportID: "fees-breakdown", Status: model.RunStatusCompleted, RowCount: 3}
	m.On("RunReport", mock.Anything, "u1", "fees-breakdown",
		model.Filters{"platform": "ebay"},
		model.ExportOptions{IncludeMetrics: true, IncludeItemList: false},
	).Return(run, nil)

	rec := do(t, newTestRouter(m), http.MethodPost, "/api/v1/reports/runs", "u1", map[string]any{
		"report_id": "fees-breakdown",
		"filters":   map[string]any{"platform": "ebay"},
		"options":   map[string]any{"include_item_list": false},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got["run_id"])
	assert.Equal(t, "completed", got["status"])
	assert.EqualValues(t, 3, got["row_count"])
	m.AssertExpectations(t)
}

func TestAPI_CreateRun_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		err        error
		wantStatus int
	}{
		{name: "invalid json", body: "{not json", wantStatus: http.StatusBadRequest},
		{name: "unknown report", body: map[string]any{"report_id": "nope"}, err: model.ErrUnknownReport, wantStatus: http.StatusBadRequest},
		{name: "upstream failure", body: map[string]any{"report_id": "sales-summary"}, err: model.ErrUpstreamQuery, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockReports)
			if tt.err != nil {
				m.On("RunReport", mock.Anything, "u1", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			rec := do(t, newTestRouter(m), http.MethodPost, "/api/v1/reports/runs", "u1", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestAPI_GetRun_StatusMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{err: model.ErrRunNotFound, wantStatus: http.StatusNotFound},
		{err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		m := new(mockReports)
		m.On("GetRun", mock.Anything, "u1", "r1").Return(nil, tt.err)

		rec := do(t, newTestRouter(m), http.MethodGet, "/api/v1/reports/runs/r1", "u1", nil)
		assert.Equal(t, tt.wantStatus, rec.Code)
	}

	m := new(mockReports)
	m.On("GetRun", mock.Anything, "u1", "r1").Return(nil, errors.New("disk on fire"))
	rec := do(t, newTestRouter(m), http.MethodGet, "/api/v1/reports/runs/r1", "u1", nil)
	assert.Equal(t, "Internal Server Error", decodeError(t, rec))
}

func TestAPI_DownloadSpreadsheet(t *testing.T) {
	m := new(mockReports)
	m.On("BuildSpreadsheet", mock.Anything, "u1", "r1").Return(&service.Document{
		Filename:    "sales-summary-2024-06-15.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PK"),
	}, nil)

	rec := do(t, newTestRouter(m), http.MethodGet, "/api/v1/reports/runs/r1/spreadsheet", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="sales-summary-2024-06-15.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK", rec.Body.String())
}

func TestAPI_DownloadSpreadsheet_NotCompleted(t *testing.T) {
	m := new(mockReports)
	m.On("BuildSpreadsheet", mock.Anything, "u1", "r1").Return(nil, model.ErrRunNotCompleted)

	rec := do(t, newTestRouter(m), http.MethodGet, "/api/v1/reports/runs/r1/spreadsheet", "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_PrintDocument_Options(t *testing.T) {
	m := new(mockReports)
	m.On("BuildPrintDocument", mock.Anything, "u1", "r1",
		model.ExportOptions{IncludeMetrics: false, IncludeItemList: true},
	).Return(&service.Document{ContentType: "text/html; charset=utf-8", Content: []byte("<html></html>")}, nil)

	h := newTestRouter(m)
	rec := do(t, h, http.MethodGet, "/api/v1/reports/runs/r1/print?include_metrics=false", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/api/v1/reports/runs/r1/print?include_list=maybe", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.AssertExpectations(t)
}

func TestAPI_EndToEnd(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	source := ledger.NewMemorySource(map[string][]ledger.Record{
		ledger.TableSales: {
			{ledger.FieldID: "s1", ledger.FieldUserID: "u1", ledger.FieldPlatform: "vinted", ledger.FieldSaleDate: "2024-06-01", ledger.FieldSellingPrice: 30.0, ledger.FieldNetProfit: 12.0},
			{ledger.FieldID: "s2", ledger.FieldUserID: "u2", ledger.FieldPlatform: "ebay", ledger.FieldSaleDate: "2024-06-02", ledger.FieldSellingPrice: 99.0},
		},
		ledger.TableInventory: nil,
	})
	runner := service.NewRunner(
		definition.NewRegistry(definition.WithClock(clock)),
		source,
		runstore.NewMemory(),
		report.NewRegistry(report.Options{}),
		zerolog.Nop(),
		service.WithClock(clock),
	)
	h := newTestRouter(runner)

	rec := do(t, h, http.MethodPost, "/api/v1/reports/runs", "u1", map[string]any{"report_id": "sales-summary"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.RowCount)

	rec = do(t, h, http.MethodGet, "/api/v1/reports/runs/"+run.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/reports/runs/"+run.ID+"/print", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "£30.00")
	assert.NotContains(t, rec.Body.String(), "£99.00")
}
