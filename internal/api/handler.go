package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"resell-reports/internal/model"
	"resell-reports/internal/service"
)

// Reports is the report operations the HTTP surface exposes.
type Reports interface {
	Reports() []*model.ReportMeta
	RunReport(ctx context.Context, userID, reportID string, filters model.Filters, opts model.ExportOptions) (*model.Run, error)
	GetRun(ctx context.Context, userID, runID string) (*model.Run, error)
	BuildSpreadsheet(ctx context.Context, userID, runID string) (*service.Document, error)
	BuildPrintDocument(ctx context.Context, userID, runID string, opts model.ExportOptions) (*service.Document, error)
}

// Handler serves the report endpoints.
type Handler struct {
	reports Reports
}

// NewHandler creates a Handler.
func NewHandler(reports Reports) *Handler {
	return &Handler{reports: reports}
}

type runRequest struct {
	ReportID string        `json:"report_id"`
	Filters  model.Filters `json:"filters"`
	Options  struct {
		IncludeMetrics  *bool `json:"include_metrics"`
		IncludeItemList *bool `json:"include_item_list"`
	} `json:"options"`
}

func (r runRequest) exportOptions() model.ExportOptions {
	opts := model.DefaultExportOptions()
	if r.Options.IncludeMetrics != nil {
		opts.IncludeMetrics = *r.Options.IncludeMetrics
	}
	if r.Options.IncludeItemList != nil {
		opts.IncludeItemList = *r.Options.IncludeItemList
	}
	return opts
}

// ListReports returns every report definition.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.reports.Reports())
}

// CreateRun executes a report and returns the finished run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}

	run, err := h.reports.RunReport(r.Context(), UserID(r.Context()), body.ReportID, body.Filters, body.exportOptions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, run)
}

// GetRun returns one run owned by the caller.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.reports.GetRun(r.Context(), UserID(r.Context()), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// DownloadSpreadsheet streams the workbook export of a completed run.
func (h *Handler) DownloadSpreadsheet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.reports.BuildSpreadsheet(r.Context(), UserID(r.Context()), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	writeDocument(w, r, doc)
}

// PrintDocument returns the printable document of a completed run.
func (h *Handler) PrintDocument(w http.ResponseWriter, r *http.Request) {
	opts := model.DefaultExportOptions()
	query := r.URL.Query()
	for param, dst := range map[string]*bool{
		"include_metrics": &opts.IncludeMetrics,
		"include_list":    &opts.IncludeItemList,
	} {
		raw := query.Get(param)
		if raw == "" {
			continue
		}
		v, err := cast.ToBoolE(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %s must be a boolean", errBadRequest, param))
			return
		}
		*dst = v
	}

	doc, err := h.reports.BuildPrintDocument(r.Context(), UserID(r.Context()), chi.URLParam(r, "runID"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, r, doc)
}

func writeDocument(w http.ResponseWriter, r *http.Request, doc *service.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("filename", doc.Filename).Msg("failed to write document")
	}
}
