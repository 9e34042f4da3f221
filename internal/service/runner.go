// Package service provides the report runner: one-shot execution of report
// definitions and the persisted run lifecycle around it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"resell-reports/internal/definition"
	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
	"resell-reports/internal/report"
	"resell-reports/internal/runstore"
)

// Formats served by the export operations.
const (
	FormatSpreadsheet = "excel"
	FormatPrint       = "html"
)

// Limits bounds the rows fetched for each kind of execution.
type Limits struct {
	Run         int // runReport safety ceiling
	Spreadsheet int // spreadsheet re-execution
	Print       int // print document re-execution
	Preview     int // rows kept on the run
}

// DefaultLimits returns the standard row ceilings.
func DefaultLimits() Limits {
	return Limits{Run: 10000, Spreadsheet: 50000, Print: 500, Preview: 50}
}

// Runner executes reports and manages their persisted runs.
type Runner struct {
	registry *definition.Registry
	source   ledger.Source
	runs     runstore.Store
	writers  *report.Registry
	limits   Limits
	timezone *time.Location
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger
}

// RunnerOption is a functional option for configuring a Runner.
type RunnerOption func(*Runner)

// WithLimits overrides the row ceilings. Zero fields keep their defaults.
func WithLimits(l Limits) RunnerOption {
	return func(r *Runner) {
		if l.Run > 0 {
			r.limits.Run = l.Run
		}
		if l.Spreadsheet > 0 {
			r.limits.Spreadsheet = l.Spreadsheet
		}
		if l.Print > 0 {
			r.limits.Print = l.Print
		}
		if l.Preview > 0 {
			r.limits.Preview = l.Preview
		}
	}
}

// WithClock sets the clock used for run timestamps and export dates.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithIDGenerator sets the run identifier generator.
func WithIDGenerator(newID func() string) RunnerOption {
	return func(r *Runner) {
		r.newID = newID
	}
}

// WithTimezone sets the timezone used for export file dates.
func WithTimezone(loc *time.Location) RunnerOption {
	return func(r *Runner) {
		if loc != nil {
			r.timezone = loc
		}
	}
}

// NewRunner creates a new Runner with the given dependencies.
func NewRunner(
	registry *definition.Registry,
	source ledger.Source,
	runs runstore.Store,
	writers *report.Registry,
	logger zerolog.Logger,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		registry: registry,
		source:   source,
		runs:     runs,
		writers:  writers,
		limits:   DefaultLimits(),
		timezone: time.UTC,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger.With().Str("component", "runner").Logger(),
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Execution is the result of one report computation.
type Execution struct {
	Meta     *model.ReportMeta
	Filters  model.Filters // effective filters, defaults applied
	Rows     []model.Row
	Metrics  model.Metrics
	RowCount int
	Preview  []model.Row
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Reports returns the schema of every registered report.
func (r *Runner) Reports() []*model.ReportMeta {
	defs := r.registry.List()
	metas := make([]*model.ReportMeta, 0, len(defs))
	for _, d := range defs {
		metas = append(metas, d.Meta())
	}
	return metas
}

// ExecuteReport computes a report for userID without persisting anything.
func (r *Runner) ExecuteReport(ctx context.Context, userID, reportID string, filters model.Filters, limit int) (*Execution, error) {
	if userID == "" {
		return nil, model.ErrUnauthorized
	}
	def, err := r.registry.Lookup(reportID)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, def, userID, filters, limit, nil)
}

func (r *Runner) execute(
	ctx context.Context,
	def definition.Definition,
	userID string,
	filters model.Filters,
	limit int,
	afterFetch func(),
) (exec *Execution, err error) {
	meta := def.Meta()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("report %s: %v", meta.ID, p)
		}
	}()

	effective := filters.Merge(meta.DefaultFilters)
	rows, err := def.FetchRows(ctx, ledger.ScopeTo(r.source, userID), effective, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s rows: %w", meta.ID, err)
	}
	if afterFetch != nil {
		afterFetch()
	}

	metrics := def.ComputeMetrics(rows)

	preview := rows
	if len(preview) > r.limits.Preview {
		preview = preview[:r.limits.Preview]
	}

	return &Execution{
		Meta:     meta,
		Filters:  effective,
		Rows:     rows,
		Metrics:  metrics,
		RowCount: len(rows),
		Preview:  preview,
	}, nil
}

// RunReport creates a run, executes the report at the run ceiling and
// records the outcome. The run is always terminal when RunReport returns
// after creating it; execution errors are returned after the run is marked
// failed.
func (r *Runner) RunReport(ctx context.Context, userID, reportID string, filters model.Filters, opts model.ExportOptions) (*model.Run, error) {
	if userID == "" {
		return nil, model.ErrUnauthorized
	}
	def, err := r.registry.Lookup(reportID)
	if err != nil {
		return nil, err
	}

	run := model.NewRun(r.newID(), userID, def.Meta().ID, filters, opts, r.now())
	if err := r.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	logger := r.logger.With().Str("run_id", run.ID).Str("report_id", run.ReportID).Logger()
	logger.Info().Msg("starting report run")
	start := time.Now()

	exec, err := r.execute(ctx, def, userID, filters, r.limits.Run, func() {
		if err := r.runs.SetProgress(ctx, run.ID, model.ProgressFetched); err != nil {
			logger.Warn().Err(err).Msg("failed to record progress")
		}
	})
	if err == nil {
		var preview []byte
		if preview, err = json.Marshal(exec.Preview); err != nil {
			err = fmt.Errorf("%w: encode preview: %v", model.ErrRender, err)
		} else {
			result := model.RunResult{RowCount: exec.RowCount, Preview: preview, Metrics: exec.Metrics}
			if err = r.runs.CompleteRun(context.WithoutCancel(ctx), run.ID, result, r.now()); err != nil {
				err = fmt.Errorf("complete run: %w", err)
			}
		}
	}

	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("report run failed")
		if ferr := r.runs.FailRun(context.WithoutCancel(ctx), run.ID, err.Error(), r.now()); ferr != nil && !errors.Is(ferr, model.ErrRunFinalized) {
			logger.Error().Err(ferr).Msg("failed to record run failure")
		}
		return nil, err
	}

	logger.Info().
		Int("row_count", exec.RowCount).
		Dur("duration", time.Since(start)).
		Msg("report run completed")

	return r.runs.GetRun(ctx, userID, run.ID)
}

// GetRun returns a run owned by userID.
func (r *Runner) GetRun(ctx context.Context, userID, runID string) (*model.Run, error) {
	if userID == "" {
		return nil, model.ErrUnauthorized
	}
	return r.runs.GetRun(ctx, userID, runID)
}

// BuildSpreadsheet re-executes a completed run at the spreadsheet ceiling and
// renders it as a workbook.
func (r *Runner) BuildSpreadsheet(ctx context.Context, userID, runID string) (*Document, error) {
	return r.Export(ctx, userID, runID, FormatSpreadsheet, nil)
}

// BuildPrintDocument re-executes a completed run at the print ceiling and
// renders it as a print document.
func (r *Runner) BuildPrintDocument(ctx context.Context, userID, runID string, opts model.ExportOptions) (*Document, error) {
	return r.Export(ctx, userID, runID, FormatPrint, &opts)
}

// Export renders a completed run in the given format. A nil opts uses the
// options stored on the run.
func (r *Runner) Export(ctx context.Context, userID, runID, format string, opts *model.ExportOptions) (*Document, error) {
	writer, data, run, err := r.prepareExport(ctx, userID, runID, format, opts)
	if err != nil {
		return nil, err
	}

	content, err := writer.Render(data)
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("run_id", run.ID).
		Str("format", writer.Format()).
		Int("rows", len(data.Rows)).
		Int("bytes", len(content)).
		Msg("export rendered")

	return &Document{
		Filename:    r.exportFilename(run.ReportID, writer),
		ContentType: writer.ContentType(),
		Content:     content,
	}, nil
}

// ExportToDir renders a completed run into dir and returns the file path.
func (r *Runner) ExportToDir(ctx context.Context, userID, runID, format, dir string) (string, error) {
	writer, data, run, err := r.prepareExport(ctx, userID, runID, format, nil)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, r.exportFilename(run.ReportID, writer))
	if err := writer.Write(data, path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Runner) prepareExport(
	ctx context.Context,
	userID, runID, format string,
	opts *model.ExportOptions,
) (report.ReportWriter, *model.ReportData, *model.Run, error) {
	writer, err := r.writers.Get(format)
	if err != nil {
		return nil, nil, nil, err
	}

	run, err := r.GetRun(ctx, userID, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if run.Status != model.RunStatusCompleted {
		return nil, nil, nil, fmt.Errorf("%w: %s is %s", model.ErrRunNotCompleted, run.ID, run.Status)
	}

	def, err := r.registry.Lookup(run.ReportID)
	if err != nil {
		return nil, nil, nil, err
	}

	limit := r.limits.Spreadsheet
	if writer.Format() == FormatPrint {
		limit = r.limits.Print
	}
	exec, err := r.execute(ctx, def, userID, run.Filters, limit, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	options := run.Options
	if opts != nil {
		options = *opts
	}

	return writer, &model.ReportData{
		Meta:        exec.Meta,
		Filters:     exec.Filters,
		Rows:        exec.Rows,
		Metrics:     exec.Metrics,
		Options:     options,
		GeneratedAt: r.now(),
	}, run, nil
}

// exportFilename is "<reportId>-<YYYY-MM-DD><ext>".
func (r *Runner) exportFilename(reportID string, writer report.ReportWriter) string {
	return fmt.Sprintf("%s-%s%s", reportID, r.now().In(r.timezone).Format("2006-01-02"), writer.Extension())
}
