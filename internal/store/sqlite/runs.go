package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resell-reports/internal/model"
)

const runColumns = `id, user_id, report_id, filters, options, status, progress, row_count,
	preview, metrics, error, created_at, started_at, completed_at`

// CreateRun inserts a new run.
func (s *Store) CreateRun(ctx context.Context, run *model.Run) error {
	filters, err := json.Marshal(run.Filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	options, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_runs (id, user_id, report_id, filters, options, status, progress, row_count, created_at, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.UserID, run.ReportID, string(filters), string(options),
		string(run.Status), run.Progress, run.RowCount,
		formatTime(run.CreatedAt), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// SetProgress updates the progress of a running run.
func (s *Store) SetProgress(ctx context.Context, id string, progress int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE report_runs SET progress = ? WHERE id = ? AND status = 'running'`, progress, id)
	if err != nil {
		return fmt.Errorf("update run %s progress: %w", id, err)
	}
	return s.checkFinalize(ctx, res, id)
}

// CompleteRun moves a running run to completed.
func (s *Store) CompleteRun(ctx context.Context, id string, result model.RunResult, at time.Time) error {
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	var preview any
	if len(result.Preview) > 0 {
		preview = string(result.Preview)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE report_runs
		SET status = 'completed', progress = ?, row_count = ?, preview = ?, metrics = ?, completed_at = ?
		WHERE id = ? AND status = 'running'`,
		model.ProgressDone, result.RowCount, preview, string(metrics), formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	return s.checkFinalize(ctx, res, id)
}

// FailRun moves a running run to failed with a message.
func (s *Store) FailRun(ctx context.Context, id, message string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE report_runs SET status = 'failed', error = ?, completed_at = ?
		WHERE id = ? AND status = 'running'`,
		message, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("fail run %s: %w", id, err)
	}
	return s.checkFinalize(ctx, res, id)
}

// checkFinalize distinguishes a missing run from one already terminal when
// a conditional update touched nothing.
func (s *Store) checkFinalize(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM report_runs WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("load run %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s is %s", model.ErrRunFinalized, id, status)
}

// GetRun returns the run with id if it belongs to userID.
func (s *Store) GetRun(ctx context.Context, userID, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM report_runs WHERE id = ? AND user_id = ?`, id, userID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return run, nil
}

// ReapStale fails every run still running that started before cutoff.
func (s *Store) ReapStale(ctx context.Context, cutoff, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE report_runs SET status = 'failed', error = ?, completed_at = ?
		WHERE status = 'running' AND started_at < ?`,
		model.StaleRunMessage, formatTime(at), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reap stale runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Warn().Int64("count", n).Msg("reaped stale runs")
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		run                          model.Run
		filters, options, status     string
		preview, metrics, errMessage sql.NullString
		createdAt, startedAt         string
		completedAt                  sql.NullString
	)
	if err := row.Scan(
		&run.ID, &run.UserID, &run.ReportID, &filters, &options, &status,
		&run.Progress, &run.RowCount, &preview, &metrics, &errMessage,
		&createdAt, &startedAt, &completedAt,
	); err != nil {
		return nil, err
	}

	run.Status = model.RunStatus(status)
	run.Error = errMessage.String
	if err := json.Unmarshal([]byte(filters), &run.Filters); err != nil {
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &run.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if preview.Valid && preview.String != "" {
		run.Preview = json.RawMessage(preview.String)
	}
	if metrics.Valid && metrics.String != "" && metrics.String != "null" {
		if err := json.Unmarshal([]byte(metrics.String), &run.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
	}

	var err error
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// Times are stored as fixed-width UTC text so string order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
