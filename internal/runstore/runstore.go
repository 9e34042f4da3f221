// Package runstore defines persistence for report runs and provides an
// in-memory implementation.
package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"resell-reports/internal/model"
)

// Store persists report runs.
//
// Terminal writes are conditional on the run still being running; a second
// terminal write returns model.ErrRunFinalized. Reads are scoped to the
// owning user and return model.ErrRunNotFound otherwise.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	SetProgress(ctx context.Context, id string, progress int) error
	CompleteRun(ctx context.Context, id string, result model.RunResult, at time.Time) error
	FailRun(ctx context.Context, id, message string, at time.Time) error
	GetRun(ctx context.Context, userID, id string) (*model.Run, error)
	// ReapStale fails runs still running that started before cutoff.
	ReapStale(ctx context.Context, cutoff, at time.Time) (int, error)
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*model.Run
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*model.Run)}
}

// CreateRun implements Store.
func (m *Memory) CreateRun(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	m.runs[run.ID] = cloneRun(run)
	return nil
}

// SetProgress implements Store.
func (m *Memory) SetProgress(_ context.Context, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, err := m.running(id)
	if err != nil {
		return err
	}
	run.Progress = progress
	return nil
}

// CompleteRun implements Store.
func (m *Memory) CompleteRun(_ context.Context, id string, result model.RunResult, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, err := m.running(id)
	if err != nil {
		return err
	}
	run.Status = model.RunStatusCompleted
	run.Progress = model.ProgressDone
	run.RowCount = result.RowCount
	run.Preview = append(json.RawMessage(nil), result.Preview...)
	run.Metrics = cloneMetrics(result.Metrics)
	run.CompletedAt = &at
	return nil
}

// FailRun implements Store.
func (m *Memory) FailRun(_ context.Context, id, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, err := m.running(id)
	if err != nil {
		return err
	}
	run.Status = model.RunStatusFailed
	run.Error = message
	run.CompletedAt = &at
	return nil
}

// GetRun implements Store.
func (m *Memory) GetRun(_ context.Context, userID, id string) (*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok || run.UserID != userID {
		return nil, model.ErrRunNotFound
	}
	return cloneRun(run), nil
}

// ReapStale implements Store.
func (m *Memory) ReapStale(_ context.Context, cutoff, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, run := range m.runs {
		if run.Status == model.RunStatusRunning && run.StartedAt.Before(cutoff) {
			run.Status = model.RunStatusFailed
			run.Error = model.StaleRunMessage
			completed := at
			run.CompletedAt = &completed
			n++
		}
	}
	return n, nil
}

// running must be called with mu held.
func (m *Memory) running(id string) (*model.Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, model.ErrRunNotFound
	}
	if run.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", model.ErrRunFinalized, id, run.Status)
	}
	return run, nil
}

func cloneRun(run *model.Run) *model.Run {
	c := *run
	if run.Filters != nil {
		c.Filters = run.Filters.Merge(nil)
	}
	c.Metrics = cloneMetrics(run.Metrics)
	if run.Preview != nil {
		c.Preview = append(json.RawMessage(nil), run.Preview...)
	}
	if run.CompletedAt != nil {
		t := *run.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneMetrics(m model.Metrics) model.Metrics {
	if m == nil {
		return nil
	}
	out := make(model.Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
