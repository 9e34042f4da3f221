package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"resell-reports/internal/model"
)

// MemorySource is a Source backed by in-process tables. It is used for
// fixture-driven demos and tests.
type MemorySource struct {
	mu     sync.RWMutex
	tables map[string][]Record
	// failWith, when set, is returned by every Select.
	failWith error
}

// NewMemorySource creates a MemorySource holding the given tables.
func NewMemorySource(tables map[string][]Record) *MemorySource {
	m := &MemorySource{tables: make(map[string][]Record)}
	for name, records := range tables {
		m.tables[name] = append([]Record(nil), records...)
	}
	return m
}

// Insert appends records to a table.
func (m *MemorySource) Insert(table string, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], records...)
}

// FailWith makes every subsequent Select return err wrapped as an upstream failure.
func (m *MemorySource) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Select implements Source.
func (m *MemorySource) Select(ctx context.Context, q Query) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failWith != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamQuery, m.failWith)
	}
	table, ok := m.tables[q.Table]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", model.ErrUpstreamQuery, q.Table)
	}

	matched := make([]Record, 0, len(table))
	for _, r := range table {
		if matchAll(r, q.Predicates) {
			matched = append(matched, r)
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := matched[i].String(q.OrderBy), matched[j].String(q.OrderBy)
			if a == b {
				return matched[i].String(FieldID) < matched[j].String(FieldID)
			}
			if q.Descending {
				return a > b
			}
			return a < b
		})
	}

	total := -1
	if q.CountExact {
		total = len(matched)
	}

	start := min(q.Offset, len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}
	return &Page{Records: matched[start:end], Total: total}, nil
}

func matchAll(r Record, preds []Predicate) bool {
	for _, p := range preds {
		if !match(r, p) {
			return false
		}
	}
	return true
}

func match(r Record, p Predicate) bool {
	v := r.String(p.Field)
	switch p.Op {
	case OpEq:
		return v == p.Value
	case OpGte:
		return v != "" && v >= p.Value
	case OpLte:
		return v != "" && v <= p.Value
	case OpIsNull:
		return v == ""
	default:
		return false
	}
}
