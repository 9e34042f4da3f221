package definition

import (
	"fmt"
	"strings"
	"time"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// Registry is the immutable set of report definitions, keyed by identifier.
type Registry struct {
	byID    map[string]Definition
	ordered []Definition
}

// Option configures the environment of the built-in definitions.
type Option func(*env)

// WithClock sets the clock used for "today" in age calculations.
func WithClock(now func() time.Time) Option {
	return func(e *env) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the timezone that decides the current calendar date.
func WithLocation(loc *time.Location) Option {
	return func(e *env) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithPageSize sets the number of ledger records fetched per round trip.
func WithPageSize(n int) Option {
	return func(e *env) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithAggregateLimit caps the ledger records read by grouping reports.
func WithAggregateLimit(n int) Option {
	return func(e *env) {
		if n > 0 {
			e.aggregateLimit = n
		}
	}
}

// DefaultAggregateLimit is the record cap of grouping reports.
const DefaultAggregateLimit = 50000

// NewRegistry builds the registry of built-in definitions.
func NewRegistry(opts ...Option) *Registry {
	e := env{
		now:            time.Now,
		location:       time.UTC,
		pageSize:       ledger.DefaultPageSize,
		aggregateLimit: DefaultAggregateLimit,
	}
	for _, opt := range opts {
		opt(&e)
	}

	return newRegistry(
		newSalesSummary(e),
		newProfitByMonth(e),
		newInventoryAging(e),
		newFeesBreakdown(e),
	)
}

func newRegistry(defs ...Definition) *Registry {
	r := &Registry{
		byID:    make(map[string]Definition, len(defs)),
		ordered: make([]Definition, 0, len(defs)),
	}
	for _, d := range defs {
		id := d.Meta().ID
		if _, dup := r.byID[id]; dup {
			panic(fmt.Sprintf("duplicate report definition %q", id))
		}
		r.byID[id] = d
		r.ordered = append(r.ordered, d)
	}
	return r
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, error) {
	d, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownReport, id)
	}
	return d, nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	return append([]Definition(nil), r.ordered...)
}

// IDs returns the registered identifiers in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.ordered))
	for i, d := range r.ordered {
		ids[i] = d.Meta().ID
	}
	return ids
}
