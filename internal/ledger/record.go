package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Record is one loosely typed ledger row as returned by a store.
type Record map[string]any

// Float returns the numeric value of key, or 0 for nulls and malformed values.
func (r Record) Float(key string) float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

// String returns the trimmed string value of key, or "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// Date returns the calendar date of key in UTC. The second result is false
// when the value is absent or unparseable.
func (r Record) Date(key string) (time.Time, bool) {
	s := r.String(key)
	if s == "" {
		if t, ok := r[key].(time.Time); ok {
			return truncateDay(t), true
		}
		return time.Time{}, false
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, false
	}
	return truncateDay(t), true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Scoped restricts every query issued through it to one owner.
type Scoped struct {
	src    Source
	userID string
}

// ScopeTo returns a Source whose queries are limited to userID's records.
func ScopeTo(src Source, userID string) *Scoped {
	return &Scoped{src: src, userID: userID}
}

// Select implements Source.
func (s *Scoped) Select(ctx context.Context, q Query) (*Page, error) {
	q.Predicates = append([]Predicate{{Field: FieldUserID, Op: OpEq, Value: s.userID}}, q.Predicates...)
	return s.src.Select(ctx, q)
}
