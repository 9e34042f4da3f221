// Package model provides data models for the report engine.
package model

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// FormatKind tells renderers how a column or metric value is displayed.
type FormatKind string

const (
	FormatText     FormatKind = "text"
	FormatNumber   FormatKind = "number"
	FormatCurrency FormatKind = "currency"
	FormatPercent  FormatKind = "percent" // stored as 0-100, not 0-1
	FormatDate     FormatKind = "date"
)

// Column describes one output column of a report.
type Column struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Format FormatKind `json:"format"`
}

// MetricSpec describes one summary metric of a report.
type MetricSpec struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Format FormatKind `json:"format"`
}

// ReportMeta is the static, declarative half of a report definition.
type ReportMeta struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Category       string       `json:"category"`
	Description    string       `json:"description,omitempty"`
	Columns        []Column     `json:"columns"`
	Metrics        []MetricSpec `json:"metrics"`
	DefaultFilters Filters      `json:"default_filters,omitempty"`
	TotalColumns   []string     `json:"total_columns,omitempty"`
}

// IsTotalColumn reports whether the column key participates in the totals row.
func (m *ReportMeta) IsTotalColumn(key string) bool {
	for _, k := range m.TotalColumns {
		if k == key {
			return true
		}
	}
	return false
}

// Filter keys understood by the built-in reports.
const (
	FilterStartDate = "start_date"
	FilterEndDate   = "end_date"
	FilterPlatform  = "platform"
	FilterStatus    = "status"
	FilterCategory  = "category"
	FilterAgeBucket = "age_bucket"
)

// Filters is the loosely typed filter record of one report execution.
// Values are coerced on read; unknown keys are ignored.
type Filters map[string]any

// String returns the trimmed string value for key. Empty strings and the
// literal "all" both mean the filter is unset.
func (f Filters) String(key string) string {
	if f == nil {
		return ""
	}
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	s := strings.TrimSpace(cast.ToString(v))
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// Date returns the value for key normalized to YYYY-MM-DD, or "" when the
// value is missing or cannot be parsed as a date.
func (f Filters) Date(key string) string {
	s := f.String(key)
	if s == "" {
		return ""
	}
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return s[:10]
		}
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// Merge returns a new Filters with defaults overlaid by f.
func (f Filters) Merge(defaults Filters) Filters {
	out := make(Filters, len(defaults)+len(f))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range f {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether none of the display-relevant filters are set.
func (f Filters) IsEmpty() bool {
	for _, k := range []string{FilterStartDate, FilterEndDate, FilterPlatform, FilterStatus, FilterCategory, FilterAgeBucket} {
		if f.String(k) != "" {
			return false
		}
	}
	return true
}

// Row is one output row of a report. Each report has its own concrete row
// type; renderers read cells through the declared column keys.
type Row interface {
	Field(key string) any
}

// Metrics is the flat summary computed once per execution.
type Metrics map[string]any

// ExportOptions controls what the print document contains.
type ExportOptions struct {
	IncludeMetrics  bool `json:"include_metrics"`
	IncludeItemList bool `json:"include_item_list"`
}

// DefaultExportOptions includes everything.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludeMetrics: true, IncludeItemList: true}
}

// ReportData is the input shared by all renderers.
type ReportData struct {
	Meta        *ReportMeta
	Filters     Filters
	Rows        []Row
	Metrics     Metrics
	Options     ExportOptions
	GeneratedAt time.Time
}

// Age bucket labels. Upper edges are inclusive.
const (
	AgeBucketFresh  = "0–30 days"
	AgeBucketRecent = "31–60 days"
	AgeBucketAging  = "61–90 days"
	AgeBucketStale  = "90+ days"

	// StaleAfterDays is the days_held threshold of the stale subset.
	StaleAfterDays = 90
)

// AgeBucketLabel maps an age_bucket filter value ("30", "60", "90", "90+")
// to its bucket label, or "" for anything else.
func AgeBucketLabel(filter string) string {
	switch filter {
	case "30":
		return AgeBucketFresh
	case "60":
		return AgeBucketRecent
	case "90":
		return AgeBucketAging
	case "90+":
		return AgeBucketStale
	}
	return ""
}
