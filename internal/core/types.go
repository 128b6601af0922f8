package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/histnorm/internal/frame"
)

// DefaultCountryColumn is the raw column holding country names when a
// dataset does not name one.
const DefaultCountryColumn = "Country"

// Info contains display information about a dataset.
type Info struct {
	ID          string `json:"id"`                    // Canonical identifier: "T001"
	Name        string `json:"name"`                  // Display name
	Description string `json:"description,omitempty"` // Free text
}

// CheckFunc inspects a raw table and reports anything unexpected about it.
// A non-nil error is logged and recorded as a warning; processing continues.
type CheckFunc func(raw *frame.Frame) error

// TransformFunc turns a raw table (after column drops) into a table with at
// least Country, Year, Value and Unit columns. It may modify and return its
// argument. It is called exactly once per run.
type TransformFunc func(ctx context.Context, raw *frame.Frame) (*frame.Frame, error)

// ColumnConfig lists column-level preparation applied before Transform.
type ColumnConfig struct {
	// Drop names raw columns removed before Transform. Every listed column
	// must exist.
	Drop []string

	// CountryColumn names the column holding country names after Transform.
	// Defaults to DefaultCountryColumn.
	CountryColumn string
}

// Dataset contains everything needed to normalize one source table.
//
// Only Info.ID and Transform are required. The remaining capabilities are
// optional and are skipped, with an informational log line, when nil.
type Dataset struct {
	Info      Info
	Check     CheckFunc
	Columns   *ColumnConfig
	Transform TransformFunc

	// CommonDims assigns a constant to a canonical dimension for every row.
	// Keys are dimension names ("vehicle_type") or headers ("Vehicle Type").
	CommonDims map[string]string
}

// countryColumn returns the configured country column.
func (d Dataset) countryColumn() string {
	if d.Columns != nil && d.Columns.CountryColumn != "" {
		return d.Columns.CountryColumn
	}
	return DefaultCountryColumn
}

// dropColumns returns the configured drop list, which may be empty.
func (d Dataset) dropColumns() []string {
	if d.Columns == nil {
		return nil
	}
	return d.Columns.Drop
}

// Sink receives every finished canonical table after the output files are
// written.
type Sink interface {
	Name() string
	Publish(ctx context.Context, datasetID string, table *frame.Frame) error
}

// RunStatus is the outcome recorded for a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunEntry is the audit record of one pipeline run.
type RunEntry struct {
	RunID     string
	DatasetID string
	Status    RunStatus
	Rows      int
	Warnings  []string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// RunRecorder keeps an audit trail of pipeline runs. A recording failure is
// logged and does not change the run's outcome.
type RunRecorder interface {
	RecordRun(ctx context.Context, entry RunEntry) error
}

// Result contains the outcome of one pipeline run.
type Result struct {
	RunID     string        `json:"run_id"`
	DatasetID string        `json:"dataset_id"`
	Rows      int           `json:"rows"`
	Warnings  []string      `json:"warnings,omitempty"`
	LongPath  string        `json:"long_path"`
	WidePath  string        `json:"wide_path"`
	Published []string      `json:"published,omitempty"`
	Duration  time.Duration `json:"duration"`

	// Table is the canonical long-format table.
	Table *frame.Frame `json:"-"`
}
