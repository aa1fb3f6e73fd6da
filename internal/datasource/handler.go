// Package datasource defines the uniform read contract every backend
// implements, and the registry that resolves a configured handler name to a
// constructor.
package datasource

import (
	"context"

	"postergen/internal/common/config"
	"postergen/internal/common/logger"
)

// Handler is the uniform read interface over a tabular backend. Handlers
// carry no state beyond connection and auth parameters; they are stateless
// with respect to any one fetch and safe to reuse across calls within a run.
type Handler interface {
	// FetchRecord returns the raw row for the given case identifier,
	// positionally aligned with the configured field list. It fails with
	// CASE_NOT_FOUND when no row matches, SCHEMA_MISMATCH when the row
	// width differs from the field list, and AUTHENTICATION_FAILED or
	// CONNECTION_FAILED on backend access problems.
	FetchRecord(ctx context.Context, caseID string) ([]string, error)

	// ListPages returns the backend's top-level containers in native order.
	ListPages(ctx context.Context) ([]string, error)

	// ListColumnNames returns the values of the given 1-based header row.
	ListColumnNames(ctx context.Context, page string, headerRow int) ([]string, error)

	// ListColumnValues returns every data-row value of the given 1-based
	// column, beneath the header row.
	ListColumnValues(ctx context.Context, page string, columnIndex int) ([]string, error)
}

// Options carries everything a backend needs at construction time. KeyColumn
// and FieldCount are derived by the pipeline from the field list and the
// case_id mapping entry.
type Options struct {
	Source config.DataSourceConfig

	// Page is the container to read records from (sheet page, table, file).
	Page string

	// HeaderRow is the 1-based row holding column names.
	HeaderRow int

	// KeyColumn is the 1-based column holding case identifiers.
	KeyColumn int

	// FieldCount is the expected row width, the length of the field list.
	FieldCount int
}

// Factory constructs a Handler from resolved options.
type Factory func(opts Options, log logger.Logger) (Handler, error)
