package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/array"
)

// ScanOptions provides options for table scans.
type ScanOptions struct {
	// Columns to return. If nil/empty, return all columns.
	Columns []string

	// Filter is the filter pushdown JSON sent by DuckDB.
	// If nil, no filtering (return all rows).
	Filter []byte

	// OrderBy lists the requested ordering, outermost key first.
	OrderBy []OrderBy

	// Limit is maximum rows to return.
	// If 0 or negative, no limit.
	Limit int64

	// BatchSize is hint for RecordReader batch size.
	// If 0, implementation chooses default.
	BatchSize int
}

// OrderBy is one ORDER BY key.
type OrderBy struct {
	Column     string `json:"column"`
	Descending bool   `json:"desc,omitempty"`
	WithFill   bool   `json:"with_fill,omitempty"`
}

// ScanFunc is a function type for table data retrieval.
type ScanFunc func(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
