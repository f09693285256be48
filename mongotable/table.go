// Package mongotable exposes a document collection as a typed catalog table.
//
// A Table resolves its connection once, translates the filter and ORDER BY
// of every scan into a native find, and binds the returned documents to its
// declared columns, producing Arrow record batches.
package mongotable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hugr-lab/docbridge/binder"
	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/coerce"
	"github.com/hugr-lab/docbridge/connection"
	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/internal/metrics"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// DefaultBatchSize is the number of documents per record batch.
const DefaultBatchSize = 8192

// TableDef declares one table.
type TableDef struct {
	Name    string
	Comment string
	Source  connection.Source
	Columns schema.Columns
}

// Options tune scans of a table.
type Options struct {
	// ThrowOnUnsupported fails scans whose filter contains clauses that
	// cannot be translated. When false such clauses are left to the engine.
	ThrowOnUnsupported bool
	BatchSize          int
	BindWorkers        int
	MaxDepth           int
	// Date32Floor is the default for missing Date32 values.
	Date32Floor time.Time
	Allocator   memory.Allocator
	Logger      *slog.Logger
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		ThrowOnUnsupported: true,
		BatchSize:          DefaultBatchSize,
		MaxDepth:           rawvalue.DefaultMaxDepth,
		Date32Floor:        coerce.DefaultDate32Floor,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.Date32Floor.IsZero() {
		o.Date32Floor = d.Date32Floor
	}
	if o.Allocator == nil {
		o.Allocator = memory.DefaultAllocator
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Table is a catalog.Table backed by one collection.
// It is immutable and safe for concurrent scans.
type Table struct {
	name    string
	comment string
	target  *connection.Target
	columns schema.Columns
	schema  *arrow.Schema
	coercer *coerce.Coercer
	clients *ClientCache
	opts    Options
}

var _ catalog.Table = (*Table)(nil)

// New validates def and resolves its connection. The connection itself is
// opened lazily by the first scan.
func New(def TableDef, resolver *connection.Resolver, clients *ClientCache, opts Options) (*Table, error) {
	if def.Name == "" {
		return nil, errs.Config("table name must be set")
	}
	if clients == nil {
		return nil, errs.Config("table %s: client cache must be set", def.Name)
	}
	if err := def.Columns.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", def.Name, err)
	}
	target, err := resolver.Resolve(def.Source)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", def.Name, err)
	}
	if target.DefaultDatabase == "" {
		return nil, errs.Config("table %s: database must be set for %s", def.Name, target.Display())
	}

	opts = opts.withDefaults()
	t := &Table{
		name:    def.Name,
		comment: def.Comment,
		target:  target,
		columns: def.Columns,
		schema:  def.Columns.ArrowSchema(),
		coercer: coerce.New(target.OIDColumn, opts.Date32Floor),
		clients: clients,
		opts:    opts,
	}
	opts.Logger.Debug("Table registered",
		"table", def.Name,
		"target", target.Display().String(),
		"columns", len(def.Columns),
	)
	return t, nil
}

// Name implements catalog.Table.
func (t *Table) Name() string { return t.name }

// Comment implements catalog.Table.
func (t *Table) Comment() string { return t.comment }

// ArrowSchema implements catalog.Table.
func (t *Table) ArrowSchema() *arrow.Schema { return t.schema }

// Columns returns the declared columns.
func (t *Table) Columns() schema.Columns { return t.columns }

// Target returns the resolved connection target.
func (t *Table) Target() *connection.Target { return t.target }

// Scan implements catalog.Table. The returned reader yields batches with the
// projected columns in request order.
func (t *Table) Scan(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
	if opts == nil {
		opts = &catalog.ScanOptions{}
	}
	start := time.Now()
	q, err := t.Plan(opts)
	if err != nil {
		metrics.ObserveScan(t.name, time.Since(start).Seconds(), 0, err)
		return nil, err
	}

	client, release, err := t.clients.Acquire(t.target)
	if err != nil {
		metrics.ObserveScan(t.name, time.Since(start).Seconds(), 0, err)
		return nil, err
	}

	find := options.Find().SetBatchSize(int32(t.batchSize(opts)))
	if len(q.Sort) > 0 {
		find.SetSort(q.Sort)
	}
	if len(q.Projection) > 0 {
		find.SetProjection(q.Projection)
	}
	if q.Limit > 0 {
		find.SetLimit(q.Limit)
	}

	t.opts.Logger.Debug("Scan",
		"table", t.name,
		"target", t.target.Display().String(),
		"filter", q.Filter,
		"exact", q.Exact,
		"sort", q.Sort,
		"limit", q.Limit,
	)

	coll := client.Database(t.target.DefaultDatabase).Collection(t.target.Collection)
	cursor, err := coll.Find(ctx, q.Filter, find)
	if err != nil {
		release()
		err = fmt.Errorf("find in %s: %w", t.target.Display(), err)
		metrics.ObserveScan(t.name, time.Since(start).Seconds(), 0, err)
		return nil, err
	}

	bopts := []binder.Option{binder.WithMaxDepth(t.opts.MaxDepth), binder.WithLogger(t.opts.Logger)}
	if t.opts.BindWorkers > 0 {
		bopts = append(bopts, binder.WithWorkers(t.opts.BindWorkers))
	}
	return newReader(ctx, readerConfig{
		table:     t.name,
		cursor:    cursor,
		binder:    binder.New(q.Columns, t.coercer, bopts...),
		builder:   binder.NewRecordBuilder(t.opts.Allocator, q.Columns),
		batchSize: t.batchSize(opts),
		release:   release,
		start:     start,
		logger:    t.opts.Logger,
	}), nil
}

func (t *Table) batchSize(opts *catalog.ScanOptions) int {
	if opts.BatchSize > 0 {
		return opts.BatchSize
	}
	return t.opts.BatchSize
}

// errorKind names the kind of a scan error for metrics.
func errorKind(err error) string {
	if kind := errs.KindOf(err); kind != nil {
		return kind.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "other"
}
