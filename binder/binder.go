// Package binder maps store documents onto the declared table schema.
//
// A Binder turns one raw document into a row of typed values, one per
// declared column, using the coerce package. Rows are appended to Arrow
// record batches by RecordBuilder.
package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/docbridge/coerce"
	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/internal/recovery"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// Binder binds documents to a fixed list of columns.
// It holds no mutable state and is safe for concurrent use.
type Binder struct {
	columns  schema.Columns
	index    map[string]int
	coercer  *coerce.Coercer
	maxDepth int
	workers  int
	logger   *slog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithMaxDepth limits the nesting depth of decoded values.
func WithMaxDepth(depth int) Option {
	return func(b *Binder) { b.maxDepth = depth }
}

// WithWorkers sets the number of goroutines used by BindBatch.
func WithWorkers(n int) Option {
	return func(b *Binder) { b.workers = n }
}

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) { b.logger = logger }
}

// New creates a Binder for columns. A nil coercer uses the defaults.
func New(columns schema.Columns, c *coerce.Coercer, opts ...Option) *Binder {
	if c == nil {
		c = &coerce.Coercer{}
	}
	b := &Binder{
		columns:  columns,
		index:    make(map[string]int, len(columns)),
		coercer:  c,
		maxDepth: rawvalue.DefaultMaxDepth,
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.Default(),
	}
	for i, col := range columns {
		if _, dup := b.index[col.Name]; !dup {
			b.index[col.Name] = i
		}
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	return b
}

// Columns returns the bound columns in row order.
func (b *Binder) Columns() schema.Columns {
	return b.columns
}

// Bind converts one document into a row. Only fields named by a column are
// decoded; a field that occurs more than once binds its first occurrence.
func (b *Binder) Bind(doc bson.Raw) ([]any, error) {
	raw := make([]rawvalue.Value, len(b.columns))
	elems, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for _, e := range elems {
		i, ok := b.index[e.Key()]
		if !ok || raw[i] != nil {
			continue
		}
		v, err := rawvalue.FromBSON(e.Value(), b.maxDepth)
		if err != nil {
			return nil, withColumn(err, b.columns[i])
		}
		raw[i] = v
	}

	row := make([]any, len(b.columns))
	for i, col := range b.columns {
		v := raw[i]
		if v == nil {
			v = rawvalue.Missing{}
		}
		if row[i], err = b.coercer.Coerce(v, col); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// BindBatch binds docs in parallel. Rows are returned in input order; the
// first failing document fails the batch.
func (b *Binder) BindBatch(ctx context.Context, docs []bson.Raw) ([][]any, error) {
	rows := make([][]any, len(docs))
	if len(docs) == 0 {
		return rows, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			row, err := recovery.RecoverToValue(b.logger, "Bind", func() ([]any, error) {
				return b.Bind(doc)
			})
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// withColumn attaches column context to a decoding error.
func withColumn(err error, col schema.Column) error {
	var e *errs.Error
	if !errors.As(err, &e) || e.Column != "" {
		return err
	}
	ce := *e
	ce.Column = col.Name
	ce.DeclaredType = col.DeclaredType()
	return &ce
}
