package mongotable

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hugr-lab/docbridge/binder"
	"github.com/hugr-lab/docbridge/internal/metrics"
)

type readerConfig struct {
	table     string
	cursor    *mongo.Cursor
	binder    *binder.Binder
	builder   *binder.RecordBuilder
	batchSize int
	release   func()
	start     time.Time
	logger    *slog.Logger
}

// reader streams cursor documents as record batches. It implements
// array.RecordReader; the first failing document ends the stream with an
// error.
type reader struct {
	readerConfig
	ctx  context.Context
	refs atomic.Int64

	docs []bson.Raw
	cur  arrow.RecordBatch
	rows int64
	err  error
	done bool
}

func newReader(ctx context.Context, cfg readerConfig) *reader {
	r := &reader{readerConfig: cfg, ctx: ctx, docs: make([]bson.Raw, 0, cfg.batchSize)}
	r.refs.Store(1)
	return r
}

func (r *reader) Retain() {
	r.refs.Add(1)
}

func (r *reader) Release() {
	if r.refs.Add(-1) != 0 {
		return
	}
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	if !r.done {
		r.finish(r.ctx.Err())
	}
	r.builder.Release()
}

func (r *reader) Schema() *arrow.Schema {
	return r.builder.Schema()
}

func (r *reader) Next() bool {
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	if r.done {
		return false
	}

	r.docs = r.docs[:0]
	for len(r.docs) < r.batchSize && r.cursor.Next(r.ctx) {
		// Current is only valid until the next call.
		r.docs = append(r.docs, slices.Clone(r.cursor.Current))
	}
	if err := r.cursor.Err(); err != nil {
		r.finish(err)
		return false
	}
	if len(r.docs) == 0 {
		r.finish(nil)
		return false
	}

	rows, err := r.binder.BindBatch(r.ctx, r.docs)
	if err != nil {
		metrics.IncCoercionError(r.table, errorKind(err))
		r.finish(err)
		return false
	}
	for _, row := range rows {
		if err := r.builder.Append(row); err != nil {
			r.finish(err)
			return false
		}
	}
	r.cur = r.builder.NewRecordBatch()
	r.rows += r.cur.NumRows()
	return true
}

func (r *reader) RecordBatch() arrow.RecordBatch {
	return r.cur
}

// Record returns the current batch.
//
// Deprecated: use RecordBatch.
func (r *reader) Record() arrow.RecordBatch {
	return r.cur
}

func (r *reader) Err() error {
	return r.err
}

func (r *reader) finish(err error) {
	r.done = true
	r.err = err
	if cerr := r.cursor.Close(context.WithoutCancel(r.ctx)); cerr != nil {
		r.logger.Debug("Failed to close cursor", "table", r.table, "error", cerr)
	}
	r.release()
	elapsed := time.Since(r.start)
	metrics.ObserveScan(r.table, elapsed.Seconds(), r.rows, err)
	if err != nil {
		r.logger.Error("Scan failed", "table", r.table, "rows", r.rows, "error", err)
		return
	}
	r.logger.Debug("Scan completed", "table", r.table, "rows", r.rows, "elapsed", elapsed)
}
