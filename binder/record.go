package binder

import (
	"fmt"
	"math/big"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/extensions"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/docbridge/schema"
)

type appendFunc func(v any) error

// RecordBuilder accumulates bound rows into Arrow record batches with the
// schema of the bound columns.
type RecordBuilder struct {
	schema    *arrow.Schema
	builder   *array.RecordBuilder
	appenders []appendFunc
	rows      int
}

// NewRecordBuilder creates a RecordBuilder for columns.
// Caller MUST call Release.
func NewRecordBuilder(mem memory.Allocator, columns schema.Columns) *RecordBuilder {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	sc := columns.ArrowSchema()
	b := array.NewRecordBuilder(mem, sc)
	appenders := make([]appendFunc, len(columns))
	for i, col := range columns {
		appenders[i] = newAppender(col.Name, b.Field(i), col.Type)
	}
	return &RecordBuilder{schema: sc, builder: b, appenders: appenders}
}

// Schema returns the Arrow schema of the produced batches.
func (r *RecordBuilder) Schema() *arrow.Schema {
	return r.schema
}

// Append adds one row produced by Binder.Bind. After an error the builder
// holds a partial row and must be released.
func (r *RecordBuilder) Append(row []any) error {
	if len(row) != len(r.appenders) {
		return fmt.Errorf("row has %d values, schema has %d columns", len(row), len(r.appenders))
	}
	for i, v := range row {
		if err := r.appenders[i](v); err != nil {
			return err
		}
	}
	r.rows++
	return nil
}

// Len returns the number of rows appended since the last batch.
func (r *RecordBuilder) Len() int {
	return r.rows
}

// NewRecordBatch returns the accumulated rows and resets the builder.
func (r *RecordBuilder) NewRecordBatch() arrow.RecordBatch {
	n := r.rows
	r.rows = 0
	if len(r.appenders) == 0 {
		return array.NewRecordBatch(r.schema, nil, int64(n))
	}
	return r.builder.NewRecordBatch()
}

// Release frees the underlying builders.
func (r *RecordBuilder) Release() {
	r.builder.Release()
}

func newAppender(name string, b array.Builder, t schema.Type) appendFunc {
	fn := valueAppender(name, b, t)
	return func(v any) error {
		if v == nil {
			b.AppendNull()
			return nil
		}
		return fn(v)
	}
}

func typed[T any](name string, fn func(T)) appendFunc {
	return func(v any) error {
		x, ok := v.(T)
		if !ok {
			return fmt.Errorf("column %q: unexpected %T value", name, v)
		}
		fn(x)
		return nil
	}
}

func valueAppender(name string, b array.Builder, t schema.Type) appendFunc {
	switch t.Kind {
	case schema.KindBool:
		return typed(name, b.(*array.BooleanBuilder).Append)
	case schema.KindInt8:
		return typed(name, b.(*array.Int8Builder).Append)
	case schema.KindInt16:
		return typed(name, b.(*array.Int16Builder).Append)
	case schema.KindInt32:
		return typed(name, b.(*array.Int32Builder).Append)
	case schema.KindInt64:
		return typed(name, b.(*array.Int64Builder).Append)
	case schema.KindUInt8:
		return typed(name, b.(*array.Uint8Builder).Append)
	case schema.KindUInt16:
		return typed(name, b.(*array.Uint16Builder).Append)
	case schema.KindUInt32:
		return typed(name, b.(*array.Uint32Builder).Append)
	case schema.KindUInt64:
		return typed(name, b.(*array.Uint64Builder).Append)
	case schema.KindInt128, schema.KindInt256, schema.KindUInt128, schema.KindUInt256:
		sb := b.(*array.StringBuilder)
		return typed(name, func(v *big.Int) { sb.Append(v.String()) })
	case schema.KindFloat32:
		return typed(name, b.(*array.Float32Builder).Append)
	case schema.KindFloat64:
		return typed(name, b.(*array.Float64Builder).Append)
	case schema.KindDate, schema.KindDate32:
		db := b.(*array.Date32Builder)
		return typed(name, func(v time.Time) { db.Append(arrow.Date32FromTime(v)) })
	case schema.KindDateTime, schema.KindDateTime64:
		return typed(name, b.(*array.TimestampBuilder).AppendTime)
	case schema.KindString:
		return typed(name, b.(*array.StringBuilder).Append)
	case schema.KindUUID:
		return typed[uuid.UUID](name, b.(*extensions.UUIDBuilder).Append)
	case schema.KindGeometry:
		bb := b.(*array.ExtensionBuilder).StorageBuilder().(*array.BinaryBuilder)
		return func(v any) error {
			g, ok := v.(orb.Geometry)
			if !ok {
				return fmt.Errorf("column %q: unexpected %T value", name, v)
			}
			data, err := schema.EncodeWKB(g)
			if err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
			bb.Append(data)
			return nil
		}
	case schema.KindArray:
		lb := b.(*array.ListBuilder)
		elem := newAppender(name, lb.ValueBuilder(), t.Elem.Base())
		return func(v any) error {
			items, ok := v.([]any)
			if !ok {
				return fmt.Errorf("column %q: unexpected %T value", name, v)
			}
			lb.Append(true)
			for _, item := range items {
				if err := elem(item); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return func(v any) error {
		return fmt.Errorf("column %q: unsupported type %s", name, t)
	}
}
