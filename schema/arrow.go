package schema

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/extensions"
)

// ArrowType maps a declared type onto its Arrow representation.
//
// 128 and 256-bit integers have no DuckDB-readable Arrow counterpart of the
// same width and are exposed as their decimal text.
func ArrowType(t Type) arrow.DataType {
	switch t.Kind {
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindInt8:
		return arrow.PrimitiveTypes.Int8
	case KindInt16:
		return arrow.PrimitiveTypes.Int16
	case KindInt32:
		return arrow.PrimitiveTypes.Int32
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindUInt8:
		return arrow.PrimitiveTypes.Uint8
	case KindUInt16:
		return arrow.PrimitiveTypes.Uint16
	case KindUInt32:
		return arrow.PrimitiveTypes.Uint32
	case KindUInt64:
		return arrow.PrimitiveTypes.Uint64
	case KindInt128, KindInt256, KindUInt128, KindUInt256:
		return arrow.BinaryTypes.String
	case KindFloat32:
		return arrow.PrimitiveTypes.Float32
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindDate, KindDate32:
		return arrow.FixedWidthTypes.Date32
	case KindDateTime:
		return &arrow.TimestampType{Unit: arrow.Second, TimeZone: "UTC"}
	case KindDateTime64:
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}
	case KindString:
		return arrow.BinaryTypes.String
	case KindUUID:
		return extensions.NewUUIDType()
	case KindGeometry:
		return NewWKBType()
	case KindArray:
		elem := *t.Elem
		return arrow.ListOfField(arrow.Field{
			Name:     "item",
			Type:     ArrowType(elem.Base()),
			Nullable: elem.IsNullable(),
		})
	case KindNullable:
		return ArrowType(t.Base())
	}
	return arrow.Null
}

// ArrowField returns the Arrow field of the column.
func (c Column) ArrowField() arrow.Field {
	if c.Type.Kind == KindGeometry {
		return geometryField(c.Name, c.Nullable)
	}
	return arrow.Field{
		Name:     c.Name,
		Type:     ArrowType(c.Type),
		Nullable: c.Nullable,
	}
}

// ArrowSchema returns the Arrow schema of the columns in declared order.
func (cs Columns) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(cs))
	for _, c := range cs {
		fields = append(fields, c.ArrowField())
	}
	return arrow.NewSchema(fields, nil)
}

// Project returns the subset of columns named in names, in the order given.
// Unknown names are skipped; an empty names slice returns all columns.
func (cs Columns) Project(names []string) Columns {
	if len(names) == 0 {
		return cs
	}
	out := make(Columns, 0, len(names))
	for _, n := range names {
		if c, ok := cs.Lookup(n); ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cs
	}
	return out
}
