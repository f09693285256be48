// Package coerce converts document-store values into declared column types.
//
// Coercion is an exhaustive match over (raw value variant, declared kind).
// Every pairing either yields a typed value, yields the column default, or
// fails with an *errs.Error naming the column, declared type and raw shape.
//
// Typed results:
//
//	Int8..Int64, UInt8..UInt64   int8..int64, uint8..uint64
//	Int128..UInt256              *big.Int
//	Float32, Float64             float32, float64
//	Bool                         bool
//	Date..DateTime64             time.Time (UTC)
//	String                       string
//	UUID                         uuid.UUID
//	Geometry                     orb.Geometry
//	Array(T)                     []any
//	null                         nil
package coerce

import (
	"encoding/base64"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/docbridge/docjson"
	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// IdentityField is the store's native identity field.
const IdentityField = "_id"

// DefaultDate32Floor is the earliest Date32/DateTime64 value accepted.
var DefaultDate32Floor = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Coercer converts raw values. The zero value is ready to use.
// A Coercer is not mutated by coercion and is safe for concurrent use.
type Coercer struct {
	// Date32Floor overrides DefaultDate32Floor.
	Date32Floor time.Time
	// OIDColumn names an additional column treated as the identity field.
	OIDColumn string
}

// New returns a Coercer for the given identity column override.
func New(oidColumn string, date32Floor time.Time) *Coercer {
	return &Coercer{OIDColumn: oidColumn, Date32Floor: date32Floor}
}

// IsIdentity reports whether the column holds the document identity.
func (c *Coercer) IsIdentity(name string) bool {
	return name == IdentityField || (c.OIDColumn != "" && name == c.OIDColumn)
}

func (c *Coercer) floor() time.Time {
	if c.Date32Floor.IsZero() {
		return DefaultDate32Floor
	}
	return c.Date32Floor.UTC()
}

// Coerce converts raw into the declared type of col.
// Missing and Null yield nil for nullable columns and the type's zero value
// otherwise.
func (c *Coercer) Coerce(raw rawvalue.Value, col schema.Column) (any, error) {
	if rawvalue.IsAbsent(raw) {
		if col.Nullable {
			return nil, nil
		}
		return c.Zero(col.Type), nil
	}
	return c.coerce(raw, col, col.Type)
}

func (c *Coercer) coerce(raw rawvalue.Value, col schema.Column, t schema.Type) (any, error) {
	k := t.Kind
	switch {
	case k == schema.KindNullable:
		if rawvalue.IsAbsent(raw) {
			return nil, nil
		}
		return c.coerce(raw, col, t.Base())
	case k == schema.KindArray:
		return c.array(raw, col, t)
	case k.IsInteger():
		return toInteger(raw, col, k)
	case k.IsFloat():
		return toFloat(raw, col, k)
	case k.IsTemporal():
		return c.toTime(raw, col, k)
	case k == schema.KindBool:
		return toBool(raw, col)
	case k == schema.KindString:
		return toString(raw, col)
	case k == schema.KindUUID:
		return toUUID(raw, col)
	case k == schema.KindGeometry:
		return toGeometry(raw, col)
	}
	return nil, mismatch(col, raw, "unsupported declared type")
}

// array coerces an Array value. A null element in an array of non-nullable
// elements collapses the whole array to empty.
func (c *Coercer) array(raw rawvalue.Value, col schema.Column, t schema.Type) (any, error) {
	var elems rawvalue.Array
	switch x := raw.(type) {
	case rawvalue.Null, rawvalue.Missing:
		return []any{}, nil
	case rawvalue.Array:
		elems = x
	default:
		return nil, mismatch(col, raw, "expected an array")
	}

	elemType := *t.Elem
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		if rawvalue.IsAbsent(e) {
			if !elemType.IsNullable() {
				return []any{}, nil
			}
			out = append(out, nil)
			continue
		}
		v, err := c.coerce(e, col, elemType)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Zero returns the default of a non-nullable column of type t.
func (c *Coercer) Zero(t schema.Type) any {
	switch t.Kind {
	case schema.KindInt8:
		return int8(0)
	case schema.KindInt16:
		return int16(0)
	case schema.KindInt32:
		return int32(0)
	case schema.KindInt64:
		return int64(0)
	case schema.KindUInt8:
		return uint8(0)
	case schema.KindUInt16:
		return uint16(0)
	case schema.KindUInt32:
		return uint32(0)
	case schema.KindUInt64:
		return uint64(0)
	case schema.KindInt128, schema.KindInt256, schema.KindUInt128, schema.KindUInt256:
		return new(big.Int)
	case schema.KindFloat32:
		return float32(0)
	case schema.KindFloat64:
		return float64(0)
	case schema.KindBool:
		return false
	case schema.KindDate32:
		return c.floor()
	case schema.KindDate, schema.KindDateTime, schema.KindDateTime64:
		return time.Unix(0, 0).UTC()
	case schema.KindString:
		return ""
	case schema.KindUUID:
		return uuid.Nil
	case schema.KindGeometry:
		return orb.Collection{}
	case schema.KindArray:
		return []any{}
	case schema.KindNullable:
		return nil
	}
	return nil
}

func toBool(raw rawvalue.Value, col schema.Column) (any, error) {
	switch x := raw.(type) {
	case rawvalue.Bool:
		return bool(x), nil
	case rawvalue.Int32:
		return x != 0, nil
	case rawvalue.Int64:
		return x != 0, nil
	}
	return nil, mismatch(col, raw, "expected a boolean")
}

// toString renders any scalar in its natural text form and nested values
// as canonical JSON.
func toString(raw rawvalue.Value, col schema.Column) (any, error) {
	switch x := raw.(type) {
	case rawvalue.String:
		return string(x), nil
	case rawvalue.ObjectID:
		return x.Hex(), nil
	case rawvalue.Bool:
		return strconv.FormatBool(bool(x)), nil
	case rawvalue.Int32:
		return strconv.FormatInt(int64(x), 10), nil
	case rawvalue.Int64:
		return strconv.FormatInt(int64(x), 10), nil
	case rawvalue.Double:
		return strconv.FormatFloat(float64(x), 'f', 6, 64), nil
	case rawvalue.Binary:
		return base64.StdEncoding.EncodeToString(x.Data), nil
	case rawvalue.DateTime:
		return docjson.FormatTime(x.Time()), nil
	case rawvalue.Timestamp:
		return docjson.FormatTime(time.Unix(int64(x.Seconds), 0)), nil
	case rawvalue.Document, rawvalue.Array, rawvalue.Regex:
		s, err := docjson.Render(raw)
		if err != nil {
			return nil, mismatch(col, raw, err.Error())
		}
		return s, nil
	}
	return nil, mismatch(col, raw, "no text form")
}

// toUUID accepts only 16-byte binaries of the UUID subtypes; strings are
// never parsed for data columns.
func toUUID(raw rawvalue.Value, col schema.Column) (any, error) {
	if b, ok := raw.(rawvalue.Binary); ok && b.IsUUID() {
		var id uuid.UUID
		copy(id[:], b.Data)
		return id, nil
	}
	return nil, mismatch(col, raw, "expected binary subtype 3 or 4 with 16 bytes")
}

func mismatch(col schema.Column, raw rawvalue.Value, detail string) error {
	return errs.Coercion(errs.ErrTypeMismatch, col.Name, col.DeclaredType(), rawvalue.Shape(raw), detail)
}
