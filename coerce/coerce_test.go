package coerce

import (
	"errors"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

func column(t *testing.T, name, typ string) schema.Column {
	t.Helper()
	c, err := schema.NewColumn(name, typ)
	if err != nil {
		t.Fatalf("column %s: %v", typ, err)
	}
	return c
}

func TestCoerceIntegers(t *testing.T) {
	c := &Coercer{}
	tests := []struct {
		typ     string
		raw     rawvalue.Value
		want    any
		wantErr error
	}{
		{"UInt64", rawvalue.Int32(42), uint64(42), nil},
		{"Int32", rawvalue.String("100"), int32(100), nil},
		{"Int32", rawvalue.String("-100"), int32(-100), nil},
		{"Int32", rawvalue.String("100.0"), nil, errs.ErrNumericOverflowOrFormat},
		{"Int16", rawvalue.String("32767.0"), nil, errs.ErrNumericOverflowOrFormat},
		{"Int16", rawvalue.String("32768"), nil, errs.ErrNumericOverflowOrFormat},
		{"Int16", rawvalue.String("1e3"), nil, errs.ErrNumericOverflowOrFormat},
		{"Int16", rawvalue.String(" 12"), nil, errs.ErrNumericOverflowOrFormat},
		{"Int16", rawvalue.String("+12"), nil, errs.ErrNumericOverflowOrFormat},
		{"UInt8", rawvalue.Int64(-1), nil, errs.ErrNumericOverflowOrFormat},
		{"UInt8", rawvalue.String("-0"), uint8(0), nil},
		{"Int8", rawvalue.Double(-128), int8(-128), nil},
		{"Int8", rawvalue.Double(1.5), nil, errs.ErrNumericOverflowOrFormat},
		{"Int64", rawvalue.Double(math.Inf(1)), nil, errs.ErrNumericOverflowOrFormat},
		{"Int64", rawvalue.Bool(true), nil, errs.ErrTypeMismatch},
		{"UInt32", rawvalue.Int64(math.MaxUint32), uint32(math.MaxUint32), nil},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+rawvalue.Shape(tt.raw), func(t *testing.T) {
			got, err := c.Coerce(tt.raw, column(t, "n", tt.typ))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestCoerceWideIntegers(t *testing.T) {
	c := &Coercer{}
	max128 := "170141183460469231731687303715884105727"

	got, err := c.Coerce(rawvalue.String(max128), column(t, "n", "Int128"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := got.(*big.Int); !ok || v.String() != max128 {
		t.Errorf("expected '%s', got '%v'", max128, got)
	}

	_, err = c.Coerce(rawvalue.String("170141183460469231731687303715884105728"), column(t, "n", "Int128"))
	if !errors.Is(err, errs.ErrNumericOverflowOrFormat) {
		t.Errorf("expected overflow, got %v", err)
	}
	_, err = c.Coerce(rawvalue.String("-1"), column(t, "n", "UInt256"))
	if !errors.Is(err, errs.ErrNumericOverflowOrFormat) {
		t.Errorf("expected overflow for negative unsigned, got %v", err)
	}
}

func TestCoerceFloats(t *testing.T) {
	c := &Coercer{}

	got, err := c.Coerce(rawvalue.String("-0.0"), column(t, "f", "Float32"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, ok := got.(float32)
	if !ok || f != 0 || !math.Signbit(float64(f)) {
		t.Errorf("expected negative zero, got %v", got)
	}

	got, _ = c.Coerce(rawvalue.String("0.0"), column(t, "f", "Float32"))
	if f, _ := got.(float32); math.Signbit(float64(f)) {
		t.Errorf("expected positive zero, got %v", got)
	}

	for _, s := range []string{"", "abc", "1.5x", "0x10", "inf", "1e400"} {
		if _, err := c.Coerce(rawvalue.String(s), column(t, "f", "Float64")); !errors.Is(err, errs.ErrNumericOverflowOrFormat) {
			t.Errorf("expected format error for %q, got %v", s, err)
		}
	}

	got, err = c.Coerce(rawvalue.Int64(7), column(t, "f", "Float64"))
	if err != nil || got != float64(7) {
		t.Errorf("expected 7, got %v (%v)", got, err)
	}
	if _, err := c.Coerce(rawvalue.Double(1e300), column(t, "f", "Float32")); !errors.Is(err, errs.ErrNumericOverflowOrFormat) {
		t.Errorf("expected overflow for Float32, got %v", err)
	}
}

func TestCoerceTemporal(t *testing.T) {
	c := &Coercer{}
	ts := time.Date(2023, 5, 6, 7, 8, 9, int(123*time.Millisecond), time.UTC)
	raw := rawvalue.DateTime(ts.UnixMilli())

	tests := []struct {
		typ  string
		want time.Time
	}{
		{"Date", time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC)},
		{"Date32", time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC)},
		{"DateTime", time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)},
		{"DateTime64(3)", ts},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, err := c.Coerce(raw, column(t, "d", tt.typ))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.(time.Time).Equal(tt.want) {
				t.Errorf("expected '%s', got '%s'", tt.want, got)
			}
		})
	}

	before := rawvalue.DateTime(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	if _, err := c.Coerce(before, column(t, "d", "Date")); !errors.Is(err, errs.ErrRange) {
		t.Errorf("expected range error for Date, got %v", err)
	}
	if _, err := c.Coerce(before, column(t, "d", "Date32")); err != nil {
		t.Errorf("unexpected error for Date32: %v", err)
	}
	ancient := rawvalue.DateTime(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	if _, err := c.Coerce(ancient, column(t, "d", "Date32")); !errors.Is(err, errs.ErrRange) {
		t.Errorf("expected range error below floor, got %v", err)
	}

	floor := &Coercer{Date32Floor: time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := floor.Coerce(ancient, column(t, "d", "Date32")); err != nil {
		t.Errorf("unexpected error with lowered floor: %v", err)
	}

	got, err := c.Coerce(rawvalue.Timestamp{Seconds: 86400 + 5, Counter: 1}, column(t, "d", "DateTime"))
	if err != nil || !got.(time.Time).Equal(time.Unix(86405, 0)) {
		t.Errorf("unexpected timestamp coercion %v (%v)", got, err)
	}
	if _, err := c.Coerce(rawvalue.String("2020-01-01"), column(t, "d", "Date")); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("expected type mismatch for string date, got %v", err)
	}
}

func TestTruncateNegative(t *testing.T) {
	in := time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)
	got := Truncate(in, schema.KindDate32)
	want := time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected '%s', got '%s'", want, got)
	}
}

func TestCoerceString(t *testing.T) {
	c := &Coercer{}
	oid := rawvalue.ObjectID{0x65, 0x1f, 0x0a, 0, 0, 0, 0, 0, 0, 0, 0, 0x01}
	tests := []struct {
		name string
		raw  rawvalue.Value
		want string
	}{
		{"string", rawvalue.String("0x6"), "0x6"},
		{"bool", rawvalue.Bool(true), "true"},
		{"double", rawvalue.Double(6.66), "6.660000"},
		{"int", rawvalue.Int64(-5), "-5"},
		{"oid", oid, "651f0a000000000000000001"},
		{"binary", rawvalue.Binary{Data: []byte{1, 2, 3}}, "AQID"},
		{"date", rawvalue.DateTime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli()), "2020-01-02 03:04:05"},
		{"regex", rawvalue.Regex{Pattern: "abc", Flags: "i"}, `{"abc":"i"}`},
		{"document", rawvalue.Document{{Key: "b", Value: rawvalue.Int32(1)}, {Key: "a", Value: rawvalue.Array{rawvalue.Bool(false)}}}, `{"b":1,"a":[false]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Coerce(tt.raw, column(t, "s", "String"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestCoerceUUID(t *testing.T) {
	c := &Coercer{}
	id := uuid.MustParse("f0e77736-91d1-48ce-8f01-15123ca1c7ed")
	col := column(t, "u", "UUID")

	got, err := c.Coerce(rawvalue.Binary{Subtype: 4, Data: id[:]}, col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("expected '%s', got '%s'", id, got)
	}
	if _, err := c.Coerce(rawvalue.Binary{Subtype: 3, Data: id[:]}, col); err != nil {
		t.Errorf("unexpected error for legacy subtype: %v", err)
	}

	for name, raw := range map[string]rawvalue.Value{
		"generic binary": rawvalue.Binary{Subtype: 0, Data: id[:]},
		"string":         rawvalue.String(id.String()),
		"short binary":   rawvalue.Binary{Subtype: 4, Data: id[:8]},
	} {
		if _, err := c.Coerce(raw, col); !errors.Is(err, errs.ErrTypeMismatch) {
			t.Errorf("%s: expected type mismatch, got %v", name, err)
		}
	}
}

func TestCoerceMissingDefaults(t *testing.T) {
	c := &Coercer{}
	tests := []struct {
		typ  string
		want any
	}{
		{"UInt64", uint64(0)},
		{"Int8", int8(0)},
		{"Float32", float32(0)},
		{"Bool", false},
		{"String", ""},
		{"UUID", uuid.Nil},
		{"Date", time.Unix(0, 0).UTC()},
		{"Date32", DefaultDate32Floor},
		{"DateTime", time.Unix(0, 0).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			for _, raw := range []rawvalue.Value{rawvalue.Missing{}, rawvalue.Null{}} {
				got, err := c.Coerce(raw, column(t, "x", tt.typ))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
			got, err := c.Coerce(rawvalue.Missing{}, column(t, "x", "Nullable("+tt.typ+")"))
			if err != nil || got != nil {
				t.Errorf("expected nil for nullable column, got %v (%v)", got, err)
			}
		})
	}

	got, err := c.Coerce(rawvalue.Missing{}, column(t, "x", "Int256"))
	if err != nil || got.(*big.Int).Sign() != 0 {
		t.Errorf("expected zero big integer, got %v (%v)", got, err)
	}
	got, err = c.Coerce(rawvalue.Missing{}, column(t, "g", "Geometry"))
	if _, ok := got.(orb.Collection); err != nil || !ok {
		t.Errorf("expected empty collection, got %v (%v)", got, err)
	}
}

func TestCoerceArrays(t *testing.T) {
	c := &Coercer{}

	got, err := c.Coerce(rawvalue.Null{}, column(t, "a", "Array(UInt64)"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []any{}) {
		t.Errorf("expected [], got %v", got)
	}

	got, err = c.Coerce(rawvalue.Array{rawvalue.Int32(1), rawvalue.Null{}}, column(t, "a", "Array(UInt64)"))
	if err != nil || !reflect.DeepEqual(got, []any{}) {
		t.Errorf("expected collapse to [], got %v (%v)", got, err)
	}

	got, err = c.Coerce(rawvalue.Array{rawvalue.Int32(1), rawvalue.Null{}}, column(t, "a", "Array(Nullable(UInt64))"))
	if err != nil || !reflect.DeepEqual(got, []any{uint64(1), nil}) {
		t.Errorf("expected [1, nil], got %v (%v)", got, err)
	}

	nested := rawvalue.Array{
		rawvalue.Array{rawvalue.Bool(true), rawvalue.Bool(false)},
		rawvalue.Array{rawvalue.Null{}},
	}
	got, err = c.Coerce(nested, column(t, "a", "Array(Array(Bool))"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []any{[]any{true, false}, []any{}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := c.Coerce(rawvalue.Int32(1), column(t, "a", "Array(UInt64)")); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("expected type mismatch for scalar, got %v", err)
	}
	if _, err := c.Coerce(rawvalue.Array{rawvalue.String("1.0")}, column(t, "a", "Array(UInt64)")); !errors.Is(err, errs.ErrNumericOverflowOrFormat) {
		t.Errorf("expected numeric error for element, got %v", err)
	}
}

func TestCoerceGeometry(t *testing.T) {
	c := &Coercer{}
	point := rawvalue.Document{
		{Key: "type", Value: rawvalue.String("Point")},
		{Key: "coordinates", Value: rawvalue.Array{rawvalue.Double(-122.5), rawvalue.Int32(37)}},
	}
	got, err := c.Coerce(point, column(t, "g", "Geometry"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, ok := got.(orb.Point); !ok || p.X() != -122.5 || p.Y() != 37 {
		t.Errorf("unexpected geometry %v", got)
	}
	if _, err := c.Coerce(rawvalue.String("POINT(1 2)"), column(t, "g", "Geometry")); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("expected type mismatch, got %v", err)
	}
}

func TestCoerceErrorContext(t *testing.T) {
	c := &Coercer{}
	_, err := c.Coerce(rawvalue.String("32767.0"), column(t, "small", "Int16"))
	var e *errs.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *errs.Error, got %T", err)
	}
	if e.Column != "small" || e.DeclaredType != "Int16" || e.RawShape != `string "32767.0"` {
		t.Errorf("unexpected error context: %+v", e)
	}
}

func TestLiteral(t *testing.T) {
	c := &Coercer{}

	got, err := c.Literal(column(t, "k", "UInt64"), int64(42))
	if err != nil || got != uint64(42) {
		t.Errorf("expected 42, got %v (%v)", got, err)
	}
	if _, err := c.Literal(column(t, "k", "UInt8"), int64(300)); !errors.Is(err, errs.ErrInvalidLiteral) {
		t.Errorf("expected invalid literal, got %v", err)
	}
	id := uuid.New()
	got, err = c.Literal(column(t, "u", "UUID"), id.String())
	if err != nil || got != id {
		t.Errorf("expected '%s', got %v (%v)", id, got, err)
	}
	if _, err := c.Literal(column(t, "u", "UUID"), "nope"); !errors.Is(err, errs.ErrInvalidLiteral) {
		t.Errorf("expected invalid literal, got %v", err)
	}
	if got, err := c.Literal(column(t, "k", "UInt64"), nil); got != nil || err != nil {
		t.Errorf("expected nil for null literal, got %v (%v)", got, err)
	}
}

func TestIdentityLiteral(t *testing.T) {
	v, err := IdentityLiteral("_id", "651f0a000000000000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oid, ok := v.(rawvalue.ObjectID); !ok || oid.Hex() != "651f0a000000000000000001" {
		t.Errorf("unexpected objectid %v", v)
	}

	v, err = IdentityLiteral("_id", "f0e77736-91d1-48ce-8f01-15123ca1c7ed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok := v.(rawvalue.Binary); !ok || !b.IsUUID() {
		t.Errorf("unexpected uuid literal %v", v)
	}

	for _, s := range []string{"not-a-valid-oid-or-uuid", "", "651f0a00000000000000000z"} {
		if _, err := IdentityLiteral("_id", s); !errors.Is(err, errs.ErrInvalidIdentityLiteral) {
			t.Errorf("expected invalid identity literal for %q, got %v", s, err)
		}
	}
}
