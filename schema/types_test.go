package schema

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  Type
	}{
		{"UInt64", Scalar(KindUInt64)},
		{"String", Scalar(KindString)},
		{"DateTime64(3)", Scalar(KindDateTime64)},
		{"DateTime64", Scalar(KindDateTime64)},
		{"Nullable(Float32)", NullableOf(Scalar(KindFloat32))},
		{"Array(UInt64)", ArrayOf(Scalar(KindUInt64))},
		{"Array(Array(Bool))", ArrayOf(ArrayOf(Scalar(KindBool)))},
		{"Array( Nullable( Int256 ) )", ArrayOf(NullableOf(Scalar(KindInt256)))},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"Int512",
		"Array(UInt64",
		"Array()",
		"Nullable(Array(UInt8))",
		"Nullable(Nullable(UInt8))",
		"DateTime64(6)",
		"UInt64 extra",
	} {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseType(input); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}

func TestNewColumnLiftsNullable(t *testing.T) {
	c, err := NewColumn("data", "Nullable(String)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Nullable {
		t.Errorf("expected nullable column")
	}
	if c.Type.Kind != KindString {
		t.Errorf("expected String base type, got %s", c.Type)
	}
	if c.DeclaredType() != "Nullable(String)" {
		t.Errorf("expected 'Nullable(String)', got '%s'", c.DeclaredType())
	}
}

func TestColumnsValidate(t *testing.T) {
	key, _ := NewColumn("key", "UInt64")
	dup, _ := NewColumn("key", "String")

	if err := (Columns{key}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Columns{key, dup}).Validate(); err == nil {
		t.Errorf("expected duplicate column error")
	}
	if err := (Columns{}).Validate(); err == nil {
		t.Errorf("expected error for empty schema")
	}
}

func TestArrowSchema(t *testing.T) {
	cols := Columns{
		{Name: "key", Type: Scalar(KindUInt64)},
		{Name: "data", Type: Scalar(KindString), Nullable: true},
		{Name: "ts", Type: Scalar(KindDateTime)},
		{Name: "tags", Type: ArrayOf(NullableOf(Scalar(KindInt32)))},
		{Name: "big", Type: Scalar(KindInt128)},
	}
	s := cols.ArrowSchema()
	if s.NumFields() != 5 {
		t.Fatalf("expected 5 fields, got %d", s.NumFields())
	}
	if !arrow.TypeEqual(s.Field(0).Type, arrow.PrimitiveTypes.Uint64) {
		t.Errorf("expected uint64, got %s", s.Field(0).Type)
	}
	if !s.Field(1).Nullable {
		t.Errorf("expected data to be nullable")
	}
	ts, ok := s.Field(2).Type.(*arrow.TimestampType)
	if !ok || ts.Unit != arrow.Second {
		t.Errorf("expected second timestamp, got %s", s.Field(2).Type)
	}
	list, ok := s.Field(3).Type.(*arrow.ListType)
	if !ok {
		t.Fatalf("expected list type, got %s", s.Field(3).Type)
	}
	if !list.ElemField().Nullable {
		t.Errorf("expected nullable list elements")
	}
	if !arrow.TypeEqual(s.Field(4).Type, arrow.BinaryTypes.String) {
		t.Errorf("expected string for Int128, got %s", s.Field(4).Type)
	}
}

func TestProject(t *testing.T) {
	cols := Columns{
		{Name: "a", Type: Scalar(KindInt8)},
		{Name: "b", Type: Scalar(KindInt8)},
		{Name: "c", Type: Scalar(KindInt8)},
	}
	got := cols.Project([]string{"c", "missing", "a"})
	if len(got) != 2 || got[0].Name != "c" || got[1].Name != "a" {
		t.Errorf("unexpected projection: %+v", got)
	}
	if len(cols.Project(nil)) != 3 {
		t.Errorf("expected full schema for empty projection")
	}
}
