// Package schema describes the declared column types of a document-backed table.
//
// Column types use the relational engine's type names, e.g. "UInt64",
// "Nullable(String)" or "Array(Array(Nullable(Int32)))". A column's outermost
// Nullable wrapper is lifted into Column.Nullable; nested Nullable wrappers
// (array elements) stay part of the Type tree.
package schema

import (
	"fmt"
	"strings"
)

// Kind identifies a declared type.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindInt256
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindUInt256
	KindFloat32
	KindFloat64
	KindDate
	KindDate32
	KindDateTime
	KindDateTime64
	KindString
	KindUUID
	KindGeometry
	KindArray
	KindNullable
)

var kindNames = map[Kind]string{
	KindBool:       "Bool",
	KindInt8:       "Int8",
	KindInt16:      "Int16",
	KindInt32:      "Int32",
	KindInt64:      "Int64",
	KindInt128:     "Int128",
	KindInt256:     "Int256",
	KindUInt8:      "UInt8",
	KindUInt16:     "UInt16",
	KindUInt32:     "UInt32",
	KindUInt64:     "UInt64",
	KindUInt128:    "UInt128",
	KindUInt256:    "UInt256",
	KindFloat32:    "Float32",
	KindFloat64:    "Float64",
	KindDate:       "Date",
	KindDate32:     "Date32",
	KindDateTime:   "DateTime",
	KindDateTime64: "DateTime64(3)",
	KindString:     "String",
	KindUUID:       "UUID",
	KindGeometry:   "Geometry",
	KindArray:      "Array",
	KindNullable:   "Nullable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool {
	return k.IsSigned() || k.IsUnsigned()
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt256
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	return k >= KindUInt8 && k <= KindUInt256
}

// IsFloat reports whether k is Float32 or Float64.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsTemporal reports whether k is one of the date/time kinds.
func (k Kind) IsTemporal() bool {
	return k >= KindDate && k <= KindDateTime64
}

// Bits returns the width of an integer kind, or 0.
func (k Kind) Bits() int {
	switch k {
	case KindInt8, KindUInt8:
		return 8
	case KindInt16, KindUInt16:
		return 16
	case KindInt32, KindUInt32:
		return 32
	case KindInt64, KindUInt64:
		return 64
	case KindInt128, KindUInt128:
		return 128
	case KindInt256, KindUInt256:
		return 256
	}
	return 0
}

// Type is a declared column type. Elem is set for Array and Nullable.
type Type struct {
	Kind Kind
	Elem *Type
}

// Scalar returns a non-parameterized type.
func Scalar(k Kind) Type {
	return Type{Kind: k}
}

// ArrayOf returns Array(elem).
func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// NullableOf returns Nullable(elem).
func NullableOf(elem Type) Type {
	return Type{Kind: KindNullable, Elem: &elem}
}

// IsNullable reports whether t is wrapped in Nullable.
func (t Type) IsNullable() bool {
	return t.Kind == KindNullable
}

// Base strips a Nullable wrapper.
func (t Type) Base() Type {
	if t.Kind == KindNullable && t.Elem != nil {
		return *t.Elem
	}
	return t
}

func (t Type) String() string {
	switch t.Kind {
	case KindArray, KindNullable:
		if t.Elem == nil {
			return t.Kind.String() + "(?)"
		}
		return t.Kind.String() + "(" + t.Elem.String() + ")"
	}
	return t.Kind.String()
}

// Equal reports whether two types are structurally identical.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Elem == nil || o.Elem == nil {
		return t.Elem == nil && o.Elem == nil
	}
	return t.Elem.Equal(*o.Elem)
}

// Column is a declared table column.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
}

// DeclaredType renders the column type including its Nullable wrapper.
func (c Column) DeclaredType() string {
	if c.Nullable {
		return "Nullable(" + c.Type.String() + ")"
	}
	return c.Type.String()
}

// NewColumn parses the type text and builds a column.
func NewColumn(name, typeText string) (Column, error) {
	if name == "" {
		return Column{}, fmt.Errorf("column name cannot be empty")
	}
	t, err := ParseType(typeText)
	if err != nil {
		return Column{}, fmt.Errorf("column %q: %w", name, err)
	}
	c := Column{Name: name, Type: t}
	if t.IsNullable() {
		c.Type = t.Base()
		c.Nullable = true
	}
	return c, nil
}

// Columns is an ordered table schema.
type Columns []Column

// Index returns the position of the named column, or -1.
func (cs Columns) Index(name string) int {
	for i, c := range cs {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named column.
func (cs Columns) Lookup(name string) (Column, bool) {
	if i := cs.Index(name); i >= 0 {
		return cs[i], true
	}
	return Column{}, false
}

// Validate checks that names are unique and types are well formed.
func (cs Columns) Validate() error {
	if len(cs) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		if c.Name == "" {
			return fmt.Errorf("column name cannot be empty")
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column name: %s", c.Name)
		}
		seen[c.Name] = struct{}{}
		if err := validateType(c.Type); err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
	}
	return nil
}

func validateType(t Type) error {
	switch t.Kind {
	case KindInvalid:
		return fmt.Errorf("invalid type")
	case KindArray:
		if t.Elem == nil {
			return fmt.Errorf("array without element type")
		}
		return validateType(*t.Elem)
	case KindNullable:
		if t.Elem == nil {
			return fmt.Errorf("nullable without inner type")
		}
		switch t.Elem.Kind {
		case KindNullable, KindArray:
			return fmt.Errorf("nested type %s cannot be inside Nullable", t.Elem.Kind)
		}
		return validateType(*t.Elem)
	}
	return nil
}

// ParseType parses a type expression such as "Array(Nullable(UInt64))".
func ParseType(text string) (Type, error) {
	p := &typeParser{src: text}
	t, err := p.parse()
	if err != nil {
		return Type{}, fmt.Errorf("invalid type %q: %w", text, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Type{}, fmt.Errorf("invalid type %q: unexpected %q", text, p.src[p.pos:])
	}
	if err := validateType(t); err != nil {
		return Type{}, fmt.Errorf("invalid type %q: %w", text, err)
	}
	return t, nil
}

var scalarByName = map[string]Kind{
	"Bool":     KindBool,
	"Boolean":  KindBool,
	"Int8":     KindInt8,
	"Int16":    KindInt16,
	"Int32":    KindInt32,
	"Int64":    KindInt64,
	"Int128":   KindInt128,
	"Int256":   KindInt256,
	"UInt8":    KindUInt8,
	"UInt16":   KindUInt16,
	"UInt32":   KindUInt32,
	"UInt64":   KindUInt64,
	"UInt128":  KindUInt128,
	"UInt256":  KindUInt256,
	"Float32":  KindFloat32,
	"Float64":  KindFloat64,
	"Date":     KindDate,
	"Date32":   KindDate32,
	"DateTime": KindDateTime,
	"String":   KindString,
	"UUID":     KindUUID,
	"Geometry": KindGeometry,
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *typeParser) peek(c byte) bool {
	p.skipSpace()
	return p.pos < len(p.src) && p.src[p.pos] == c
}

func (p *typeParser) parse() (Type, error) {
	name := p.ident()
	if name == "" {
		return Type{}, fmt.Errorf("expected type name at offset %d", p.pos)
	}
	switch name {
	case "Array", "Nullable":
		if err := p.expect('('); err != nil {
			return Type{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(')'); err != nil {
			return Type{}, err
		}
		if name == "Array" {
			return ArrayOf(elem), nil
		}
		return NullableOf(elem), nil
	case "DateTime64":
		if p.peek('(') {
			p.pos++
			precision := strings.TrimSpace(p.ident())
			if precision != "3" {
				return Type{}, fmt.Errorf("only DateTime64(3) is supported, got precision %q", precision)
			}
			if err := p.expect(')'); err != nil {
				return Type{}, err
			}
		}
		return Scalar(KindDateTime64), nil
	}
	k, ok := scalarByName[name]
	if !ok {
		return Type{}, fmt.Errorf("unknown type %s", name)
	}
	return Scalar(k), nil
}
