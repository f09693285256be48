// Package rawvalue models one document-store value as a closed tagged union.
//
// Value is implemented only by the types in this package; consumers switch
// over the concrete types exhaustively. Missing (the field is absent) is
// distinct from Null (the field is present and null).
package rawvalue

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindInt32
	KindInt64
	KindDouble
	KindString
	KindBinary
	KindDocument
	KindArray
	KindDateTime
	KindTimestamp
	KindObjectID
	KindRegex
)

var kindNames = [...]string{
	KindMissing:   "missing",
	KindNull:      "null",
	KindBool:      "bool",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindDouble:    "double",
	KindString:    "string",
	KindBinary:    "binary",
	KindDocument:  "document",
	KindArray:     "array",
	KindDateTime:  "datetime",
	KindTimestamp: "timestamp",
	KindObjectID:  "objectid",
	KindRegex:     "regex",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one document-store value.
type Value interface {
	Kind() Kind
	valueMarker()
}

type (
	// Missing is an absent field.
	Missing struct{}
	// Null is an explicit null (BSON null or undefined).
	Null struct{}
	Bool  bool
	Int32 int32
	Int64 int64
	// Double is a 64-bit IEEE 754 value.
	Double float64
	String string
	// Binary carries the BSON binary subtype.
	Binary struct {
		Subtype byte
		Data    []byte
	}
	// Document preserves the source field order.
	Document []Field
	Array    []Value
	// DateTime is milliseconds since the Unix epoch.
	DateTime int64
	// Timestamp is the internal replication timestamp.
	Timestamp struct {
		Seconds uint32
		Counter uint32
	}
	ObjectID [12]byte
	Regex    struct {
		Pattern string
		Flags   string
	}
)

// Field is one key/value pair of a Document.
type Field struct {
	Key   string
	Value Value
}

func (Missing) Kind() Kind   { return KindMissing }
func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Int32) Kind() Kind     { return KindInt32 }
func (Int64) Kind() Kind     { return KindInt64 }
func (Double) Kind() Kind    { return KindDouble }
func (String) Kind() Kind    { return KindString }
func (Binary) Kind() Kind    { return KindBinary }
func (Document) Kind() Kind  { return KindDocument }
func (Array) Kind() Kind     { return KindArray }
func (DateTime) Kind() Kind  { return KindDateTime }
func (Timestamp) Kind() Kind { return KindTimestamp }
func (ObjectID) Kind() Kind  { return KindObjectID }
func (Regex) Kind() Kind     { return KindRegex }

func (Missing) valueMarker()   {}
func (Null) valueMarker()      {}
func (Bool) valueMarker()      {}
func (Int32) valueMarker()     {}
func (Int64) valueMarker()     {}
func (Double) valueMarker()    {}
func (String) valueMarker()    {}
func (Binary) valueMarker()    {}
func (Document) valueMarker()  {}
func (Array) valueMarker()     {}
func (DateTime) valueMarker()  {}
func (Timestamp) valueMarker() {}
func (ObjectID) valueMarker()  {}
func (Regex) valueMarker()     {}

// Binary subtypes used for UUIDs.
const (
	SubtypeGeneric    byte = 0x00
	SubtypeUUIDLegacy byte = 0x03
	SubtypeUUID       byte = 0x04
)

// Get returns the first field with the given key, or Missing.
func (d Document) Get(key string) Value {
	for _, f := range d {
		if f.Key == key {
			return f.Value
		}
	}
	return Missing{}
}

// Hex returns the lowercase 24-character hex form.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

// Time returns the UTC time of a DateTime.
func (dt DateTime) Time() time.Time {
	return time.UnixMilli(int64(dt)).UTC()
}

// Millis returns the timestamp seconds as epoch milliseconds.
func (ts Timestamp) Millis() int64 {
	return int64(ts.Seconds) * 1000
}

// IsUUID reports whether b holds a 16-byte UUID subtype.
func (b Binary) IsUUID() bool {
	return (b.Subtype == SubtypeUUID || b.Subtype == SubtypeUUIDLegacy) && len(b.Data) == 16
}

// IsAbsent reports whether v is Missing or Null.
func IsAbsent(v Value) bool {
	switch v.(type) {
	case nil, Missing, Null:
		return true
	}
	return false
}

const maxShapeText = 32

// Shape describes v for diagnostics, e.g. `string "32767.0"` or
// `binary subtype 0 (16 bytes)`.
func Shape(v Value) string {
	switch x := v.(type) {
	case nil:
		return "missing"
	case Bool:
		return fmt.Sprintf("bool %t", bool(x))
	case Int32:
		return fmt.Sprintf("int32 %d", int32(x))
	case Int64:
		return fmt.Sprintf("int64 %d", int64(x))
	case Double:
		return "double " + strconv.FormatFloat(float64(x), 'g', -1, 64)
	case String:
		s := string(x)
		if len(s) > maxShapeText {
			cut := maxShapeText
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			s = s[:cut] + "..."
		}
		return "string " + strconv.Quote(s)
	case Binary:
		return fmt.Sprintf("binary subtype %d (%d bytes)", x.Subtype, len(x.Data))
	case Document:
		return fmt.Sprintf("document (%d fields)", len(x))
	case Array:
		return fmt.Sprintf("array (%d elements)", len(x))
	case ObjectID:
		return "objectid " + x.Hex()
	case DateTime:
		return "datetime " + x.Time().Format(time.DateTime)
	case Timestamp:
		return "timestamp " + time.Unix(int64(x.Seconds), 0).UTC().Format(time.DateTime)
	}
	return v.Kind().String()
}

// FromLiteral converts a Go filter literal into a Value.
// Unsigned and big integers that do not fit int64 become decimal strings
// so that the strict integer parser decides their fate.
func FromLiteral(lit any) (Value, error) {
	switch x := lit.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int64(x), nil
	case int8:
		return Int64(x), nil
	case int16:
		return Int64(x), nil
	case int32:
		return Int64(x), nil
	case int64:
		return Int64(x), nil
	case uint8:
		return Int64(x), nil
	case uint16:
		return Int64(x), nil
	case uint32:
		return Int64(x), nil
	case uint64:
		if x <= 1<<63-1 {
			return Int64(x), nil
		}
		return String(strconv.FormatUint(x, 10)), nil
	case *big.Int:
		if x.IsInt64() {
			return Int64(x.Int64()), nil
		}
		return String(x.String()), nil
	case float32:
		return Double(x), nil
	case float64:
		return Double(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Binary{Subtype: SubtypeGeneric, Data: x}, nil
	case time.Time:
		return DateTime(x.UnixMilli()), nil
	case uuid.UUID:
		return Binary{Subtype: SubtypeUUID, Data: x[:]}, nil
	}
	return nil, fmt.Errorf("unsupported literal type %T", lit)
}
