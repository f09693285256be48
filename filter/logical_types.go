package filter

// LogicalTypeID identifies DuckDB data types.
type LogicalTypeID string

const (
	TypeIDSQLNull      LogicalTypeID = "SQLNULL"
	TypeIDBoolean      LogicalTypeID = "BOOLEAN"
	TypeIDTinyInt      LogicalTypeID = "TINYINT"
	TypeIDSmallInt     LogicalTypeID = "SMALLINT"
	TypeIDInteger      LogicalTypeID = "INTEGER"
	TypeIDBigInt       LogicalTypeID = "BIGINT"
	TypeIDDate         LogicalTypeID = "DATE"
	TypeIDTime         LogicalTypeID = "TIME"
	TypeIDTimestampSec LogicalTypeID = "TIMESTAMP_SEC"
	TypeIDTimestampMs  LogicalTypeID = "TIMESTAMP_MS"
	TypeIDTimestamp    LogicalTypeID = "TIMESTAMP"
	TypeIDTimestampNs  LogicalTypeID = "TIMESTAMP_NS"
	TypeIDDecimal      LogicalTypeID = "DECIMAL"
	TypeIDFloat        LogicalTypeID = "FLOAT"
	TypeIDDouble       LogicalTypeID = "DOUBLE"
	TypeIDChar         LogicalTypeID = "CHAR"
	TypeIDVarchar      LogicalTypeID = "VARCHAR"
	TypeIDBlob         LogicalTypeID = "BLOB"
	TypeIDInterval     LogicalTypeID = "INTERVAL"
	TypeIDUTinyInt     LogicalTypeID = "UTINYINT"
	TypeIDUSmallInt    LogicalTypeID = "USMALLINT"
	TypeIDUInteger     LogicalTypeID = "UINTEGER"
	TypeIDUBigInt      LogicalTypeID = "UBIGINT"
	TypeIDTimestampTZ  LogicalTypeID = "TIMESTAMP_TZ"
	TypeIDTimeTZ       LogicalTypeID = "TIME_TZ"
	TypeIDHugeInt      LogicalTypeID = "HUGEINT"
	TypeIDUHugeInt     LogicalTypeID = "UHUGEINT"
	TypeIDUUID         LogicalTypeID = "UUID"
	TypeIDList         LogicalTypeID = "LIST"
)

// typeIDMapping maps DuckDB full type names to normalized short names.
// DuckDB may send either the short form (e.g., "TIMESTAMP_TZ") or
// the full SQL form (e.g., "TIMESTAMP WITH TIME ZONE").
var typeIDMapping = map[LogicalTypeID]LogicalTypeID{
	// Timestamp types - full SQL names
	"TIMESTAMP WITH TIME ZONE":    TypeIDTimestampTZ,
	"TIMESTAMP_TZ":                TypeIDTimestampTZ,
	"TIMESTAMPTZ":                 TypeIDTimestampTZ,
	"TIME WITH TIME ZONE":         TypeIDTimeTZ,
	"TIMETZ":                      TypeIDTimeTZ,
	"TIMESTAMP_S":                 TypeIDTimestampSec,
	"TIMESTAMP_SEC":               TypeIDTimestampSec,
	"TIMESTAMP_MS":                TypeIDTimestampMs,
	"TIMESTAMP_NS":                TypeIDTimestampNs,
	"TIMESTAMP WITHOUT TIME ZONE": TypeIDTimestamp,
	// Integer types - aliases
	"INT":     TypeIDInteger,
	"INT4":    TypeIDInteger,
	"INT8":    TypeIDBigInt,
	"INT2":    TypeIDSmallInt,
	"INT1":    TypeIDTinyInt,
	"UINT8":   TypeIDUBigInt,
	"UINT4":   TypeIDUInteger,
	"UINT2":   TypeIDUSmallInt,
	"UINT1":   TypeIDUTinyInt,
	"INT128":  TypeIDHugeInt,
	"UINT128": TypeIDUHugeInt,
	// Float types - aliases
	"FLOAT4": TypeIDFloat,
	"FLOAT8": TypeIDDouble,
	"REAL":   TypeIDFloat,
	// String types - aliases
	"STRING": TypeIDVarchar,
	"TEXT":   TypeIDVarchar,
	// Boolean aliases
	"BOOL": TypeIDBoolean,
}

// Normalize returns the canonical LogicalTypeID for the given type ID.
// This handles DuckDB type aliases and full SQL names.
func (t LogicalTypeID) Normalize() LogicalTypeID {
	if mapped, ok := typeIDMapping[t]; ok {
		return mapped
	}
	return t
}

// LogicalType is a DuckDB logical type. Nested type information is not
// needed for pushdown and is ignored.
type LogicalType struct {
	ID LogicalTypeID `json:"id"`
}

// Value represents a typed constant value.
type Value struct {
	Type   LogicalType
	IsNull bool
	// Data is bool, int64, uint64, float64, string, []byte, HugeInt or
	// UHugeInt depending on Type.
	Data any
}

// HugeInt represents a 128-bit signed integer.
type HugeInt struct {
	Upper int64  `json:"upper"`
	Lower uint64 `json:"lower"`
}

// UHugeInt represents a 128-bit unsigned integer.
type UHugeInt struct {
	Upper uint64 `json:"upper"`
	Lower uint64 `json:"lower"`
}

// Base64String represents a non-UTF8 string encoded as base64.
type Base64String struct {
	Base64 string `json:"base64"`
}
