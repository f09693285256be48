package filter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Parse parses filter pushdown JSON from DuckDB Airport extension.
// Returns a FilterPushdown containing parsed expressions and column bindings.
//
// Error conditions:
//   - Invalid JSON syntax
//   - Malformed operands of a known expression class
//
// Unknown expression classes parse as UnsupportedExpression.
func Parse(data []byte) (*FilterPushdown, error) {
	if len(data) == 0 {
		return &FilterPushdown{}, nil
	}

	var raw struct {
		Filters        []json.RawMessage `json:"filters"`
		ColumnBindings []string          `json:"column_binding_names_by_index"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("filter: invalid JSON: %w", err)
	}

	fp := &FilterPushdown{
		ColumnBindings: raw.ColumnBindings,
		Filters:        make([]Expression, 0, len(raw.Filters)),
	}
	for i, rawExpr := range raw.Filters {
		expr, err := parseExpression(rawExpr)
		if err != nil {
			return nil, fmt.Errorf("filter: error parsing filter %d: %w", i, err)
		}
		fp.Filters = append(fp.Filters, expr)
	}
	return fp, nil
}

// rawNode holds the union of the fields used by the supported expression
// classes.
type rawNode struct {
	ExpressionClass ExpressionClass   `json:"expression_class"`
	Type            ExpressionType    `json:"type"`
	Left            json.RawMessage   `json:"left"`
	Right           json.RawMessage   `json:"right"`
	Child           json.RawMessage   `json:"child"`
	Children        []json.RawMessage `json:"children"`
	Input           json.RawMessage   `json:"input"`
	Lower           json.RawMessage   `json:"lower"`
	Upper           json.RawMessage   `json:"upper"`
	LowerInclusive  bool              `json:"lower_inclusive"`
	UpperInclusive  bool              `json:"upper_inclusive"`
	Value           json.RawMessage   `json:"value"`
	ReturnType      json.RawMessage   `json:"return_type"`
	Binding         ColumnBinding     `json:"binding"`
	Name            string            `json:"name"`
}

func parseExpression(data json.RawMessage) (Expression, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	base := BaseExpression{ExprClass: raw.ExpressionClass, ExprType: raw.Type}

	switch raw.ExpressionClass {
	case ClassBoundComparison:
		left, err := parseExpression(raw.Left)
		if err != nil {
			return nil, fmt.Errorf("invalid left operand: %w", err)
		}
		right, err := parseExpression(raw.Right)
		if err != nil {
			return nil, fmt.Errorf("invalid right operand: %w", err)
		}
		return &ComparisonExpression{BaseExpression: base, Left: left, Right: right}, nil

	case ClassBoundConjunction:
		children, err := parseChildren(raw.Children)
		if err != nil {
			return nil, err
		}
		return &ConjunctionExpression{BaseExpression: base, Children: children}, nil

	case ClassBoundOperator:
		children, err := parseChildren(raw.Children)
		if err != nil {
			return nil, err
		}
		return &OperatorExpression{BaseExpression: base, Children: children}, nil

	case ClassBoundConstant:
		v, err := parseValue(raw.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		return &ConstantExpression{BaseExpression: base, Value: v}, nil

	case ClassBoundColumnRef:
		lt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("invalid return type: %w", err)
		}
		return &ColumnRefExpression{BaseExpression: base, Binding: raw.Binding, ReturnType: lt}, nil

	case ClassBoundCast:
		child, err := parseExpression(raw.Child)
		if err != nil {
			return nil, fmt.Errorf("invalid child: %w", err)
		}
		lt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("invalid return type: %w", err)
		}
		return &CastExpression{BaseExpression: base, Child: child, ReturnType: lt}, nil

	case ClassBoundBetween:
		b := &BetweenExpression{
			BaseExpression: base,
			LowerInclusive: raw.LowerInclusive,
			UpperInclusive: raw.UpperInclusive,
		}
		var err error
		if b.Input, err = parseExpression(raw.Input); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		if b.Lower, err = parseExpression(raw.Lower); err != nil {
			return nil, fmt.Errorf("invalid lower bound: %w", err)
		}
		if b.Upper, err = parseExpression(raw.Upper); err != nil {
			return nil, fmt.Errorf("invalid upper bound: %w", err)
		}
		return b, nil

	case ClassBoundFunction:
		return &FunctionExpression{BaseExpression: base, Name: raw.Name}, nil
	}
	return &UnsupportedExpression{BaseExpression: base}, nil
}

func parseChildren(raw []json.RawMessage) ([]Expression, error) {
	children := make([]Expression, 0, len(raw))
	for i, child := range raw {
		expr, err := parseExpression(child)
		if err != nil {
			return nil, fmt.Errorf("invalid child %d: %w", i, err)
		}
		children = append(children, expr)
	}
	return children, nil
}

func parseLogicalType(data json.RawMessage) (LogicalType, error) {
	if len(data) == 0 || string(data) == "null" {
		return LogicalType{}, nil
	}
	var raw struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogicalType{}, fmt.Errorf("invalid logical type: %w", err)
	}
	return LogicalType{ID: LogicalTypeID(raw.ID).Normalize()}, nil
}

func parseValue(data json.RawMessage) (Value, error) {
	if len(data) == 0 || string(data) == "null" {
		return Value{IsNull: true}, nil
	}

	var raw struct {
		Type   json.RawMessage `json:"type"`
		IsNull bool            `json:"is_null"`
		Value  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("invalid value: %w", err)
	}
	lt, err := parseLogicalType(raw.Type)
	if err != nil {
		return Value{}, fmt.Errorf("invalid value type: %w", err)
	}

	v := Value{Type: lt, IsNull: raw.IsNull}
	if raw.IsNull || len(raw.Value) == 0 || string(raw.Value) == "null" {
		v.IsNull = true
		return v, nil
	}
	if v.Data, err = parseValueData(raw.Value, lt); err != nil {
		return Value{}, fmt.Errorf("invalid value data: %w", err)
	}
	return v, nil
}

// parseValueData decodes the payload of a constant. Types without a
// pushdown counterpart keep their raw JSON.
func parseValueData(data json.RawMessage, lt LogicalType) (any, error) {
	switch lt.ID {
	case TypeIDBoolean:
		var v bool
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt,
		TypeIDDate, TypeIDTimestamp, TypeIDTimestampTZ, TypeIDTimestampMs, TypeIDTimestampNs, TypeIDTimestampSec:
		var v int64
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt:
		var v uint64
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDHugeInt:
		var v HugeInt
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDUHugeInt:
		var v UHugeInt
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDFloat, TypeIDDouble:
		var v float64
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDDecimal:
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s, nil
		}
		var f float64
		err := json.Unmarshal(data, &f)
		return f, err

	case TypeIDVarchar, TypeIDChar, TypeIDUUID, TypeIDBlob:
		var b64 Base64String
		if err := json.Unmarshal(data, &b64); err == nil && b64.Base64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(b64.Base64)
			if err != nil {
				return nil, fmt.Errorf("invalid base64: %w", err)
			}
			if lt.ID == TypeIDBlob {
				return decoded, nil
			}
			return string(decoded), nil
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		if lt.ID == TypeIDBlob {
			return []byte(s), nil
		}
		return s, nil
	}
	return data, nil
}
