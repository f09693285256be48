package filter

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugr-lab/docbridge/pushdown"
)

var comparisonOps = map[ExpressionType]pushdown.Op{
	TypeCompareEqual:              pushdown.OpEq,
	TypeCompareNotEqual:           pushdown.OpNe,
	TypeCompareLessThan:           pushdown.OpLt,
	TypeCompareLessThanOrEqual:    pushdown.OpLte,
	TypeCompareGreaterThan:        pushdown.OpGt,
	TypeCompareGreaterThanOrEqual: pushdown.OpGte,
}

// Lower converts the parsed filters into a single pushdown expression.
// It returns nil when there are no filters.
func Lower(fp *FilterPushdown) (pushdown.Expr, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return nil, nil
	}
	l := lowerer{fp: fp}
	children := make([]pushdown.Expr, 0, len(fp.Filters))
	for _, f := range fp.Filters {
		e, err := l.lower(f)
		if err != nil {
			return nil, err
		}
		children = append(children, e)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return pushdown.And{Children: children}, nil
}

type lowerer struct {
	fp *FilterPushdown
}

func (l lowerer) lower(e Expression) (pushdown.Expr, error) {
	switch x := e.(type) {
	case *ComparisonExpression:
		return l.comparison(x)
	case *ConjunctionExpression:
		children := make([]pushdown.Expr, 0, len(x.Children))
		for _, c := range x.Children {
			lc, err := l.lower(c)
			if err != nil {
				return nil, err
			}
			children = append(children, lc)
		}
		switch x.Type() {
		case TypeConjunctionAnd:
			return pushdown.And{Children: children}, nil
		case TypeConjunctionOr:
			return pushdown.Or{Children: children}, nil
		}
	case *OperatorExpression:
		return l.operator(x)
	case *BetweenExpression:
		return l.between(x)
	case *ConstantExpression:
		if b, ok := x.Value.Data.(bool); ok && b && !x.Value.IsNull {
			return pushdown.And{}, nil
		}
	}
	return l.unsupported(e), nil
}

func (l lowerer) comparison(e *ComparisonExpression) (pushdown.Expr, error) {
	op, ok := comparisonOps[e.Type()]
	if !ok {
		return l.unsupported(e), nil
	}
	if lc, ok := e.Left.(*ColumnRefExpression); ok {
		if rc, ok := e.Right.(*ColumnRefExpression); ok {
			left, err := l.fp.ColumnName(lc)
			if err != nil {
				return nil, err
			}
			right, err := l.fp.ColumnName(rc)
			if err != nil {
				return nil, err
			}
			return pushdown.Unsupported{Description: fmt.Sprintf("%s %s %s", left, op, right)}, nil
		}
	}

	col, lit, flipped, ok := columnAndConstant(e.Left, e.Right)
	if !ok {
		return l.unsupported(e), nil
	}
	name, err := l.fp.ColumnName(col)
	if err != nil {
		return nil, err
	}
	v, ok := lit.Value.Literal()
	if !ok {
		return l.unsupported(e), nil
	}
	if flipped {
		op = op.Flip()
	}
	return pushdown.Comparison{Column: name, Op: op, Literal: v}, nil
}

func columnAndConstant(a, b Expression) (*ColumnRefExpression, *ConstantExpression, bool, bool) {
	if col, ok := a.(*ColumnRefExpression); ok {
		if c, ok := b.(*ConstantExpression); ok {
			return col, c, false, true
		}
	}
	if col, ok := b.(*ColumnRefExpression); ok {
		if c, ok := a.(*ConstantExpression); ok {
			return col, c, true, true
		}
	}
	return nil, nil, false, false
}

func (l lowerer) operator(e *OperatorExpression) (pushdown.Expr, error) {
	switch e.Type() {
	case TypeOperatorNot:
		if len(e.Children) != 1 {
			break
		}
		child, err := l.lower(e.Children[0])
		if err != nil {
			return nil, err
		}
		return pushdown.Not{Child: child}, nil

	case TypeOperatorIsNull, TypeOperatorIsNotNull:
		if len(e.Children) != 1 {
			break
		}
		col, ok := e.Children[0].(*ColumnRefExpression)
		if !ok {
			break
		}
		name, err := l.fp.ColumnName(col)
		if err != nil {
			return nil, err
		}
		if e.Type() == TypeOperatorIsNull {
			return pushdown.IsNull{Column: name}, nil
		}
		return pushdown.IsNotNull{Column: name}, nil

	case TypeCompareIn, TypeCompareNotIn:
		if len(e.Children) < 2 {
			break
		}
		col, ok := e.Children[0].(*ColumnRefExpression)
		if !ok {
			break
		}
		name, err := l.fp.ColumnName(col)
		if err != nil {
			return nil, err
		}
		literals := make([]any, 0, len(e.Children)-1)
		for _, c := range e.Children[1:] {
			constant, ok := c.(*ConstantExpression)
			if !ok {
				return l.unsupported(e), nil
			}
			v, ok := constant.Value.Literal()
			if !ok {
				return l.unsupported(e), nil
			}
			literals = append(literals, v)
		}
		return pushdown.In{Column: name, Literals: literals, Negated: e.Type() == TypeCompareNotIn}, nil
	}
	return l.unsupported(e), nil
}

func (l lowerer) between(e *BetweenExpression) (pushdown.Expr, error) {
	col, ok := e.Input.(*ColumnRefExpression)
	lower, okLower := e.Lower.(*ConstantExpression)
	upper, okUpper := e.Upper.(*ConstantExpression)
	if !ok || !okLower || !okUpper {
		return l.unsupported(e), nil
	}
	name, err := l.fp.ColumnName(col)
	if err != nil {
		return nil, err
	}
	lo, okLo := lower.Value.Literal()
	hi, okHi := upper.Value.Literal()
	if !okLo || !okHi {
		return l.unsupported(e), nil
	}
	loOp, hiOp := pushdown.OpGt, pushdown.OpLt
	if e.LowerInclusive {
		loOp = pushdown.OpGte
	}
	if e.UpperInclusive {
		hiOp = pushdown.OpLte
	}
	return pushdown.And{Children: []pushdown.Expr{
		pushdown.Comparison{Column: name, Op: loOp, Literal: lo},
		pushdown.Comparison{Column: name, Op: hiOp, Literal: hi},
	}}, nil
}

func (l lowerer) unsupported(e Expression) pushdown.Expr {
	return pushdown.Unsupported{Description: describe(e)}
}

// describe renders an expression for error messages.
func describe(e Expression) string {
	switch x := e.(type) {
	case *FunctionExpression:
		return x.Name + "(...)"
	case *CastExpression:
		return "CAST(" + describe(x.Child) + " AS " + string(x.ReturnType.ID) + ")"
	case *ColumnRefExpression:
		return fmt.Sprintf("#%d", x.Binding.ColumnIndex)
	case *ConstantExpression:
		return string(x.Value.Type.ID) + " constant"
	case *ComparisonExpression:
		return describe(x.Left) + " " + strings.ToLower(string(x.Type())) + " " + describe(x.Right)
	}
	return strings.ToLower(string(e.Class()) + " " + string(e.Type()))
}

// Literal converts the constant into a pushdown literal. It reports false
// for types without a pushdown counterpart.
func (v Value) Literal() (any, bool) {
	if v.IsNull {
		return nil, true
	}
	switch x := v.Data.(type) {
	case bool:
		return x, true
	case uint64:
		return x, true
	case string:
		switch v.Type.ID {
		case TypeIDUUID:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, false
			}
			return id, true
		case TypeIDDecimal:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}
		return x, true
	case []byte:
		return x, true
	case float64:
		if v.Type.ID == TypeIDFloat {
			return float32(x), true
		}
		return x, true
	case HugeInt:
		n := new(big.Int).Lsh(big.NewInt(x.Upper), 64)
		return n.Add(n, new(big.Int).SetUint64(x.Lower)), true
	case UHugeInt:
		n := new(big.Int).Lsh(new(big.Int).SetUint64(x.Upper), 64)
		return n.Add(n, new(big.Int).SetUint64(x.Lower)), true
	case int64:
		switch v.Type.ID {
		case TypeIDDate:
			return time.Unix(x*86400, 0).UTC(), true
		case TypeIDTimestampSec:
			return time.Unix(x, 0).UTC(), true
		case TypeIDTimestampMs:
			return time.UnixMilli(x).UTC(), true
		case TypeIDTimestampNs:
			return time.Unix(0, x).UTC(), true
		case TypeIDTimestamp, TypeIDTimestampTZ:
			return time.UnixMicro(x).UTC(), true
		}
		return x, true
	}
	return nil, false
}
