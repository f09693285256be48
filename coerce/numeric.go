package coerce

import (
	"math"
	"math/big"
	"regexp"
	"strconv"

	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

var (
	integerLiteral = regexp.MustCompile(`^-?[0-9]+$`)
	floatLiteral   = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

type intRange struct {
	min, max *big.Int
}

var intRanges = func() map[schema.Kind]intRange {
	one := big.NewInt(1)
	m := make(map[schema.Kind]intRange)
	for _, k := range []schema.Kind{
		schema.KindInt8, schema.KindInt16, schema.KindInt32, schema.KindInt64, schema.KindInt128, schema.KindInt256,
		schema.KindUInt8, schema.KindUInt16, schema.KindUInt32, schema.KindUInt64, schema.KindUInt128, schema.KindUInt256,
	} {
		bits := uint(k.Bits())
		if k.IsSigned() {
			limit := new(big.Int).Lsh(one, bits-1)
			m[k] = intRange{
				min: new(big.Int).Neg(limit),
				max: new(big.Int).Sub(limit, one),
			}
			continue
		}
		m[k] = intRange{
			min: new(big.Int),
			max: new(big.Int).Sub(new(big.Int).Lsh(one, bits), one),
		}
	}
	return m
}()

// InRange reports whether v fits the integer kind k.
func InRange(v *big.Int, k schema.Kind) bool {
	r, ok := intRanges[k]
	if !ok {
		return false
	}
	return v.Cmp(r.min) >= 0 && v.Cmp(r.max) <= 0
}

// toInteger accepts Int32, Int64, integral Double and strict decimal strings.
// Fractional strings such as "100.0" are always rejected.
func toInteger(raw rawvalue.Value, col schema.Column, k schema.Kind) (any, error) {
	var v *big.Int
	switch x := raw.(type) {
	case rawvalue.Int32:
		v = big.NewInt(int64(x))
	case rawvalue.Int64:
		v = big.NewInt(int64(x))
	case rawvalue.Double:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, numericError(col, raw, "not an integral value")
		}
		v, _ = big.NewFloat(f).Int(nil)
	case rawvalue.String:
		s := string(x)
		if !integerLiteral.MatchString(s) {
			return nil, numericError(col, raw, "not a base-10 integer literal")
		}
		var ok bool
		if v, ok = new(big.Int).SetString(s, 10); !ok {
			return nil, numericError(col, raw, "not a base-10 integer literal")
		}
	default:
		return nil, mismatch(col, raw, "expected a number or numeric string")
	}

	if !InRange(v, k) {
		return nil, numericError(col, raw, "out of range for "+k.String())
	}
	return narrow(v, k), nil
}

// narrow converts an in-range integer to the Go type of k.
func narrow(v *big.Int, k schema.Kind) any {
	switch k {
	case schema.KindInt8:
		return int8(v.Int64())
	case schema.KindInt16:
		return int16(v.Int64())
	case schema.KindInt32:
		return int32(v.Int64())
	case schema.KindInt64:
		return v.Int64()
	case schema.KindUInt8:
		return uint8(v.Uint64())
	case schema.KindUInt16:
		return uint16(v.Uint64())
	case schema.KindUInt32:
		return uint32(v.Uint64())
	case schema.KindUInt64:
		return v.Uint64()
	}
	return v
}

// toFloat accepts Double, Int32, Int64 and strict float literals.
func toFloat(raw rawvalue.Value, col schema.Column, k schema.Kind) (any, error) {
	var f float64
	switch x := raw.(type) {
	case rawvalue.Double:
		f = float64(x)
	case rawvalue.Int32:
		f = float64(x)
	case rawvalue.Int64:
		f = float64(x)
	case rawvalue.String:
		s := string(x)
		if !floatLiteral.MatchString(s) {
			return nil, numericError(col, raw, "not a floating-point literal")
		}
		bits := 64
		if k == schema.KindFloat32 {
			bits = 32
		}
		var err error
		if f, err = strconv.ParseFloat(s, bits); err != nil {
			return nil, numericError(col, raw, "out of range for "+k.String())
		}
	default:
		return nil, mismatch(col, raw, "expected a number or numeric string")
	}

	if k == schema.KindFloat32 {
		f32 := float32(f)
		if math.IsInf(float64(f32), 0) && !math.IsInf(f, 0) {
			return nil, numericError(col, raw, "out of range for Float32")
		}
		return f32, nil
	}
	return f, nil
}

func numericError(col schema.Column, raw rawvalue.Value, detail string) error {
	return errs.Coercion(errs.ErrNumericOverflowOrFormat, col.Name, col.DeclaredType(), rawvalue.Shape(raw), detail)
}
