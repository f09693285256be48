package pushdown

import (
	"cmp"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// literalFamily reports whether a filter literal is directly comparable with
// columns of kind k without a cast.
func literalFamily(k schema.Kind, lit any) bool {
	switch lit.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, *big.Int:
		return k.IsInteger() || k.IsFloat()
	case float32, float64:
		return k.IsFloat()
	case string:
		return k == schema.KindString || k == schema.KindUUID
	case bool:
		return k == schema.KindBool
	case time.Time:
		return k.IsTemporal()
	case uuid.UUID:
		return k == schema.KindUUID
	}
	return false
}

// toBSON converts a typed column value into its stored representation.
// It fails for values with no exact BSON counterpart.
func toBSON(v any) (any, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case *big.Int:
		if !x.IsInt64() {
			return nil, false
		}
		return x.Int64(), true
	case float32:
		return float64(x), true
	case float64:
		if math.IsNaN(x) {
			return nil, false
		}
		return x, true
	case bool:
		return x, true
	case string:
		return x, true
	case time.Time:
		return bson.DateTime(x.UnixMilli()), true
	}
	return nil, false
}

// uuidVariants returns the stored forms a UUID may take.
func uuidVariants(id uuid.UUID) bson.A {
	return bson.A{
		bson.Binary{Subtype: rawvalue.SubtypeUUID, Data: id[:]},
		bson.Binary{Subtype: rawvalue.SubtypeUUIDLegacy, Data: id[:]},
	}
}

// textIdentityVariants returns the stored forms that render as text on an
// identity column declared as String: the plain string, and the ObjectID
// whose lowercase hex equals it.
func textIdentityVariants(v rawvalue.Value, text string) bson.A {
	if oid, ok := v.(rawvalue.ObjectID); ok && oid.Hex() == text {
		return bson.A{bson.ObjectID(oid), text}
	}
	return bson.A{text}
}

// compareTyped orders two typed values of the same column.
func compareTyped(a, b any) (int, bool) {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmp.Compare(boolInt(x), boolInt(y)), true
	case uuid.UUID:
		y, ok := b.(uuid.UUID)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(x[:]), string(y[:])), true
	}
	fa, okA := toBigFloat(a)
	fb, okB := toBigFloat(b)
	if !okA || !okB {
		return 0, false
	}
	return fa.Cmp(fb), true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toBigFloat(v any) (*big.Float, bool) {
	switch x := v.(type) {
	case int8:
		return new(big.Float).SetInt64(int64(x)), true
	case int16:
		return new(big.Float).SetInt64(int64(x)), true
	case int32:
		return new(big.Float).SetInt64(int64(x)), true
	case int64:
		return new(big.Float).SetInt64(x), true
	case uint8:
		return new(big.Float).SetUint64(uint64(x)), true
	case uint16:
		return new(big.Float).SetUint64(uint64(x)), true
	case uint32:
		return new(big.Float).SetUint64(uint64(x)), true
	case uint64:
		return new(big.Float).SetUint64(x), true
	case *big.Int:
		return new(big.Float).SetInt(x), true
	case float32:
		if math.IsNaN(float64(x)) {
			return nil, false
		}
		return big.NewFloat(float64(x)), true
	case float64:
		if math.IsNaN(x) {
			return nil, false
		}
		return big.NewFloat(x), true
	}
	return nil, false
}

// satisfies evaluates (a op b) over typed values.
func satisfies(a any, op Op, b any) (bool, bool) {
	c, ok := compareTyped(a, b)
	if !ok {
		return false, false
	}
	switch op {
	case OpEq:
		return c == 0, true
	case OpNe:
		return c != 0, true
	case OpLt:
		return c < 0, true
	case OpLte:
		return c <= 0, true
	case OpGt:
		return c > 0, true
	case OpGte:
		return c >= 0, true
	}
	return false, false
}
