package pushdown

import (
	"bytes"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hugr-lab/docbridge/coerce"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// matchDoc evaluates the subset of the native filter language emitted by
// the translator against a raw document.
func matchDoc(filter bson.D, doc rawvalue.Document) bool {
	for _, e := range filter {
		switch e.Key {
		case "$and":
			for _, sub := range e.Value.(bson.A) {
				if !matchDoc(sub.(bson.D), doc) {
					return false
				}
			}
		case "$or":
			matched := false
			for _, sub := range e.Value.(bson.A) {
				if matchDoc(sub.(bson.D), doc) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			if !matchField(doc.Get(e.Key), e.Value) {
				return false
			}
		}
	}
	return true
}

func matchField(v rawvalue.Value, cond any) bool {
	d, ok := cond.(bson.D)
	if !ok || len(d) == 0 || !strings.HasPrefix(d[0].Key, "$") {
		return rawEqual(v, cond)
	}
	for _, op := range d {
		var ok bool
		switch op.Key {
		case "$eq":
			ok = rawEqual(v, op.Value)
		case "$ne":
			ok = !rawEqual(v, op.Value)
		case "$lt", "$lte", "$gt", "$gte":
			c, comparable := rawCompare(v, op.Value)
			if comparable {
				switch op.Key {
				case "$lt":
					ok = c < 0
				case "$lte":
					ok = c <= 0
				case "$gt":
					ok = c > 0
				case "$gte":
					ok = c >= 0
				}
			}
		case "$in":
			for _, x := range op.Value.(bson.A) {
				if rawEqual(v, x) {
					ok = true
					break
				}
			}
		case "$nin":
			ok = true
			for _, x := range op.Value.(bson.A) {
				if rawEqual(v, x) {
					ok = false
					break
				}
			}
		default:
			panic("unexpected operator " + op.Key)
		}
		if !ok {
			return false
		}
	}
	return true
}

func rawEqual(v rawvalue.Value, x any) bool {
	if x == nil {
		return rawvalue.IsAbsent(v)
	}
	if b, ok := x.(bson.Binary); ok {
		rb, ok := v.(rawvalue.Binary)
		return ok && rb.Subtype == b.Subtype && bytes.Equal(rb.Data, b.Data)
	}
	c, ok := rawCompare(v, x)
	return ok && c == 0
}

// rawCompare compares values of the same BSON type bracket.
func rawCompare(v rawvalue.Value, x any) (int, bool) {
	switch y := x.(type) {
	case int64, float64:
		var a *big.Float
		switch n := v.(type) {
		case rawvalue.Int32:
			a = new(big.Float).SetInt64(int64(n))
		case rawvalue.Int64:
			a = new(big.Float).SetInt64(int64(n))
		case rawvalue.Double:
			a = big.NewFloat(float64(n))
		default:
			return 0, false
		}
		var b *big.Float
		if i, ok := y.(int64); ok {
			b = new(big.Float).SetInt64(i)
		} else {
			b = big.NewFloat(y.(float64))
		}
		return a.Cmp(b), true
	case string:
		s, ok := v.(rawvalue.String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(s), y), true
	case bool:
		b, ok := v.(rawvalue.Bool)
		if !ok {
			return 0, false
		}
		return boolInt(bool(b)) - boolInt(y), true
	case bson.DateTime:
		dt, ok := v.(rawvalue.DateTime)
		if !ok {
			return 0, false
		}
		switch {
		case int64(dt) < int64(y):
			return -1, true
		case int64(dt) > int64(y):
			return 1, true
		}
		return 0, true
	case bson.ObjectID:
		oid, ok := v.(rawvalue.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(oid[:], y[:]), true
	}
	return 0, false
}

// tri is a three-valued logic result.
type tri int

const (
	triFalse tri = iota
	triTrue
	triNull
)

func triOf(b bool) tri {
	if b {
		return triTrue
	}
	return triFalse
}

// evalRow evaluates e over a typed row with SQL semantics.
func evalRow(e Expr, cols schema.Columns, c *coerce.Coercer, row map[string]any) tri {
	switch x := e.(type) {
	case Comparison:
		v := row[x.Column]
		if v == nil || x.Literal == nil {
			return triNull
		}
		col, _ := cols.Lookup(x.Column)
		lit := x.Literal
		if _, ok := lit.(time.Time); !ok {
			tv, err := c.Literal(col, lit)
			if err != nil {
				panic(err)
			}
			lit = tv
		}
		sat, ok := satisfies(v, x.Op, lit)
		if !ok {
			panic("incomparable values")
		}
		return triOf(sat)
	case In:
		v := row[x.Column]
		if v == nil {
			return triNull
		}
		col, _ := cols.Lookup(x.Column)
		result := triFalse
		for _, l := range x.Literals {
			if l == nil {
				result = triNull
				continue
			}
			tv := l
			if _, ok := l.(time.Time); !ok {
				var err error
				if tv, err = c.Literal(col, l); err != nil {
					panic(err)
				}
			}
			if eq, _ := satisfies(v, OpEq, tv); eq {
				result = triTrue
				break
			}
		}
		if x.Negated {
			return notTri(result)
		}
		return result
	case IsNull:
		return triOf(row[x.Column] == nil)
	case IsNotNull:
		return triOf(row[x.Column] != nil)
	case Not:
		return notTri(evalRow(x.Child, cols, c, row))
	case And:
		out := triTrue
		for _, ch := range x.Children {
			switch evalRow(ch, cols, c, row) {
			case triFalse:
				return triFalse
			case triNull:
				out = triNull
			}
		}
		return out
	case Or:
		out := triFalse
		for _, ch := range x.Children {
			switch evalRow(ch, cols, c, row) {
			case triTrue:
				return triTrue
			case triNull:
				out = triNull
			}
		}
		return out
	}
	panic("unexpected expression")
}

func notTri(t tri) tri {
	switch t {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	}
	return triNull
}
