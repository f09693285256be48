package pushdown

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hugr-lab/docbridge/coerce"
	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// Result is a translated filter.
type Result struct {
	// Filter is the native filter; an empty document matches everything.
	Filter bson.D
	// FullyPushed is false when the caller must re-apply the original
	// predicate to the rows matched by Filter.
	FullyPushed bool
}

// Translator translates filters against one table schema.
//
// Pushed comparisons assume stored values belong to the declared type
// family (numbers for numeric columns, strings for String columns, dates for
// temporal columns). Values of another family are still coerced when read,
// but native comparisons do not match them.
type Translator struct {
	columns schema.Columns
	coercer *coerce.Coercer

	// ThrowOnUnsupported makes Unsupported clauses fail the query instead
	// of being left to local evaluation.
	ThrowOnUnsupported bool
}

// NewTranslator returns a translator that throws on unsupported clauses.
func NewTranslator(columns schema.Columns, c *coerce.Coercer) *Translator {
	if c == nil {
		c = &coerce.Coercer{}
	}
	return &Translator{columns: columns, coercer: c, ThrowOnUnsupported: true}
}

// fragment is the translation of one subtree. A pushed fragment with an
// empty filter matches everything.
type fragment struct {
	filter bson.D
	pushed bool
	exact  bool
}

var residual = fragment{}

func exact(filter bson.D) fragment {
	return fragment{filter: filter, pushed: true, exact: true}
}

func superset(filter bson.D) fragment {
	return fragment{filter: filter, pushed: true}
}

// Translate converts e into a native filter. A nil expression matches
// everything and is fully pushed.
func (t *Translator) Translate(e Expr) (Result, error) {
	if e == nil {
		return Result{Filter: bson.D{}, FullyPushed: true}, nil
	}
	f, err := t.translate(e)
	if err != nil {
		return Result{}, err
	}
	if !f.pushed || f.filter == nil {
		return Result{Filter: bson.D{}, FullyPushed: f.pushed && f.exact}, nil
	}
	return Result{Filter: f.filter, FullyPushed: f.exact}, nil
}

func (t *Translator) translate(e Expr) (fragment, error) {
	switch x := e.(type) {
	case Comparison:
		return t.comparison(x)
	case In:
		return t.in(x)
	case IsNull:
		return t.isNull(x)
	case IsNotNull:
		return t.isNotNull(x)
	case And:
		return t.and(x)
	case Or:
		return t.or(x)
	case Not:
		return t.not(x)
	case Unsupported:
		return t.unsupported(x.Description)
	case nil:
		return exact(bson.D{}), nil
	}
	return t.unsupported(e.String())
}

func (t *Translator) unsupported(clause string) (fragment, error) {
	if t.ThrowOnUnsupported {
		return residual, errs.Pushdown(errs.ErrUnsupportedPushdown, "", clause, "clause cannot be pushed down")
	}
	return residual, nil
}

// and pushes every child independently and drops the ones that cannot be
// pushed.
func (t *Translator) and(e And) (fragment, error) {
	if len(e.Children) == 0 {
		return exact(bson.D{}), nil
	}
	var parts bson.A
	pushedAny, isExact := false, true
	for _, child := range e.Children {
		f, err := t.translate(child)
		if err != nil {
			return residual, err
		}
		if !f.pushed {
			isExact = false
			continue
		}
		pushedAny = true
		isExact = isExact && f.exact
		if len(f.filter) > 0 {
			parts = append(parts, f.filter)
		}
	}
	if !pushedAny {
		return residual, nil
	}
	out := fragment{pushed: true, exact: isExact}
	switch len(parts) {
	case 0:
		out.filter = bson.D{}
	case 1:
		out.filter = parts[0].(bson.D)
	default:
		out.filter = bson.D{{Key: "$and", Value: parts}}
	}
	return out, nil
}

// or is pushed only when every child is pushed.
func (t *Translator) or(e Or) (fragment, error) {
	if len(e.Children) == 0 {
		return residual, nil
	}
	var parts bson.A
	allPushed, isExact, matchAll := true, true, false
	for _, child := range e.Children {
		f, err := t.translate(child)
		if err != nil {
			return residual, err
		}
		if !f.pushed {
			allPushed = false
			continue
		}
		isExact = isExact && f.exact
		if len(f.filter) == 0 {
			matchAll = true
			continue
		}
		parts = append(parts, f.filter)
	}
	if !allPushed {
		return residual, nil
	}
	if matchAll {
		return fragment{filter: bson.D{}, pushed: true, exact: isExact}, nil
	}
	if len(parts) == 1 {
		return fragment{filter: parts[0].(bson.D), pushed: true, exact: isExact}, nil
	}
	return fragment{filter: bson.D{{Key: "$or", Value: parts}}, pushed: true, exact: isExact}, nil
}

// not is pushed only for clauses with a direct negated form.
func (t *Translator) not(e Not) (fragment, error) {
	switch c := e.Child.(type) {
	case Comparison:
		c.Op = c.Op.Negate()
		return t.comparison(c)
	case In:
		c.Negated = !c.Negated
		return t.in(c)
	case IsNull:
		return t.isNotNull(IsNotNull(c))
	case IsNotNull:
		return t.isNull(IsNull(c))
	case Not:
		return t.translate(c.Child)
	case Unsupported:
		return t.unsupported(c.Description)
	}
	// Translate anyway to surface literal errors in the subtree.
	if _, err := t.translate(e.Child); err != nil {
		return residual, err
	}
	return residual, nil
}

func (t *Translator) column(name string) (schema.Column, bool) {
	return t.columns.Lookup(name)
}

// identityText reports whether col is an identity column whose literals are
// validated as ObjectID or UUID text.
func (t *Translator) identityText(col schema.Column) bool {
	if !t.coercer.IsIdentity(col.Name) {
		return false
	}
	k := col.Type.Kind
	return k == schema.KindString || k == schema.KindUUID
}

func (t *Translator) comparison(e Comparison) (fragment, error) {
	col, ok := t.column(e.Column)
	if !ok || !e.Op.valid() {
		return t.unsupported(e.String())
	}
	if e.Literal == nil {
		// Comparisons with NULL are never true.
		return residual, nil
	}
	if t.identityText(col) {
		if s, ok := e.Literal.(string); ok {
			return t.identityComparison(col, e.Op, s)
		}
	}

	k := col.Type.Kind
	if !literalFamily(k, e.Literal) {
		return residual, nil
	}
	typed, err := t.coercer.Literal(col, e.Literal)
	if err != nil || typed == nil {
		return residual, nil
	}

	switch {
	case k.IsTemporal():
		lit, ok := e.Literal.(time.Time)
		if !ok {
			return residual, nil
		}
		return t.temporalComparison(col, e.Op, lit.UTC()), nil
	case k == schema.KindFloat32:
		return t.float32Comparison(col, e.Op, typed.(float32)), nil
	case k == schema.KindUUID:
		return t.setComparison(col, e.Op, typed, uuidVariants(typed.(uuid.UUID))), nil
	}

	v, ok := toBSON(typed)
	if !ok {
		return residual, nil
	}
	if e.Op == OpNe {
		return t.notEqual(col, typed, bson.A{v}), nil
	}
	var cond any = v
	if e.Op != OpEq {
		cond = bson.D{{Key: mongoOp(e.Op), Value: v}}
	}
	return t.withZero(col, e.Op, typed, bson.D{{Key: col.Name, Value: cond}}, true), nil
}

func (t *Translator) identityComparison(col schema.Column, op Op, s string) (fragment, error) {
	v, err := coerce.IdentityLiteral(col.Name, s)
	if err != nil {
		return residual, err
	}
	if col.Type.Kind == schema.KindString {
		return t.setComparison(col, op, s, textIdentityVariants(v, s)), nil
	}
	b, ok := v.(rawvalue.Binary)
	if !ok {
		// An ObjectID never equals a UUID column value.
		return residual, nil
	}
	var id uuid.UUID
	copy(id[:], b.Data)
	return t.setComparison(col, op, id, uuidVariants(id)), nil
}

// setComparison pushes = and != against a set of equivalent stored forms.
// Ordering comparisons stay residual.
func (t *Translator) setComparison(col schema.Column, op Op, typed any, variants bson.A) fragment {
	switch op {
	case OpEq:
		cond := bson.D{{Key: "$in", Value: variants}}
		return t.withZero(col, op, typed, bson.D{{Key: col.Name, Value: cond}}, true)
	case OpNe:
		return t.notEqual(col, typed, variants)
	}
	return residual
}

// notEqual excludes the given stored forms. $nin also matches absent and null
// fields, which is right only when the column default differs from typed.
func (t *Translator) notEqual(col schema.Column, typed any, variants bson.A) fragment {
	keepMissing := false
	if !col.Nullable {
		sat, ok := satisfies(t.coercer.Zero(col.Type), OpNe, typed)
		if !ok {
			return residual
		}
		keepMissing = sat
	}
	values := append(bson.A{}, variants...)
	if !keepMissing {
		values = append(values, nil)
	}
	if keepMissing && len(variants) == 1 {
		return exact(bson.D{{Key: col.Name, Value: bson.D{{Key: "$ne", Value: variants[0]}}}})
	}
	return exact(bson.D{{Key: col.Name, Value: bson.D{{Key: "$nin", Value: values}}}})
}

// withZero adds absent and null fields to base when the default value of a
// non-nullable column satisfies the comparison. base must not match absent
// or null fields itself.
func (t *Translator) withZero(col schema.Column, op Op, lit any, base bson.D, isExact bool) fragment {
	f := fragment{filter: base, pushed: true, exact: isExact}
	if col.Nullable {
		return f
	}
	sat, ok := satisfies(t.coercer.Zero(col.Type), op, lit)
	if !ok {
		return residual
	}
	if sat {
		f.filter = bson.D{{Key: "$or", Value: bson.A{base, bson.D{{Key: col.Name, Value: nil}}}}}
	}
	return f
}

// temporalComparison rewrites a comparison on a truncated column value into
// a range over the stored instant.
func (t *Translator) temporalComparison(col schema.Column, op Op, lit time.Time) fragment {
	k := col.Type.Kind
	step := coerce.Granularity(k)
	floor := coerce.Truncate(lit, k)
	aligned := floor.Equal(lit)
	ceil := floor
	if !aligned {
		ceil = floor.Add(step)
	}
	date := func(tm time.Time) bson.DateTime { return bson.DateTime(tm.UnixMilli()) }
	field := col.Name

	var base bson.D
	switch op {
	case OpEq:
		if !aligned {
			// A truncated value never equals an unaligned instant.
			return exact(bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: bson.A{}}}}})
		}
		base = bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: date(floor)}, {Key: "$lt", Value: date(floor.Add(step))}}}}
	case OpNe:
		if !aligned {
			return residual
		}
		base = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: date(floor)}}}},
			bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: date(floor.Add(step))}}}},
		}}}
	case OpLt:
		base = bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: date(ceil)}}}}
	case OpLte:
		base = bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: date(floor.Add(step))}}}}
	case OpGt:
		base = bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: date(floor.Add(step))}}}}
	case OpGte:
		base = bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: date(ceil)}}}}
	default:
		return residual
	}
	return t.withZero(col, op, lit, base, true)
}

// float32Comparison widens the bounds by one Float32 step, since a stored
// double is rounded before it is compared. The result is a superset.
func (t *Translator) float32Comparison(col schema.Column, op Op, f float32) fragment {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return residual
	}
	prev := float64(math.Nextafter32(f, float32(math.Inf(-1))))
	next := float64(math.Nextafter32(f, float32(math.Inf(1))))
	v := float64(f)

	var cond bson.D
	switch op {
	case OpEq:
		cond = bson.D{{Key: "$gte", Value: prev}, {Key: "$lte", Value: next}}
	case OpNe:
		// $ne also matches absent fields, so no default handling is needed.
		return superset(bson.D{{Key: col.Name, Value: bson.D{{Key: "$ne", Value: v}}}})
	case OpLt:
		cond = bson.D{{Key: "$lt", Value: v}}
	case OpLte:
		cond = bson.D{{Key: "$lte", Value: next}}
	case OpGt:
		cond = bson.D{{Key: "$gt", Value: v}}
	case OpGte:
		cond = bson.D{{Key: "$gte", Value: prev}}
	default:
		return residual
	}
	return t.withZero(col, op, f, bson.D{{Key: col.Name, Value: cond}}, false)
}

func mongoOp(op Op) string {
	switch op {
	case OpEq:
		return "$eq"
	case OpNe:
		return "$ne"
	case OpLt:
		return "$lt"
	case OpLte:
		return "$lte"
	case OpGt:
		return "$gt"
	case OpGte:
		return "$gte"
	}
	return ""
}

// in pushes a membership test. Every literal must be coercible to the
// column type; a single bad literal fails the query.
func (t *Translator) in(e In) (fragment, error) {
	col, ok := t.column(e.Column)
	if !ok {
		return t.unsupported(e.String())
	}
	k := col.Type.Kind
	if k == schema.KindArray || k == schema.KindGeometry {
		return residual, nil
	}

	identity := t.identityText(col)
	var (
		values  bson.A
		typed   []any
		hasNull bool
		pushed  = true
	)
	for _, lit := range e.Literals {
		if lit == nil {
			hasNull = true
			continue
		}
		if identity {
			if s, ok := lit.(string); ok {
				v, err := coerce.IdentityLiteral(col.Name, s)
				if err != nil {
					return residual, err
				}
				if k == schema.KindString {
					values = append(values, textIdentityVariants(v, s)...)
					typed = append(typed, s)
					continue
				}
				if b, ok := v.(rawvalue.Binary); ok {
					var id uuid.UUID
					copy(id[:], b.Data)
					values = append(values, uuidVariants(id)...)
					typed = append(typed, id)
				}
				continue
			}
		}

		tv, err := t.coercer.Literal(col, lit)
		if err != nil {
			if identity {
				return residual, errs.Pushdown(errs.ErrInvalidIdentityLiteral, col.Name, e.String(), err.Error())
			}
			return residual, inListError(col, e, err)
		}
		typed = append(typed, tv)

		switch {
		case k.IsTemporal():
			lt, ok := lit.(time.Time)
			if !ok || coerce.Granularity(k) != time.Millisecond {
				pushed = false
				continue
			}
			if !coerce.Truncate(lt, k).Equal(lt) {
				// Never equal to a truncated value.
				typed = typed[:len(typed)-1]
				continue
			}
			values = append(values, bson.DateTime(lt.UnixMilli()))
		case k == schema.KindFloat32:
			pushed = false
		case k == schema.KindUUID:
			values = append(values, uuidVariants(tv.(uuid.UUID))...)
		default:
			v, ok := toBSON(tv)
			if !ok {
				pushed = false
				continue
			}
			values = append(values, v)
		}
	}
	if !pushed || (e.Negated && hasNull) {
		return residual, nil
	}

	zeroIn := false
	if !col.Nullable {
		zero := t.coercer.Zero(col.Type)
		for _, v := range typed {
			if eq, ok := satisfies(zero, OpEq, v); ok && eq {
				zeroIn = true
				break
			}
		}
	}
	if values == nil {
		values = bson.A{}
	}

	if e.Negated {
		if len(values) == 0 {
			if col.Nullable {
				return exact(bson.D{{Key: col.Name, Value: bson.D{{Key: "$ne", Value: nil}}}}), nil
			}
			return exact(bson.D{}), nil
		}
		if col.Nullable || zeroIn {
			values = append(values, nil)
		}
		return exact(bson.D{{Key: col.Name, Value: bson.D{{Key: "$nin", Value: values}}}}), nil
	}
	if zeroIn {
		values = append(values, nil)
	}
	return exact(bson.D{{Key: col.Name, Value: bson.D{{Key: "$in", Value: values}}}}), nil
}

func inListError(col schema.Column, e In, err error) error {
	var ce *errs.Error
	if errors.As(err, &ce) {
		return &errs.Error{
			Kind:         errs.ErrInvalidLiteral,
			Column:       col.Name,
			DeclaredType: col.DeclaredType(),
			RawShape:     ce.RawShape,
			Clause:       e.String(),
			Detail:       ce.Detail,
		}
	}
	return errs.Pushdown(errs.ErrInvalidLiteral, col.Name, e.String(), err.Error())
}

// isNull matches absent and null fields. It is exact only for nullable
// columns; other columns bind absent fields to their default.
func (t *Translator) isNull(e IsNull) (fragment, error) {
	col, ok := t.column(e.Column)
	if !ok {
		return t.unsupported(e.String())
	}
	f := bson.D{{Key: col.Name, Value: nil}}
	if col.Nullable {
		return exact(f), nil
	}
	return superset(f), nil
}

func (t *Translator) isNotNull(e IsNotNull) (fragment, error) {
	col, ok := t.column(e.Column)
	if !ok {
		return t.unsupported(e.String())
	}
	if !col.Nullable {
		return exact(bson.D{}), nil
	}
	return exact(bson.D{{Key: col.Name, Value: bson.D{{Key: "$ne", Value: nil}}}}), nil
}
