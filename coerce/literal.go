package coerce

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// Literal converts a filter literal into the typed value of col, applying
// the same rules as Coerce. A nil literal yields nil.
//
// Failures are reported as errs.ErrInvalidLiteral. String literals against
// UUID columns are parsed here, unlike stored values.
func (c *Coercer) Literal(col schema.Column, lit any) (any, error) {
	if lit == nil {
		return nil, nil
	}
	t := col.Type.Base()
	if s, ok := lit.(string); ok && t.Kind == schema.KindUUID {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errs.Coercion(errs.ErrInvalidLiteral, col.Name, col.DeclaredType(), "string "+s, "not a UUID")
		}
		return id, nil
	}

	raw, err := rawvalue.FromLiteral(lit)
	if err != nil {
		return nil, errs.Coercion(errs.ErrInvalidLiteral, col.Name, col.DeclaredType(), "", err.Error())
	}
	if rawvalue.IsAbsent(raw) {
		return nil, nil
	}
	v, err := c.coerce(raw, col, t)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, errs.Coercion(errs.ErrInvalidLiteral, e.Column, e.DeclaredType, e.RawShape,
				e.Kind.Error()+": "+e.Detail)
		}
		return nil, err
	}
	return v, nil
}

// IdentityLiteral validates a string literal compared against an identity
// column. It returns an ObjectID for 24 hex characters or a UUID binary
// (subtype 4) for UUID text; anything else is errs.ErrInvalidIdentityLiteral.
func IdentityLiteral(column, s string) (rawvalue.Value, error) {
	if len(s) == 24 {
		if b, err := hex.DecodeString(s); err == nil {
			var id rawvalue.ObjectID
			copy(id[:], b)
			return id, nil
		}
	}
	if len(s) >= 32 && !strings.ContainsAny(s, " \t") {
		if id, err := uuid.Parse(s); err == nil {
			return rawvalue.Binary{Subtype: rawvalue.SubtypeUUID, Data: id[:]}, nil
		}
	}
	return nil, errs.Coercion(errs.ErrInvalidIdentityLiteral, column, "", rawvalue.Shape(rawvalue.String(s)),
		"expected a 24-character hex ObjectID or a UUID")
}
