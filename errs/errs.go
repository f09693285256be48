// Package errs defines the error kinds surfaced by the bridge.
//
// Every failure produced while resolving connections, translating filters or
// coercing document values is an *Error wrapping one of the sentinel kinds
// below, so callers can branch with errors.Is and still print the column,
// declared type and raw value shape that caused it.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
var (
	// ErrConfig indicates a conflicting or incomplete connection specification.
	ErrConfig = errors.New("config error")

	// ErrTypeMismatch indicates a raw value shape incompatible with the declared type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNumericOverflowOrFormat indicates a numeric value out of range or ill-formed.
	ErrNumericOverflowOrFormat = errors.New("numeric overflow or format error")

	// ErrRange indicates a date or time outside the representable range.
	ErrRange = errors.New("value out of range")

	// ErrInvalidIdentityLiteral indicates a filter literal against the identity
	// column that is neither an ObjectID nor a UUID.
	ErrInvalidIdentityLiteral = errors.New("invalid identity literal")

	// ErrInvalidLiteral indicates an IN-list literal not coercible to the column type.
	ErrInvalidLiteral = errors.New("invalid literal")

	// ErrUnsupportedPushdown indicates a clause that cannot be pushed down
	// while unsupported clauses are configured to fail the query.
	ErrUnsupportedPushdown = errors.New("unsupported pushdown")
)

// Error carries the diagnostic context of a failure.
type Error struct {
	Kind         error
	Column       string
	DeclaredType string
	RawShape     string
	Clause       string
	Detail       string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.DeclaredType != "" {
		fmt.Fprintf(&b, " declared %s", e.DeclaredType)
	}
	if e.RawShape != "" {
		fmt.Fprintf(&b, ", got %s", e.RawShape)
	}
	if e.Clause != "" {
		fmt.Fprintf(&b, " in clause %s", e.Clause)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Config returns a configuration error.
func Config(format string, args ...any) error {
	return &Error{Kind: ErrConfig, Detail: fmt.Sprintf(format, args...)}
}

// Coercion returns a value coercion error of the given kind.
func Coercion(kind error, column, declared, shape, detail string) error {
	return &Error{
		Kind:         kind,
		Column:       column,
		DeclaredType: declared,
		RawShape:     shape,
		Detail:       detail,
	}
}

// Pushdown returns a translation error for a filter or sort clause.
func Pushdown(kind error, column, clause, detail string) error {
	return &Error{
		Kind:   kind,
		Column: column,
		Clause: clause,
		Detail: detail,
	}
}

// KindOf returns the error kind of err, or nil if err is not a bridge error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
