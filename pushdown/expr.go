// Package pushdown translates relational filter and sort clauses into
// native document-store queries.
//
// Translation is a pure, single-pass tree transform. The emitted filter is
// always a superset filter: it never excludes a row the original predicate
// keeps. Result.FullyPushed reports whether it is also exact, i.e. whether
// the caller may skip local re-evaluation.
package pushdown

import "fmt"

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Negate returns the operator of NOT (a op b).
func (op Op) Negate() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGte
	case OpLte:
		return OpGt
	case OpGt:
		return OpLte
	case OpGte:
		return OpLt
	}
	return op
}

// Flip returns the operator of (b op a) for (a op b).
func (op Op) Flip() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpLte:
		return OpGte
	case OpGt:
		return OpLt
	case OpGte:
		return OpLte
	}
	return op
}

func (op Op) valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Expr is a filter expression node.
type Expr interface {
	String() string
	exprNode()
}

// Comparison compares a column with a literal. Literal is a Go value:
// an integer, float, string, bool, time.Time, uuid.UUID, *big.Int or nil.
type Comparison struct {
	Column  string
	Op      Op
	Literal any
}

// And is a conjunction.
type And struct {
	Children []Expr
}

// Or is a disjunction.
type Or struct {
	Children []Expr
}

// Not negates its child.
type Not struct {
	Child Expr
}

// In tests set membership; Negated makes it NOT IN.
type In struct {
	Column   string
	Literals []any
	Negated  bool
}

// IsNull tests for null or absent values.
type IsNull struct {
	Column string
}

// IsNotNull is the negation of IsNull.
type IsNotNull struct {
	Column string
}

// Unsupported is a clause the translator cannot express, such as a
// function call or a comparison between two columns.
type Unsupported struct {
	Description string
}

func (Comparison) exprNode()  {}
func (And) exprNode()         {}
func (Or) exprNode()          {}
func (Not) exprNode()         {}
func (In) exprNode()          {}
func (IsNull) exprNode()      {}
func (IsNotNull) exprNode()   {}
func (Unsupported) exprNode() {}

func (e Comparison) String() string {
	return fmt.Sprintf("%s %s %s", e.Column, e.Op, formatLiteral(e.Literal))
}

func (e And) String() string { return joinExprs(e.Children, " AND ") }
func (e Or) String() string  { return joinExprs(e.Children, " OR ") }

func (e Not) String() string {
	return "NOT (" + e.Child.String() + ")"
}

func (e In) String() string {
	s := e.Column
	if e.Negated {
		s += " NOT"
	}
	s += " IN ("
	for i, l := range e.Literals {
		if i > 0 {
			s += ", "
		}
		s += formatLiteral(l)
	}
	return s + ")"
}

func (e IsNull) String() string      { return e.Column + " IS NULL" }
func (e IsNotNull) String() string   { return e.Column + " IS NOT NULL" }
func (e Unsupported) String() string { return e.Description }

func joinExprs(children []Expr, sep string) string {
	s := "("
	for i, c := range children {
		if i > 0 {
			s += sep
		}
		s += c.String()
	}
	return s + ")"
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + x + "'"
	case fmt.Stringer:
		return "'" + x.String() + "'"
	}
	return fmt.Sprint(v)
}

// SortKey is one ORDER BY element.
type SortKey struct {
	Column     string
	Descending bool
	// WithFill marks gap-filling modifiers, which cannot be pushed down.
	WithFill bool
}
