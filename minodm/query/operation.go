// Package query implements the operation builder: declaring an operator
// against a field scope enqueues a deferred operation onto a builder, and
// resolving the builder yields the ordered operation list consumed by a
// backend translator.
package query

import "context"

// Operator identifies a query or update operator.
type Operator string

const (
	Equal    Operator = "EQUAL"
	NotEqual Operator = "NOT_EQUAL"
	IsIn     Operator = "IS_IN"
	NotIn    Operator = "NOT_IN"
	Gt       Operator = "GT"
	Gte      Operator = "GTE"
	Lt       Operator = "LT"
	Lte      Operator = "LTE"
	Exists   Operator = "EXISTS"
	Matches  Operator = "MATCHES"

	// Update operators. They target the update document rather than the
	// filter, but flow through the same builder.
	Set   Operator = "SET"
	Unset Operator = "UNSET"
	Inc   Operator = "INC"
)

// IsUpdate reports whether the operator contributes to the update document
// instead of the filter.
func (op Operator) IsUpdate() bool {
	switch op {
	case Set, Unset, Inc:
		return true
	}
	return false
}

// Operation is one resolved query or update clause.
type Operation struct {
	Context  string
	Operator Operator
	Value    any
}

// Operand supplies the value for an operation. Resolution may block, so it
// receives a context; immediate values resolve trivially.
type Operand func(ctx context.Context) (any, error)

// Value returns an operand that resolves immediately to v.
func Value(v any) Operand {
	return func(context.Context) (any, error) { return v, nil }
}

// Lazy returns an operand backed by a producer invoked at resolution time.
func Lazy(fn func(ctx context.Context) (any, error)) Operand {
	return fn
}
