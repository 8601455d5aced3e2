package query

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidContext is returned when an operator is declared while the
// builder has no active field or update scope.
var ErrInvalidContext = errors.New("operation declared without an active context")

// pending is one enqueued, not yet resolved operation.
type pending struct {
	context  string
	operator Operator
	operand  Operand
}

// Builder accumulates deferred operations for a single query or update.
// It is not safe for concurrent use; each query owns its own builder.
type Builder struct {
	context string
	ops     []pending
}

// NewBuilder returns an empty builder with no active scope.
func NewBuilder() *Builder {
	return &Builder{}
}

// Scope sets the active field scope and returns the builder for chaining.
func (b *Builder) Scope(field string) *Builder {
	b.context = field
	return b
}

// Context returns the active scope, or "" when none is set.
func (b *Builder) Context() string {
	return b.context
}

// Len returns the number of pending operations.
func (b *Builder) Len() int {
	return len(b.ops)
}

// Append enqueues a deferred operation against the active scope. It fails
// synchronously, without appending, when no scope is active.
func (b *Builder) Append(op Operator, operand Operand) (*Builder, error) {
	if b.context == "" {
		return b, fmt.Errorf("%w (operator=%s)", ErrInvalidContext, op)
	}
	b.ops = append(b.ops, pending{context: b.context, operator: op, operand: operand})
	return b, nil
}

// Invoker applies an operator bound to a field: calling it with a value
// enqueues the operation and returns the builder.
type Invoker func(value any) (*Builder, error)

// Declare binds field key and operator op on b, producing an Invoker.
// Immediate values are wrapped; an Operand passes through untouched so
// callers can hand in lazily resolved operands.
func Declare(b *Builder, op Operator, key string) Invoker {
	return func(value any) (*Builder, error) {
		operand, ok := value.(Operand)
		if !ok {
			operand = Value(value)
		}
		return b.Scope(key).Append(op, operand)
	}
}

// Resolve resolves every pending operation concurrently and returns them in
// insertion order. The first failing operand aborts the join; operations
// that resolved before the failure are discarded with it.
func (b *Builder) Resolve(ctx context.Context) ([]Operation, error) {
	out := make([]Operation, len(b.ops))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range b.ops {
		i, p := i, p
		g.Go(func() error {
			v, err := p.operand(gctx)
			if err != nil {
				return fmt.Errorf("resolve %s on %q: %w", p.operator, p.context, err)
			}
			out[i] = Operation{Context: p.context, Operator: p.operator, Value: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
