// Package rules evaluates CEL predicates used as field validation rules.
// Expressions see two variables: `value`, the candidate field value, and
// `doc`, the raw document the value belongs to.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Engine compiles and caches CEL programs.
type Engine struct {
	env      *cel.Env
	prgCache sync.Map // expression -> cel.Program
}

// NewEngine creates an Engine with the standard environment.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &Engine{env: env}, nil
}

// Eval evaluates expression against value and doc. The expression must
// produce a boolean.
func (e *Engine) Eval(expression string, value any, doc map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}

	var prg cel.Program
	if cached, ok := e.prgCache.Load(expression); ok {
		prg = cached.(cel.Program)
	} else {
		ast, issues := e.env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return false, fmt.Errorf("compile rule: %w", issues.Err())
		}
		p, err := e.env.Program(ast)
		if err != nil {
			return false, fmt.Errorf("build rule program: %w", err)
		}
		prg = p
		e.prgCache.Store(expression, prg)
	}

	if doc == nil {
		doc = map[string]any{}
	}
	out, _, err := prg.Eval(map[string]any{"value": value, "doc": doc})
	if err != nil {
		return false, fmt.Errorf("eval rule: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule must return a boolean, got %T", out.Value())
	}
	return result, nil
}
