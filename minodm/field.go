package minodm

import (
	"context"
	"sync"

	"github.com/minodm/minodm/minodm/query"
	"github.com/minodm/minodm/minodm/rules"
)

// Kind labels a field's value type. It drives the built-in type check and
// schema serialization; KindAny applies no check at all.
type Kind string

const (
	KindAny    Kind = "any"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
	KindObject Kind = "object"
)

// Validator checks a candidate value; doc is the raw document the value
// belongs to. Returning false rejects the value.
type Validator func(ctx context.Context, value any, doc map[string]any) (bool, error)

// Caster transforms a value assigned through Model.Set. It is not applied
// during initialization.
type Caster func(value any) any

// Field describes one schema field: required flag, default (literal or
// producer), validators and cast hook. A Field is owned by exactly one
// Schema, which assigns its name at construction time.
type Field struct {
	name  string
	owned bool

	kind     Kind
	required bool

	hasDefault   bool
	defaultValue any
	defaultFunc  func(ctx context.Context) (any, error)

	caster     Caster
	validators []Validator
	rule       string
	extraOps   []query.Operator
}

// NewField returns an untyped field accepting any value.
func NewField(kind Kind) *Field {
	return &Field{kind: kind, caster: func(v any) any { return v }}
}

// Name returns the field name assigned at schema construction, or "" for a
// field not yet adopted by a schema.
func (f *Field) Name() string { return f.name }

// Kind returns the field's declared kind.
func (f *Field) Kind() Kind { return f.kind }

// Required marks the field as required. Requiredness is enforced by
// Schema.ValidateDocument, not by Init.
func (f *Field) Required() *Field {
	f.required = true
	return f
}

// IsRequired reports whether the field was marked required.
func (f *Field) IsRequired() bool { return f.required }

// Default sets a literal default value. An explicit nil is a valid default
// and is stored into the raw document like any other literal.
func (f *Field) Default(v any) *Field {
	f.hasDefault = true
	f.defaultValue = v
	f.defaultFunc = nil
	return f
}

// DefaultFunc sets a producer invoked lazily, once per document lacking the
// field. The producer may block; it observes ctx cancellation on its own.
func (f *Field) DefaultFunc(fn func(ctx context.Context) (any, error)) *Field {
	f.hasDefault = true
	f.defaultFunc = fn
	return f
}

// Validate appends a custom validator. All validators must accept a value
// for it to pass.
func (f *Field) Validate(fn Validator) *Field {
	f.validators = append(f.validators, fn)
	return f
}

// Cast sets the transform applied on assignment through Model.Set.
func (f *Field) Cast(fn Caster) *Field {
	f.caster = fn
	return f
}

// Rule attaches a CEL predicate evaluated during validation. The expression
// sees `value` and `doc`.
func (f *Field) Rule(expr string) *Field {
	f.rule = expr
	return f
}

// CastValue applies the field's cast hook.
func (f *Field) CastValue(v any) any {
	return f.caster(v)
}

var (
	ruleEngineOnce sync.Once
	ruleEngine     *rules.Engine
	ruleEngineErr  error
)

func sharedRuleEngine() (*rules.Engine, error) {
	ruleEngineOnce.Do(func() {
		ruleEngine, ruleEngineErr = rules.NewEngine()
	})
	return ruleEngine, ruleEngineErr
}

// IsValid reports whether value passes the field's type check, custom
// validators and CEL rule. A false result means the value was rejected; a
// non-nil error means a validator itself failed to run.
func (f *Field) IsValid(ctx context.Context, value any, doc map[string]any) (bool, error) {
	if !kindAccepts(f.kind, value) {
		return false, nil
	}
	for _, v := range f.validators {
		ok, err := v(ctx, value, doc)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if f.rule != "" {
		eng, err := sharedRuleEngine()
		if err != nil {
			return false, err
		}
		ok, err := eng.Eval(f.rule, value, doc)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Init initializes the field's slot in raw: a present value is validated
// and left in place (no cast), an absent one is filled from the default.
// A field with no default leaves raw untouched and returns nil.
func (f *Field) Init(ctx context.Context, raw map[string]any) (any, error) {
	v, present := raw[f.name]
	resolved, store, err := f.resolve(ctx, v, present, raw)
	if err != nil {
		return nil, err
	}
	if store {
		raw[f.name] = resolved
	}
	return resolved, nil
}

// resolve computes the field's initialized value without touching doc;
// store reports whether the caller must write the value back (a default was
// filled). doc is read-only here so schema-level initialization can fan out
// across fields safely.
func (f *Field) resolve(ctx context.Context, v any, present bool, doc map[string]any) (value any, store bool, err error) {
	if f.name == "" {
		return nil, false, UnboundError("field name")
	}

	if present {
		valid, err := f.IsValid(ctx, v, doc)
		if err != nil {
			return nil, false, Wrap(ErrValidation, "validator failed", err)
		}
		if !valid {
			return nil, false, ValidationError(f.name, v)
		}
		return v, false, nil
	}

	if f.defaultFunc != nil {
		v, err := f.defaultFunc(ctx)
		if err != nil {
			return nil, false, Wrap(ErrValidation, "default producer failed", err)
		}
		return v, true, nil
	}
	if f.hasDefault {
		return f.defaultValue, true, nil
	}
	return nil, false, nil
}

// QueryOperations returns the field's operator set bound to b: the shared
// operators, the field kind's extras and any caller-supplied extras.
func (f *Field) QueryOperations(b *query.Builder, extra ...query.Operator) map[query.Operator]query.Invoker {
	ops := map[query.Operator]query.Invoker{}
	base := []query.Operator{query.Equal, query.NotEqual, query.IsIn, query.NotIn, query.Exists, query.Set, query.Unset}
	for _, op := range base {
		ops[op] = query.Declare(b, op, f.name)
	}
	for _, op := range f.extraOps {
		ops[op] = query.Declare(b, op, f.name)
	}
	for _, op := range extra {
		ops[op] = query.Declare(b, op, f.name)
	}
	return ops
}
