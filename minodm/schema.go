package minodm

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Policy governs raw-document keys not declared in the schema.
type Policy string

const (
	PolicyKeep  Policy = "keep"
	PolicyError Policy = "error"
	PolicyErase Policy = "erase"
)

// SchemaOptions configures schema behavior.
type SchemaOptions struct {
	UndefinedPropertyPolicy Policy // default PolicyErase
}

// FieldDef pairs a field name with its type for schema construction.
type FieldDef struct {
	Name string
	Type *Field
}

// F is shorthand for a FieldDef.
func F(name string, t *Field) FieldDef {
	return FieldDef{Name: name, Type: t}
}

var validFieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reservedFieldNames = map[string]bool{
	"_id": true,
}

// Schema is an ordered set of named fields. It is immutable after
// construction and safely shared by concurrent initialization calls.
type Schema struct {
	order  []string
	fields map[string]*Field
	policy Policy
}

// NewSchema builds a schema from ordered field definitions. Each Field is
// named and owned by the schema; a Field cannot belong to two schemas.
func NewSchema(defs []FieldDef, opts SchemaOptions) (*Schema, error) {
	if len(defs) == 0 {
		return nil, SchemaError("schema must have at least one field")
	}

	policy := opts.UndefinedPropertyPolicy
	switch policy {
	case "":
		policy = PolicyErase
	case PolicyKeep, PolicyError, PolicyErase:
	default:
		return nil, SchemaError(fmt.Sprintf("unknown undefined-property policy '%s'", policy))
	}

	s := &Schema{
		order:  make([]string, 0, len(defs)),
		fields: make(map[string]*Field, len(defs)),
		policy: policy,
	}
	for _, def := range defs {
		if !validFieldNameRe.MatchString(def.Name) {
			return nil, SchemaError(fmt.Sprintf("invalid field name: %s (must match ^[A-Za-z_][A-Za-z0-9_]*$)", def.Name))
		}
		if reservedFieldNames[def.Name] {
			return nil, SchemaError(fmt.Sprintf("field name '%s' is reserved", def.Name))
		}
		if _, dup := s.fields[def.Name]; dup {
			return nil, SchemaError(fmt.Sprintf("duplicate field name '%s'", def.Name))
		}
		if def.Type == nil {
			return nil, SchemaError(fmt.Sprintf("field '%s' has no type", def.Name))
		}
		if def.Type.owned {
			return nil, SchemaError(fmt.Sprintf("field '%s' already belongs to another schema", def.Name))
		}
		def.Type.name = def.Name
		def.Type.owned = true
		s.order = append(s.order, def.Name)
		s.fields[def.Name] = def.Type
	}
	return s, nil
}

// MustSchema is NewSchema panicking on error, for static declarations.
func MustSchema(defs []FieldDef, opts SchemaOptions) *Schema {
	s, err := NewSchema(defs, opts)
	if err != nil {
		panic(err)
	}
	return s
}

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// HasField reports whether the schema declares name.
func (s *Schema) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.order)
}

// Policy returns the undefined-property policy.
func (s *Schema) Policy() Policy {
	return s.policy
}

// Init normalizes raw in place: every declared field is initialized
// (present values validated, absent ones filled from defaults), then the
// undefined-property policy is applied to unconsumed keys. Field resolution
// fans out concurrently and joins on the first failure; defaults are
// written only after every field resolved, so a failed Init leaves raw
// unmodified. Returns the same map reference.
func (s *Schema) Init(ctx context.Context, raw map[string]any) (map[string]any, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	results, err := s.resolveFields(ctx, raw)
	if err != nil {
		return nil, err
	}
	for i, name := range s.order {
		if results[i].store {
			raw[name] = results[i].value
		}
	}

	switch s.policy {
	case PolicyKeep:
	case PolicyError:
		if extra := s.unknownKeys(raw); len(extra) > 0 {
			return nil, UnknownPropertyError(extra[0])
		}
	default: // PolicyErase
		for _, k := range s.unknownKeys(raw) {
			delete(raw, k)
		}
	}
	return raw, nil
}

// InitInstance projects src down to a brand-new schema-shaped document.
// src is never mutated; the result holds exactly the declared fields, one
// key per field. The undefined-property policy does not apply since the
// output is built fresh.
func (s *Schema) InitInstance(ctx context.Context, src map[string]any) (map[string]any, error) {
	if src == nil {
		src = map[string]any{}
	}
	results, err := s.resolveFields(ctx, src)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(s.order))
	for i, name := range s.order {
		out[name] = results[i].value
	}
	return out, nil
}

type fieldResult struct {
	value any
	store bool
}

// resolveFields snapshots each field's slot, then resolves all fields
// concurrently. Nothing writes to doc while the goroutines read it.
func (s *Schema) resolveFields(ctx context.Context, doc map[string]any) ([]fieldResult, error) {
	type slot struct {
		value   any
		present bool
	}
	snap := make([]slot, len(s.order))
	for i, name := range s.order {
		v, ok := doc[name]
		snap[i] = slot{value: v, present: ok}
	}

	results := make([]fieldResult, len(s.order))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range s.order {
		i := i
		f := s.fields[name]
		g.Go(func() error {
			v, store, err := f.resolve(gctx, snap[i].value, snap[i].present, doc)
			if err != nil {
				return err
			}
			results[i] = fieldResult{value: v, store: store}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// unknownKeys returns doc keys not declared in the schema, sorted so the
// reported key is deterministic regardless of map iteration order.
func (s *Schema) unknownKeys(doc map[string]any) []string {
	var extra []string
	for k := range doc {
		if s.HasField(k) || reservedFieldNames[k] {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return extra
}

// ValidateDocument enforces requiredness and re-runs field validation over
// a complete document. This is the explicit pass that rejects a required
// field left absent; Init deliberately does not.
func (s *Schema) ValidateDocument(ctx context.Context, doc map[string]any) error {
	for _, name := range s.order {
		f := s.fields[name]
		v, ok := doc[name]
		if !ok {
			if f.required {
				return &Error{Kind: ErrValidation, Message: "required field missing", Field: name}
			}
			continue
		}
		valid, err := f.IsValid(ctx, v, doc)
		if err != nil {
			return Wrap(ErrValidation, "validator failed", err)
		}
		if !valid {
			return ValidationError(name, v)
		}
	}
	return nil
}

// IsValid is a placeholder kept for interface compatibility; it performs no
// checks. Use ValidateDocument for actual enforcement.
func (s *Schema) IsValid() error {
	return nil
}
