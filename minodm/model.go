package minodm

import (
	"sort"

	"github.com/minodm/minodm/minodm/storage"
)

// Model is one schema-shaped document instance. Bookkeeping (the new flag,
// the dirty set) lives in unexported fields reachable only through methods,
// never through the field accessors.
type Model struct {
	schema *Schema
	values map[string]any
	dirty  map[string]bool
	isNew  bool
}

func newModel(schema *Schema, values map[string]any, isNew bool) *Model {
	if values == nil {
		values = map[string]any{}
	}
	return &Model{
		schema: schema,
		values: values,
		dirty:  map[string]bool{},
		isNew:  isNew,
	}
}

// IsNew reports whether the model has never been persisted.
func (m *Model) IsNew() bool {
	return m.isNew
}

// ID returns the document id, or "" when the model was never persisted.
func (m *Model) ID() string {
	id, _ := m.values[storage.IDKey].(string)
	return id
}

// Get returns the value of a field.
func (m *Model) Get(field string) (any, bool) {
	v, ok := m.values[field]
	return v, ok
}

// Has reports whether the field currently holds a value.
func (m *Model) Has(field string) bool {
	_, ok := m.values[field]
	return ok
}

// Set assigns a field through the guarded interface: the field's cast hook
// is applied and the field is recorded dirty. Assigning a key the schema
// does not declare is allowed only under the KEEP policy.
func (m *Model) Set(field string, value any) error {
	if field == storage.IDKey {
		return SchemaError("the document id cannot be assigned directly")
	}
	f, ok := m.schema.Field(field)
	if !ok {
		if m.schema.Policy() != PolicyKeep {
			return UnknownPropertyError(field)
		}
		m.values[field] = value
		m.dirty[field] = true
		return nil
	}
	m.values[field] = f.CastValue(value)
	m.dirty[field] = true
	return nil
}

// Unset removes a field's value and records it dirty.
func (m *Model) Unset(field string) error {
	if field == storage.IDKey {
		return SchemaError("the document id cannot be unset")
	}
	if _, ok := m.values[field]; !ok {
		return nil
	}
	delete(m.values, field)
	m.dirty[field] = true
	return nil
}

// Dirty returns the names of fields mutated since the last save or load,
// sorted for determinism.
func (m *Model) Dirty() []string {
	out := make([]string, 0, len(m.dirty))
	for k := range m.dirty {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Document returns a copy of the model's current values, id included.
func (m *Model) Document() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// markSaved resets bookkeeping after a successful persistence round trip.
func (m *Model) markSaved(id string) {
	if id != "" {
		m.values[storage.IDKey] = id
	}
	m.isNew = false
	m.dirty = map[string]bool{}
}
