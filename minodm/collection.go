package minodm

import (
	"context"
	"errors"

	"github.com/minodm/minodm/minodm/query"
	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/translate"
)

// Collection binds a schema to a named document collection on a storage
// backend. The store may be left nil for schema-only use; persistence calls
// then fail with an unbound error.
type Collection struct {
	name   string
	schema *Schema
	store  storage.Store
}

// NewCollection creates a collection. name is informational (used in
// errors); the store may be nil.
func NewCollection(name string, schema *Schema, store storage.Store) (*Collection, error) {
	if schema == nil {
		return nil, UnboundError("schema")
	}
	if name == "" {
		name = "documents"
	}
	return &Collection{name: name, schema: schema, store: store}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Schema returns the bound schema.
func (c *Collection) Schema() *Schema { return c.schema }

func (c *Collection) requireStore() error {
	if c.store == nil {
		return UnboundError("store")
	}
	return nil
}

// New builds a fresh, unsaved model by projecting src through the schema
// (InitInstance path). src is not mutated.
func (c *Collection) New(ctx context.Context, src map[string]any) (*Model, error) {
	values, err := c.schema.InitInstance(ctx, src)
	if err != nil {
		return nil, err
	}
	if id, ok := src[storage.IDKey]; ok {
		values[storage.IDKey] = id
	}
	return newModel(c.schema, values, true), nil
}

// Hydrate wraps a document loaded from storage in a model. The document is
// trusted as already normalized.
func (c *Collection) Hydrate(doc map[string]any) *Model {
	return newModel(c.schema, doc, false)
}

// Insert normalizes raw documents in place (Init path, policy applied) and
// creates them. Returns the assigned ids.
func (c *Collection) Insert(ctx context.Context, docs ...map[string]any) ([]string, error) {
	if err := c.requireStore(); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if _, err := c.schema.Init(ctx, doc); err != nil {
			return nil, err
		}
	}
	return c.store.Create(ctx, docs)
}

// InsertInitialized creates documents that have already been normalized by
// the schema, skipping the Init pass. Callers that batch normalization
// themselves use this to avoid paying for it twice.
func (c *Collection) InsertInitialized(ctx context.Context, docs []map[string]any) ([]string, error) {
	if err := c.requireStore(); err != nil {
		return nil, err
	}
	return c.store.Create(ctx, docs)
}

// Save persists a model: a new model is created, an existing one gets an
// update carrying only its dirty fields. A clean existing model is a no-op.
func (c *Collection) Save(ctx context.Context, m *Model) error {
	if err := c.requireStore(); err != nil {
		return err
	}

	if m.isNew {
		ids, err := c.store.Create(ctx, []map[string]any{m.Document()})
		if err != nil {
			return err
		}
		id := ""
		if len(ids) > 0 {
			id = ids[0]
		}
		m.markSaved(id)
		return nil
	}

	dirty := m.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	if m.ID() == "" {
		return SchemaError("cannot update a model without a document id")
	}

	b := query.NewBuilder()
	for _, field := range dirty {
		var inv query.Invoker
		if f, ok := c.schema.Field(field); ok {
			inv = f.QueryOperations(b)[query.Set]
		} else {
			inv = query.Declare(b, query.Set, field)
		}
		if v, ok := m.Get(field); ok {
			if _, err := inv(v); err != nil {
				return wrapBuilderErr(err)
			}
		} else {
			if _, err := b.Scope(field).Append(query.Unset, query.Value(nil)); err != nil {
				return wrapBuilderErr(err)
			}
		}
	}

	ops, err := b.Resolve(ctx)
	if err != nil {
		return wrapBuilderErr(err)
	}
	_, update, err := translate.Build(ops)
	if err != nil {
		return Wrap(ErrSchema, "translate update", err)
	}
	if _, err := c.store.UpdateOne(ctx, storage.ByID(m.ID()), update); err != nil {
		return Wrap(ErrSQL, "update document", err)
	}
	m.markSaved("")
	return nil
}

// Remove deletes a persisted model's document.
func (c *Collection) Remove(ctx context.Context, m *Model) error {
	if err := c.requireStore(); err != nil {
		return err
	}
	if m.ID() == "" {
		return SchemaError("cannot remove a model without a document id")
	}
	n, err := c.store.RemoveOne(ctx, storage.ByID(m.ID()))
	if err != nil {
		return Wrap(ErrSQL, "remove document", err)
	}
	if n == 0 {
		return NotFoundError(c.name)
	}
	m.isNew = true
	return nil
}

// FindByID loads one model by document id.
func (c *Collection) FindByID(ctx context.Context, id string) (*Model, error) {
	if err := c.requireStore(); err != nil {
		return nil, err
	}
	doc, err := c.store.FindOne(ctx, storage.ByID(id))
	if errors.Is(err, storage.ErrNoDocument) {
		return nil, NotFoundError(c.name)
	}
	if err != nil {
		return nil, Wrap(ErrSQL, "find document", err)
	}
	return c.Hydrate(doc), nil
}

func wrapBuilderErr(err error) error {
	if errors.Is(err, query.ErrInvalidContext) {
		return Wrap(ErrInvalidContext, "operator declared without a field scope", err)
	}
	return Wrap(ErrSchema, "declare operation", err)
}
