package minodm

import (
	"context"
	"errors"
	"fmt"

	"github.com/minodm/minodm/minodm/query"
	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/translate"
)

// Query is a fluent builder over a collection. Declaring operators enqueues
// deferred operations on the shared builder; execution resolves them in
// declaration order and hands the translated filter/update to the store.
// A Query belongs to one goroutine; builders are not shared.
type Query struct {
	coll *Collection
	b    *query.Builder

	field     *Field // nil for the id pseudo-field
	fieldName string

	limit int
	skip  int
	sort  *storage.Sort

	err error // first error, surfaced at execution
}

// Query starts a new query against the collection.
func (c *Collection) Query() *Query {
	return &Query{coll: c, b: query.NewBuilder()}
}

// Where scopes subsequent operators to a declared field (or the id key).
func (q *Query) Where(field string) *Query {
	if q.err != nil {
		return q
	}
	if field == storage.IDKey {
		q.field = nil
		q.fieldName = field
		return q
	}
	f, ok := q.coll.schema.Field(field)
	if !ok {
		q.err = UnknownPropertyError(field)
		return q
	}
	q.field = f
	q.fieldName = field
	return q
}

// apply declares op with value against the current scope.
func (q *Query) apply(op query.Operator, value any) *Query {
	if q.err != nil {
		return q
	}
	if q.fieldName == "" {
		_, err := q.b.Append(op, query.Value(value))
		q.err = wrapBuilderErr(err)
		return q
	}

	var inv query.Invoker
	if q.field == nil {
		inv = query.Declare(q.b, op, q.fieldName)
	} else {
		ops := q.field.QueryOperations(q.b)
		var ok bool
		inv, ok = ops[op]
		if !ok {
			q.err = SchemaError(fmt.Sprintf("operator %s not supported on field '%s'", op, q.fieldName))
			return q
		}
	}
	if _, err := inv(value); err != nil {
		q.err = wrapBuilderErr(err)
	}
	return q
}

func (q *Query) Equals(v any) *Query    { return q.apply(query.Equal, v) }
func (q *Query) NotEquals(v any) *Query { return q.apply(query.NotEqual, v) }
func (q *Query) In(vals ...any) *Query  { return q.apply(query.IsIn, vals) }
func (q *Query) NotIn(vals ...any) *Query {
	return q.apply(query.NotIn, vals)
}
func (q *Query) Gt(v any) *Query          { return q.apply(query.Gt, v) }
func (q *Query) Gte(v any) *Query         { return q.apply(query.Gte, v) }
func (q *Query) Lt(v any) *Query          { return q.apply(query.Lt, v) }
func (q *Query) Lte(v any) *Query         { return q.apply(query.Lte, v) }
func (q *Query) Exists(want bool) *Query  { return q.apply(query.Exists, want) }
func (q *Query) Matches(pattern string) *Query {
	return q.apply(query.Matches, pattern)
}

// EqualsLazy declares an equality whose operand is produced at resolution
// time.
func (q *Query) EqualsLazy(fn func(ctx context.Context) (any, error)) *Query {
	return q.apply(query.Equal, query.Lazy(fn))
}

// Set declares an update assignment on field.
func (q *Query) Set(field string, v any) *Query {
	return q.Where(field).apply(query.Set, v)
}

// Unset declares an update removal of field.
func (q *Query) Unset(field string) *Query {
	return q.Where(field).apply(query.Unset, nil)
}

// Inc declares a numeric increment on field.
func (q *Query) Inc(field string, delta float64) *Query {
	return q.Where(field).apply(query.Inc, delta)
}

// Limit caps the number of returned documents.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Skip drops the first n matching documents.
func (q *Query) Skip(n int) *Query {
	q.skip = n
	return q
}

// Sort orders results by field.
func (q *Query) Sort(field string, desc bool) *Query {
	q.sort = &storage.Sort{Field: field, Desc: desc}
	return q
}

// Resolve drains the pending operations into their ordered final form.
func (q *Query) Resolve(ctx context.Context) ([]query.Operation, error) {
	if q.err != nil {
		return nil, q.err
	}
	ops, err := q.b.Resolve(ctx)
	if err != nil {
		return nil, wrapBuilderErr(err)
	}
	return ops, nil
}

func (q *Query) storageQuery(ctx context.Context, wantUpdate bool) (storage.Query, storage.Update, error) {
	ops, err := q.Resolve(ctx)
	if err != nil {
		return storage.Query{}, storage.Update{}, err
	}
	filter, update, err := translate.Build(ops)
	if err != nil {
		return storage.Query{}, storage.Update{}, Wrap(ErrSchema, "translate query", err)
	}
	if !wantUpdate && !update.Empty() {
		return storage.Query{}, storage.Update{}, SchemaError("update operators are not allowed in a find query")
	}
	sq := storage.Query{Filter: filter, Limit: q.limit, Skip: q.skip, Sort: q.sort}
	return sq, update, nil
}

// All executes the query and returns every matching model.
func (q *Query) All(ctx context.Context) ([]*Model, error) {
	if err := q.coll.requireStore(); err != nil {
		return nil, err
	}
	sq, _, err := q.storageQuery(ctx, false)
	if err != nil {
		return nil, err
	}
	docs, err := q.coll.store.Find(ctx, sq)
	if err != nil {
		return nil, Wrap(ErrSQL, "find documents", err)
	}
	models := make([]*Model, len(docs))
	for i, doc := range docs {
		models[i] = q.coll.Hydrate(doc)
	}
	return models, nil
}

// One executes the query and returns the first match.
func (q *Query) One(ctx context.Context) (*Model, error) {
	if err := q.coll.requireStore(); err != nil {
		return nil, err
	}
	sq, _, err := q.storageQuery(ctx, false)
	if err != nil {
		return nil, err
	}
	doc, err := q.coll.store.FindOne(ctx, sq)
	if errors.Is(err, storage.ErrNoDocument) {
		return nil, NotFoundError(q.coll.name)
	}
	if err != nil {
		return nil, Wrap(ErrSQL, "find document", err)
	}
	return q.coll.Hydrate(doc), nil
}

// Count executes the query's filter and returns the match count.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if err := q.coll.requireStore(); err != nil {
		return 0, err
	}
	sq, _, err := q.storageQuery(ctx, false)
	if err != nil {
		return 0, err
	}
	n, err := q.coll.store.Count(ctx, sq)
	if err != nil {
		return 0, Wrap(ErrSQL, "count documents", err)
	}
	return n, nil
}

// Update applies the query's update operators to every match.
func (q *Query) Update(ctx context.Context) (int64, error) {
	return q.update(ctx, false)
}

// UpdateOne applies the query's update operators to the first match.
func (q *Query) UpdateOne(ctx context.Context) (int64, error) {
	return q.update(ctx, true)
}

func (q *Query) update(ctx context.Context, single bool) (int64, error) {
	if err := q.coll.requireStore(); err != nil {
		return 0, err
	}
	sq, update, err := q.storageQuery(ctx, true)
	if err != nil {
		return 0, err
	}
	if update.Empty() {
		return 0, SchemaError("update requires at least one update operator")
	}
	var n int64
	if single {
		n, err = q.coll.store.UpdateOne(ctx, sq, update)
	} else {
		n, err = q.coll.store.Update(ctx, sq, update)
	}
	if err != nil {
		return 0, Wrap(ErrSQL, "update documents", err)
	}
	return n, nil
}

// Remove deletes every matching document.
func (q *Query) Remove(ctx context.Context) (int64, error) {
	return q.remove(ctx, false)
}

// RemoveOne deletes the first matching document.
func (q *Query) RemoveOne(ctx context.Context) (int64, error) {
	return q.remove(ctx, true)
}

func (q *Query) remove(ctx context.Context, single bool) (int64, error) {
	if err := q.coll.requireStore(); err != nil {
		return 0, err
	}
	sq, _, err := q.storageQuery(ctx, false)
	if err != nil {
		return 0, err
	}
	var n int64
	if single {
		n, err = q.coll.store.RemoveOne(ctx, sq)
	} else {
		n, err = q.coll.store.Remove(ctx, sq)
	}
	if err != nil {
		return 0, Wrap(ErrSQL, "remove documents", err)
	}
	return n, nil
}
