// Package storage defines the backend connector contract: a Store accepts
// translated filter/update documents and executes them against a concrete
// document backend. Stores interpret no schema semantics; validation and
// normalization happen before a document reaches a Store.
package storage

import (
	"context"
	"errors"
	"time"
)

// IDKey is the reserved document-identity key.
const IDKey = "_id"

// ErrNoDocument is returned by FindOne when nothing matches.
var ErrNoDocument = errors.New("no document matched")

// Op is a filter or update operator as seen by a backend.
type Op string

const (
	OpEqual    Op = "EQUAL"
	OpNotEqual Op = "NOT_EQUAL"
	OpIsIn     Op = "IS_IN"
	OpNotIn    Op = "NOT_IN"
	OpGt       Op = "GT"
	OpGte      Op = "GTE"
	OpLt       Op = "LT"
	OpLte      Op = "LTE"
	OpExists   Op = "EXISTS"
	OpMatches  Op = "MATCHES"
)

// Cond is one filter condition. Conditions combine with AND, in order, with
// duplicates preserved.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter is an ordered conjunction of conditions. An empty filter matches
// every document.
type Filter struct {
	Conds []Cond
}

// Sort orders results by one field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is a filter plus result shaping options.
type Query struct {
	Filter Filter
	Limit  int // 0 means no limit
	Skip   int
	Sort   *Sort
}

// ByID returns a query matching a single document id.
func ByID(id any) Query {
	return Query{Filter: Filter{Conds: []Cond{{Field: IDKey, Op: OpEqual, Value: id}}}}
}

// Update carries the changes of an update operation. Repeated SETs on one
// field collapse to the last value during translation.
type Update struct {
	Set   map[string]any
	Unset []string
	Inc   map[string]float64
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0 && len(u.Inc) == 0
}

// Store is a document backend. Documents are plain maps; the store owns the
// IDKey entry, assigning one when a created document lacks it.
type Store interface {
	Create(ctx context.Context, docs []map[string]any) (ids []string, err error)
	Find(ctx context.Context, q Query) ([]map[string]any, error)
	FindOne(ctx context.Context, q Query) (map[string]any, error)
	Count(ctx context.Context, q Query) (int64, error)
	Update(ctx context.Context, q Query, u Update) (matched int64, err error)
	UpdateOne(ctx context.Context, q Query, u Update) (matched int64, err error)
	Remove(ctx context.Context, q Query) (removed int64, err error)
	RemoveOne(ctx context.Context, q Query) (removed int64, err error)
	Close() error
}

// NowMS returns current time in milliseconds since epoch.
func NowMS() int64 {
	return time.Now().UnixMilli()
}
