// Package minodm is the stable entry point for embedding the document
// mapper: backend selection plus re-exports of the core types, so most
// programs need a single import.
package minodm

import (
	"context"

	core "github.com/minodm/minodm/minodm"
	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/storage/jsonfile"
	"github.com/minodm/minodm/minodm/storage/postgres"
	"github.com/minodm/minodm/minodm/storage/sqlite"
)

type OpenOptions struct {
	Backend      string // sqlite|postgres|jsonfile
	Path         string // sqlite or jsonfile path
	SQLiteDriver string // sqlite (default) or sqlite3
	PostgresDSN  string
	PGSchema     string
}

// Open selects a backend implementation.
func Open(ctx context.Context, opts OpenOptions) (storage.Store, error) {
	switch opts.Backend {
	case "sqlite", "":
		driver := opts.SQLiteDriver
		if driver == "" {
			driver = "sqlite"
		}
		return sqlite.OpenWithDriver(ctx, opts.Path, driver)
	case "postgres":
		return postgres.Open(ctx, opts.PostgresDSN, opts.PGSchema)
	case "jsonfile":
		return jsonfile.Open(opts.Path)
	default:
		return nil, core.New(core.ErrIO, "unknown backend")
	}
}

// OpenCollection opens a backend and binds a schema-backed collection to it.
// Closing the collection's store is the caller's responsibility via the
// returned store handle.
func OpenCollection(ctx context.Context, name string, schema *Schema, opts OpenOptions) (*Collection, storage.Store, error) {
	store, err := Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	coll, err := core.NewCollection(name, schema, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return coll, store, nil
}
