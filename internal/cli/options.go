// Package cli holds the pieces of the minodm command shared across
// subcommands: global options, store resolution, where-flag parsing, output
// helpers and the bulk importer.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/storage/jsonfile"
	"github.com/minodm/minodm/minodm/storage/postgres"
	"github.com/minodm/minodm/minodm/storage/sqlite"
)

// GlobalOptions are bound once on the root command and shared by all
// subcommands.
type GlobalOptions struct {
	Backend      string // sqlite|postgres|jsonfile
	Path         string // sqlite file or jsonfile path
	SQLiteDriver string // sqlite|sqlite3
	PostgresDSN  string
	PGSchema     string
	SchemaFile   string
	LogLevel     string
}

// DefaultGlobalOptions returns the defaults used before flag parsing.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Backend:      "sqlite",
		SQLiteDriver: "sqlite",
		LogLevel:     "warn",
	}
}

// OpenStore resolves the backend flag to a concrete store.
func OpenStore(ctx context.Context, g GlobalOptions) (storage.Store, error) {
	switch strings.ToLower(g.Backend) {
	case "sqlite", "":
		if g.Path == "" {
			return nil, fmt.Errorf("--db is required for the sqlite backend")
		}
		return sqlite.OpenWithDriver(ctx, g.Path, g.SQLiteDriver)
	case "postgres", "pg":
		if g.PostgresDSN == "" {
			return nil, fmt.Errorf("--pg-dsn is required for the postgres backend")
		}
		return postgres.Open(ctx, g.PostgresDSN, g.PGSchema)
	case "jsonfile", "json":
		if g.Path == "" {
			return nil, fmt.Errorf("--db is required for the jsonfile backend")
		}
		return jsonfile.Open(g.Path)
	default:
		return nil, fmt.Errorf("unknown backend %q (sqlite|postgres|jsonfile)", g.Backend)
	}
}
