package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
	"github.com/minodm/minodm/minodm"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

var (
	opts       = cli.DefaultGlobalOptions()
	collection string
)

var rootCmd = &cobra.Command{
	Use:   "minodm",
	Short: "minodm - schema-driven document store CLI",
	Long: `minodm manages schema-validated JSON documents across pluggable
backends (sqlite, postgres, jsonfile).

Every data command takes --schema pointing at a schema definition file and
--backend/--db (or --pg-dsn) selecting the store.

Examples:
  minodm --schema user.yaml --db users.db put '{"firstName":"Ann","role":"admin"}'
  minodm --schema user.yaml --db users.db find --where 'role=admin' --limit 10
  minodm --schema user.yaml --db users.db update --where 'age>=18' --set 'adult=true'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(opts.LogLevel)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.Backend, "backend", "b", opts.Backend, "Backend: sqlite|postgres|jsonfile")
	pf.StringVarP(&opts.Path, "db", "d", "", "Database path (sqlite file or jsonfile path)")
	pf.StringVar(&opts.SQLiteDriver, "driver", opts.SQLiteDriver, "SQLite driver: sqlite|sqlite3")
	pf.StringVar(&opts.PostgresDSN, "pg-dsn", "", "Postgres connection string")
	pf.StringVar(&opts.PGSchema, "pg-schema", "", "Postgres schema (default minodm)")
	pf.StringVarP(&opts.SchemaFile, "schema", "s", "", "Schema definition file (.json or .yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVarP(&collection, "collection", "c", "documents", "Collection name")
}

// openCollection resolves the schema and store flags into a ready collection.
// The returned closer shuts down the store.
func openCollection(ctx context.Context) (*minodm.Collection, func(), error) {
	schema, err := cli.LoadSchema(opts.SchemaFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := cli.OpenStore(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	coll, err := minodm.NewCollection(collection, schema, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return coll, func() { store.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
