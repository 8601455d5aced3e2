package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
)

var (
	importWorkers int
	importBatch   int
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Bulk import JSON-lines documents (stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coll, closeStore, err := openCollection(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		res, err := cli.ImportJSONLines(ctx, coll, in, os.Stderr, importWorkers, importBatch)
		if res != nil {
			slog.Info("import finished",
				"read", res.Read, "inserted", res.Inserted, "failed", res.Failed)
			fmt.Printf("read=%d inserted=%d failed=%d\n", res.Read, res.Inserted, res.Failed)
		}
		return err
	},
}

func init() {
	importCmd.Flags().IntVar(&importWorkers, "workers", 4, "Normalization workers")
	importCmd.Flags().IntVar(&importBatch, "batch", 100, "Documents per insert batch")
	rootCmd.AddCommand(importCmd)
}
