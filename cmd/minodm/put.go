package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <json> [<json>...]",
	Short: "Insert documents (each argument is one JSON object)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coll, closeStore, err := openCollection(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		docs := make([]map[string]any, 0, len(args))
		for i, arg := range args {
			var doc map[string]any
			if err := json.Unmarshal([]byte(arg), &doc); err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
			docs = append(docs, doc)
		}
		ids, err := coll.Insert(ctx, docs...)
		if err != nil {
			return err
		}
		slog.Info("documents inserted", "count", len(ids))
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
