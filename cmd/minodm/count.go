package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
)

var countWhere []string

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count documents matching the conditions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coll, closeStore, err := openCollection(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		q := coll.Query()
		if err := cli.ApplyWhere(q, countWhere); err != nil {
			return err
		}
		n, err := q.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	countCmd.Flags().StringArrayVarP(&countWhere, "where", "w", nil, "Condition, repeatable")
	rootCmd.AddCommand(countCmd)
}
