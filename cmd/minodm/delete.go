package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
)

var (
	deleteWhere []string
	deleteOne   bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete documents matching the conditions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coll, closeStore, err := openCollection(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		if len(deleteWhere) == 0 {
			return fmt.Errorf("refusing to delete without --where (use --where '_id exists' to wipe)")
		}
		q := coll.Query()
		if err := cli.ApplyWhere(q, deleteWhere); err != nil {
			return err
		}
		var n int64
		if deleteOne {
			n, err = q.RemoveOne(ctx)
		} else {
			n, err = q.Remove(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringArrayVarP(&deleteWhere, "where", "w", nil, "Condition, repeatable")
	deleteCmd.Flags().BoolVar(&deleteOne, "one", false, "Delete only the first match")
	rootCmd.AddCommand(deleteCmd)
}
