package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
)

var (
	findWhere    []string
	findLimit    int
	findSkip     int
	findSort     string
	findSortDesc bool
	findOne      bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Query documents, one JSON object per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coll, closeStore, err := openCollection(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		q := coll.Query()
		if err := cli.ApplyWhere(q, findWhere); err != nil {
			return err
		}
		if findSort != "" {
			q.Sort(findSort, findSortDesc)
		}
		if findOne {
			m, err := q.One(ctx)
			if err != nil {
				return err
			}
			cli.PrintJSON(os.Stdout, m.Document())
			return nil
		}
		q.Limit(findLimit).Skip(findSkip)
		models, err := q.All(ctx)
		if err != nil {
			return err
		}
		docs := make([]map[string]any, 0, len(models))
		for _, m := range models {
			docs = append(docs, m.Document())
		}
		cli.PrintDocs(os.Stdout, docs)
		return nil
	},
}

func init() {
	findCmd.Flags().StringArrayVarP(&findWhere, "where", "w", nil, "Condition, repeatable (e.g. 'role=admin', 'age>=18', 'name~^A')")
	findCmd.Flags().IntVar(&findLimit, "limit", 0, "Max documents (0 = all)")
	findCmd.Flags().IntVar(&findSkip, "skip", 0, "Documents to skip")
	findCmd.Flags().StringVar(&findSort, "sort", "", "Field to sort by")
	findCmd.Flags().BoolVar(&findSortDesc, "desc", false, "Sort descending")
	findCmd.Flags().BoolVar(&findOne, "one", false, "Return only the first match")
	rootCmd.AddCommand(findCmd)
}
