package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
)

var (
	updateWhere []string
	updateSet   []string
	updateUnset []string
	updateInc   []string
	updateOne   bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update documents matching the conditions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coll, closeStore, err := openCollection(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		q := coll.Query()
		if err := cli.ApplyWhere(q, updateWhere); err != nil {
			return err
		}
		for _, kv := range updateSet {
			field, val, err := splitAssignment(kv)
			if err != nil {
				return fmt.Errorf("--set %q: %w", kv, err)
			}
			q.Set(field, val)
		}
		for _, field := range updateUnset {
			q.Unset(field)
		}
		for _, kv := range updateInc {
			field, val, err := splitAssignment(kv)
			if err != nil {
				return fmt.Errorf("--inc %q: %w", kv, err)
			}
			delta, ok := val.(float64)
			if !ok {
				return fmt.Errorf("--inc %q: delta must be numeric", kv)
			}
			q.Inc(field, delta)
		}

		var n int64
		if updateOne {
			n, err = q.UpdateOne(ctx)
		} else {
			n, err = q.Update(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

// splitAssignment parses "field=value", typing value like a where operand.
func splitAssignment(kv string) (string, any, error) {
	i := strings.Index(kv, "=")
	if i <= 0 {
		return "", nil, fmt.Errorf("expected field=value")
	}
	field := strings.TrimSpace(kv[:i])
	raw := strings.TrimSpace(kv[i+1:])
	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2 {
		return field, raw[1 : len(raw)-1], nil
	}
	switch raw {
	case "true":
		return field, true, nil
	case "false":
		return field, false, nil
	case "null":
		return field, nil, nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return field, n, nil
	}
	return field, raw, nil
}

func init() {
	updateCmd.Flags().StringArrayVarP(&updateWhere, "where", "w", nil, "Condition, repeatable")
	updateCmd.Flags().StringArrayVar(&updateSet, "set", nil, "Assignment field=value, repeatable")
	updateCmd.Flags().StringArrayVar(&updateUnset, "unset", nil, "Field to remove, repeatable")
	updateCmd.Flags().StringArrayVar(&updateInc, "inc", nil, "Increment field=delta, repeatable")
	updateCmd.Flags().BoolVar(&updateOne, "one", false, "Update only the first match")
	rootCmd.AddCommand(updateCmd)
}
