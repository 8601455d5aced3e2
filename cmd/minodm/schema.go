package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minodm/minodm/internal/cli"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and validate schema definition files",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the schema file and report whether it is well formed",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cli.LoadSchema(opts.SchemaFile)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d fields\n", s.Len())
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the schema back as canonical JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cli.LoadSchema(opts.SchemaFile)
		if err != nil {
			return err
		}
		out, err := s.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaValidateCmd, schemaShowCmd)
	rootCmd.AddCommand(schemaCmd)
}
