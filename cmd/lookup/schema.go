package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Define and inspect tables",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "apply <file>",
			Short: "Define the tables in a YAML schema file, replacing existing ones",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := a.attachBackend()
				if err != nil {
					return err
				}
				defer backend.Detach()

				schemas, err := applySchemaFile(backend, args[0], true)
				if err != nil {
					return err
				}
				for _, s := range schemas {
					fmt.Fprintf(a.stdout, "defined %s\n", s.Table)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show [table...]",
			Short: "Print table definitions as YAML",
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := a.attachBackend()
				if err != nil {
					return err
				}
				defer backend.Detach()

				names := args
				if len(names) == 0 {
					names = backend.TableNames()
				}
				var doc struct {
					Tables []types.Schema `yaml:"tables"`
				}
				for _, name := range names {
					s, err := backend.Schema(name)
					if err != nil {
						return err
					}
					doc.Tables = append(doc.Tables, s)
				}
				out, err := yaml.Marshal(doc)
				if err != nil {
					return fmt.Errorf("marshal schema: %w", err)
				}
				_, err = a.stdout.Write(out)
				return err
			},
		},
	)
	return cmd
}
