package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lookup/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var features []string
	cmd := &cobra.Command{
		Use:   "render <table> <template> <key>",
		Short: "Render a record through a text template",
		Long: `Render finds a record by key and executes a Go text/template with the
record's columns as fields and the --feature values as .features.

Example:
  lookup render products product.tmpl 1,TZ-1002 --feature "Karate-Chop Action!!!"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(args[0])
			if err != nil {
				return err
			}
			key, err := parseKey(tbl.Schema(), args[2])
			if err != nil {
				return err
			}
			res, err := tbl.Find(key)
			if err != nil {
				return err
			}
			return render.RenderFile(a.stdout, args[1], res.Record(), features)
		},
	}
	cmd.Flags().StringArrayVar(&features, "feature", nil, "feature line exposed as .features (repeatable)")
	return cmd
}
