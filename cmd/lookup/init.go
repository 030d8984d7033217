package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize lookup storage",
		Long: `Initialize creates the configuration directory with a default config.yaml
and opens the store, creating the data directory. With --schema and
--fixtures it also defines tables and seeds them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			fmt.Fprintln(a.stdout, "lookup initialized successfully")
			fmt.Fprintln(a.stdout, "  config:", a.cfg.ConfigFileUsed())
			if dataDir, err := a.resolveDataDir(); err == nil {
				fmt.Fprintln(a.stdout, "  data:  ", dataDir)
			}
			for _, name := range backend.TableNames() {
				fmt.Fprintln(a.stdout, "  table: ", name)
			}
			return nil
		},
	}
}
