package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lookup/internal/conformance"
	"github.com/mesh-intelligence/lookup/pkg/sqlite"
	"github.com/mesh-intelligence/lookup/pkg/types"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the lookup conformance checks against a fresh in-memory store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sqlite.NewStore(sqlite.WithLogger(a.logger), sqlite.WithRegisterer(a.registry))
			if err := store.Attach(types.Config{Backend: types.BackendSQLite, DatabaseURL: "sqlite3::memory:"}); err != nil {
				return err
			}
			defer store.Detach()

			report, err := conformance.Run(store, a.stdout)
			if err != nil {
				return err
			}
			return checkResult(report)
		},
	}
}

// errChecksFailed reports conformance failures. It is a check outcome, not
// a system fault, so it exits as a user error.
var errChecksFailed = errors.New("conformance checks failed")

func checkResult(report conformance.Report) error {
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d", errChecksFailed, len(failed), len(report.Results))
	}
	return nil
}
