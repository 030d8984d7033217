package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newLoadCmd(a *app) *cobra.Command {
	var seedDir string
	cmd := &cobra.Command{
		Use:   "load [<table> <file.jsonl>]",
		Short: "Insert JSONL records into a table",
		Long: `Load inserts every line of a JSONL file as a record of table, in one
transaction. With --seed, every empty table is loaded from <table>.jsonl in
the given directory instead.

Example:
  lookup load articles articles.jsonl
  lookup load --seed fixtures/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case seedDir != "" && len(args) == 0:
			case seedDir == "" && len(args) == 2:
			default:
				return usageError{fmt.Errorf("load takes <table> <file> or --seed <dir>")}
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if seedDir != "" {
				loaded, err := backend.Seed(seedDir)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(loaded))
				for name := range loaded {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(a.stdout, "loaded %d records into %s\n", loaded[name], name)
				}
				return nil
			}

			n, err := backend.LoadJSONL(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "loaded %d records into %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&seedDir, "seed", "", "seed empty tables from <table>.jsonl files in this directory")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <table> <file.jsonl>",
		Short: "Write every record of a table to a JSONL file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			n, err := backend.DumpJSONL(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "dumped %d records from %s\n", n, args[0])
			return nil
		},
	}
}
