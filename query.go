package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/callrank/internal/store"
)

// queryCmd reads a snapshot written by `callrank export`.
func queryCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a snapshot written by export",
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "callrank.db", "database file path")

	cmd.AddCommand(queryTopCmd(&dbPath))
	cmd.AddCommand(queryNodeCmd(&dbPath))
	cmd.AddCommand(queryEdgesCmd(&dbPath, "callers", "List the functions that call <function>", (*store.DB).Callers))
	cmd.AddCommand(queryEdgesCmd(&dbPath, "callees", "List the functions <function> calls", (*store.DB).Callees))
	cmd.AddCommand(queryClearCmd(&dbPath))
	return cmd
}

// openSnapshot opens an existing database. store.Open would create a new
// empty one, which only hides a wrong --db.
func openSnapshot(path string) (*store.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no snapshot at %s (run `callrank export` first): %w", path, err)
	}
	return store.Open(path)
}

func queryTopCmd(dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List functions in rank order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSnapshot(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			nodes, err := db.TopNodes(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printNodes(cmd.OutOrStdout(), nodes)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of functions to show (0 = all)")
	return cmd
}

func queryNodeCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "node <function>",
		Short: "Show one function's scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSnapshot(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.GetNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printNodes(cmd.OutOrStdout(), []*store.Node{n})
			return nil
		},
	}
}

func queryEdgesCmd(dbPath *string, use, short string, list func(*store.DB, context.Context, string) ([]*store.Node, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <function>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSnapshot(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			// Distinguish an unknown function from one with no edges.
			if _, err := db.GetNode(ctx, args[0]); err != nil {
				return err
			}
			nodes, err := list(db, ctx, args[0])
			if err != nil {
				return err
			}
			printNodes(cmd.OutOrStdout(), nodes)
			return nil
		},
	}
}

func queryClearCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every function and call from the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSnapshot(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing %s: %w", *dbPath, err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "cleared %s\n", *dbPath)
			return nil
		},
	}
}

func printNodes(w io.Writer, nodes []*store.Node) {
	if len(nodes) == 0 {
		_, _ = fmt.Fprintln(w, "(none)")
		return
	}
	width := len("name")
	for _, n := range nodes {
		width = max(width, len(n.Name))
	}
	_, _ = fmt.Fprintf(w, "%-*s  %8s  %10s  %10s\n", width, "name", "priority", "out_degree", "complexity")
	for _, n := range nodes {
		_, _ = fmt.Fprintf(w, "%-*s  %8d  %10d  %10d\n", width, n.Name, n.Priority, n.OutDegree, n.Complexity)
	}
}
