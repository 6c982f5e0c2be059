package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/callrank/internal/cache"
	"github.com/phobologic/callrank/internal/config"
	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/discover"
	"github.com/phobologic/callrank/internal/pipeline"
	"github.com/phobologic/callrank/internal/ranking"
	"github.com/phobologic/callrank/internal/store"
	"github.com/phobologic/callrank/internal/toon"
	"github.com/phobologic/callrank/internal/transmit"
	"github.com/phobologic/callrank/internal/watch"
)

// pipelineConfig builds the pipeline configuration for dir.
func pipelineConfig(cfg config.Config, dir string) (pipeline.Config, error) {
	ex, err := cfg.Extractor()
	if err != nil {
		return pipeline.Config{}, err
	}
	scorer, err := cfg.Scorer()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Root:      dir,
		Scan:      cfg.ScanOptions(),
		Extractor: ex,
		Scorer:    scorer,
		Workers:   cfg.Workers,
	}, nil
}

func runCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [dir]",
		Short: "Analyze a source tree and send the weights to the scheduler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dirArg(args)
			ctx, cfg, err := setup(cmd, opts, dir)
			if err != nil {
				return err
			}
			pc, err := pipelineConfig(cfg, dir)
			if err != nil {
				return err
			}
			pc.Deliverer = cfg.Deliverer()

			res, err := pipeline.Run(ctx, pc)
			if err != nil {
				return classify(err)
			}
			if res.Partial {
				ctxlog.FromContext(ctx).Warn("run was partial", "skipped_or_replaced", len(res.Warnings))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sent %d weights to %s\n", len(res.Weights), cfg.Addr())
			return nil
		},
	}
}

func rankCmd(opts *globalOptions) *cobra.Command {
	var (
		top   int
		match string
	)

	cmd := &cobra.Command{
		Use:   "rank [dir]",
		Short: "Print the ranking as a TOON table without sending it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dirArg(args)
			ctx, cfg, err := setup(cmd, opts, dir)
			if err != nil {
				return err
			}
			pc, err := pipelineConfig(cfg, dir)
			if err != nil {
				return err
			}

			res, err := pipeline.Run(ctx, pc)
			if err != nil {
				return classify(err)
			}

			entries := ranking.Top(ranking.Filter(res.Ranking, match), top)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), toon.Encode(report(dir, res, entries)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 0, "show only the top N functions")
	cmd.Flags().StringVarP(&match, "match", "m", "", "show only functions whose name contains this text")
	return cmd
}

// report builds the TOON view of entries. Calls are limited to edges that
// touch a shown function.
func report(dir string, res *pipeline.Result, entries []ranking.Entry) *toon.Report {
	r := &toon.Report{Root: dir, Partial: res.Partial}

	shown := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		shown[e.Name] = struct{}{}
		r.Functions = append(r.Functions, toon.Function{
			Name:       e.Name,
			Priority:   e.Priority,
			OutDegree:  res.Graph.OutDegree(e.Name),
			Complexity: e.Priority - res.Graph.OutDegree(e.Name),
			Weight:     e.Weight,
		})
	}
	for _, edge := range res.Graph.Edges() {
		_, callerOK := shown[edge.Caller]
		_, calleeOK := shown[edge.Callee]
		if callerOK || calleeOK {
			r.Calls = append(r.Calls, toon.Call{Caller: edge.Caller, Callee: edge.Callee})
		}
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, toon.Warning{Path: w.Path, Reason: w.Reason})
	}
	return r
}

func exportCmd(opts *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the call graph and priorities to a SQLite database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dirArg(args)
			ctx, cfg, err := setup(cmd, opts, dir)
			if err != nil {
				return err
			}
			pc, err := pipelineConfig(cfg, dir)
			if err != nil {
				return err
			}

			res, err := pipeline.Run(ctx, pc)
			if err != nil {
				return classify(err)
			}

			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Save(ctx, res.Graph, res.Complexity, res.Priorities); err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
			nodes, edges, err := db.Stats(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d functions and %d calls to %s\n", nodes, edges, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dbPath, "db", "d", "callrank.db", "database file path")
	return cmd
}

func watchCmd(opts *globalOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-run and re-send whenever source files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dirArg(args)
			ctx, cfg, err := setup(cmd, opts, dir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				cfg.Watch.Debounce = debounce
			}
			logger := ctxlog.FromContext(ctx)

			pc, err := pipelineConfig(cfg, dir)
			if err != nil {
				return err
			}
			pc.Deliverer = cfg.Deliverer()
			pc.Cache, err = cache.New(cfg.Watch.CacheSize, pc.Extractor.Name()+"/"+pc.Scorer.Name())
			if err != nil {
				return err
			}

			// The scanner validates dir and supplies the file filter.
			scanner, err := discover.New(dir, pc.Scan)
			if err != nil {
				return classify(err)
			}

			once := func(ctx context.Context) {
				res, err := pipeline.Run(ctx, pc)
				if err != nil {
					logger.Error("run failed", "kind", pipeline.KindOf(err).String(), "err", err)
					return
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] sent %d weights\n", time.Now().Format("15:04:05"), len(res.Weights))
			}
			once(ctx)

			w, err := watch.New(dir,
				func(ctx context.Context, changed []string) {
					logger.Info("change detected", "files", len(changed))
					once(ctx)
				},
				watch.WithDebounceDelay(cfg.Watch.Debounce),
				watch.WithFilter(scanner.Accepts),
				watch.WithOnError(func(err error) {
					logger.Error("watcher error", "err", err)
				}),
			)
			if err != nil {
				return err
			}
			logger.Info("watching for changes", "dir", dir, "debounce", cfg.Watch.Debounce)
			return w.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "wait this long for changes to settle")
	return cmd
}

func listenCmd(opts *globalOptions) *cobra.Command {
	var (
		addr  string
		count int
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive weight assignments and print them (development scheduler)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd, opts, ".")
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr()
			}

			var lc net.ListenConfig
			ln, err := lc.Listen(ctx, "tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
			defer ln.Close()

			return listen(ctx, ln, count, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default: scheduler host and port)")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many messages (0 runs until interrupted)")
	return cmd
}

// listen prints each received assignment as one JSON line. Only valid
// messages count toward count.
func listen(ctx context.Context, ln net.Listener, count int, out io.Writer) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("listening", "addr", ln.Addr().String())

	for n := 0; count <= 0 || n < count; {
		wa, err := transmit.Receive(ctx, ln)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logger.Warn("bad message", "err", err)
			continue
		}
		payload, err := transmit.Encode(wa)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(payload))
		n++
	}
	return nil
}
