// callrank ranks the functions of a source tree by call graph out-degree and
// complexity, and hands the resulting weights to an external scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/callrank/internal/config"
	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/pipeline"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	host       string
	port       int
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "callrank",
		Short: "Rank functions by call graph structure and complexity",
		Long: `callrank scans a source tree, builds a function-level call graph, scores
each function by out-degree plus complexity and turns the ranking into
scheduler weights between 1 and 100.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default: <dir>/"+config.DefaultFile+" when present)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading CALLRANK_* variables")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&opts.host, "host", "", "scheduler host")
	pf.IntVar(&opts.port, "port", 0, "scheduler port")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(rankCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))
	rootCmd.AddCommand(listenCmd(opts))
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(initCmd())

	return rootCmd
}

// setup resolves the configuration for dir and returns a context carrying
// the configured logger.
func setup(cmd *cobra.Command, opts *globalOptions, dir string) (context.Context, config.Config, error) {
	cfg := config.Default()

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, cfg, err
	}

	path := opts.configPath
	if path == "" {
		candidate := filepath.Join(dir, config.DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := config.LoadFile(cmd.Context(), path, &cfg); err != nil {
			return nil, cfg, err
		}
	}

	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("host") {
		cfg.Scheduler.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Scheduler.Port = opts.port
	}

	if err := cfg.Validate(); err != nil {
		return nil, cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := ctxlog.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("loaded config file", "path", path)
	}
	return ctxlog.WithLogger(cmd.Context(), logger), cfg, nil
}

// dirArg returns the directory argument, defaulting to the current directory.
func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// classify prefixes err with the pipeline stage it came from.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	kind := pipeline.KindOf(err)
	if kind == pipeline.KindUnknown {
		return err
	}
	return fmt.Errorf("%s: %w", kind, err)
}
