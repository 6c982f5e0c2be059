// Package pipeline runs the stages that turn a source tree into a weight
// assignment: scan, extract, build the call graph, score, prioritize,
// distribute and, optionally, transmit.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/callrank/internal/cache"
	"github.com/phobologic/callrank/internal/complexity"
	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/discover"
	"github.com/phobologic/callrank/internal/extract"
	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/model"
	"github.com/phobologic/callrank/internal/priority"
	"github.com/phobologic/callrank/internal/ranking"
	"github.com/phobologic/callrank/internal/transmit"
)

// Config describes one run.
type Config struct {
	Root      string
	Scan      discover.Options
	Extractor extract.Extractor  // defaults to extract.Text
	Scorer    complexity.Scorer  // defaults to complexity.None
	Deliverer transmit.Deliverer // nil skips transmission
	Workers   int                // defaults to GOMAXPROCS
	Cache     *cache.Cache       // optional
}

// Result is everything a run produced.
type Result struct {
	Root       string
	Units      int
	Graph      *graph.CallGraph
	Complexity model.ComplexityMap
	Priorities model.PriorityMap
	Ranking    []ranking.Entry
	Weights    model.WeightAssignment

	// Warnings lists files the scanner skipped or decoded lossily. Any
	// warning marks the result Partial.
	Warnings          []DecodeWarning
	Partial           bool
	ScorerUnavailable *ScorerUnavailable
	Delivered         bool
}

// worker holds one goroutine's share of the fold.
type worker struct {
	acc      graph.Accumulator
	scores   complexity.Collector
	units    int
	cached   int
	failures int
	lastErr  error
}

// Run executes the pipeline. Acquisition and scan failures return a nil
// Result. A transmission failure returns the computed Result with Delivered
// false alongside the error. The assignment is complete before anything is
// sent.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	ex := cfg.Extractor
	if ex == nil {
		ex = &extract.Text{}
	}
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = complexity.None{}
	}
	numWorkers := cfg.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	scanner, err := discover.New(cfg.Root, cfg.Scan)
	if err != nil {
		return nil, err
	}

	logger.Debug("starting scan", "root", cfg.Root, "extractor", ex.Name(), "scorer", scorer.Name(), "workers", numWorkers)

	g, gctx := errgroup.WithContext(ctx)
	units := make(chan model.SourceUnit)

	g.Go(func() error {
		defer close(units)
		for u := range scanner.Units(gctx) {
			select {
			case units <- u:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return scanner.Err()
	})

	workers := make([]*worker, numWorkers)
	for i := range workers {
		w := &worker{}
		workers[i] = w
		g.Go(func() error {
			w.run(gctx, units, ex, scorer, cfg.Cache, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &ScanError{Root: cfg.Root, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ScanError{Root: cfg.Root, Err: err}
	}

	var (
		acc    graph.Accumulator
		scores complexity.Collector
		total  worker
	)
	for _, w := range workers {
		acc.Merge(&w.acc)
		scores.Merge(&w.scores)
		total.units += w.units
		total.cached += w.cached
		total.failures += w.failures
		if w.lastErr != nil {
			total.lastErr = w.lastErr
		}
	}

	res := &Result{
		Root:     scanner.Root(),
		Units:    total.units,
		Graph:    acc.Graph(),
		Warnings: scanner.Warnings(),
	}
	res.Partial = len(res.Warnings) > 0

	if scores.Empty() && res.Graph.Len() > 0 {
		if _, none := scorer.(complexity.None); !none {
			res.ScorerUnavailable = &ScorerUnavailable{
				Scorer:   scorer.Name(),
				Failures: total.failures,
				Err:      total.lastErr,
			}
			logger.Warn("no complexity data, using defaults", "scorer", scorer.Name(), "err", res.ScorerUnavailable)
		}
	}

	res.Complexity = scores.Map()
	res.Priorities = priority.Compute(res.Graph, res.Complexity)
	res.Ranking = ranking.Order(res.Priorities)
	res.Weights = ranking.Weights(res.Ranking)

	logger.Info("analysis complete",
		"units", res.Units,
		"cached", total.cached,
		"functions", res.Graph.Len(),
		"edges", len(res.Graph.Edges()),
		"warnings", len(res.Warnings),
	)

	if cfg.Deliverer == nil {
		return res, nil
	}
	if err := transmit.Send(ctx, cfg.Deliverer, res.Weights); err != nil {
		return res, fmt.Errorf("delivering weights: %w", err)
	}
	res.Delivered = true
	return res, nil
}

func (w *worker) run(ctx context.Context, units <-chan model.SourceUnit, ex extract.Extractor, scorer complexity.Scorer, c *cache.Cache, id int) {
	logger := ctxlog.FromContext(ctx).With("worker", id)

	for u := range units {
		if ctx.Err() != nil {
			continue
		}
		w.units++

		if e, ok := c.Get(u); ok {
			w.cached++
			w.acc.Add(e.Contribution)
			w.scores.Add(e.Scores)
			continue
		}

		contrib := ex.Extract(ctx, u)
		if contrib.Empty() {
			logger.Debug("no functions found", "path", u.Path)
		}
		w.acc.Add(contrib)

		scores, err := scorer.Score(ctx, u)
		if err != nil {
			w.failures++
			w.lastErr = err
			logger.Warn("complexity scoring failed", "path", u.Path, "err", err)
			continue
		}
		w.scores.Add(scores)
		c.Put(u, cache.Entry{Contribution: contrib, Scores: scores})
	}
}
