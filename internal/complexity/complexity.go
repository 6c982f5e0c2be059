// Package complexity scores functions by complexity. Scores feed the
// priority calculation; missing scores default to model.DefaultComplexity.
package complexity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/phobologic/callrank/internal/model"
)

// Scorer returns complexity scores for the functions in one source unit.
// An error means the scorer produced nothing for that unit.
type Scorer interface {
	Name() string
	Score(ctx context.Context, unit model.SourceUnit) (map[string]int, error)
}

// Kind selects a Scorer implementation.
type Kind string

const (
	KindNone       Kind = "none"
	KindFile       Kind = "file"
	KindTreeSitter Kind = "treesitter"
)

// Options configures New.
type Options struct {
	Kind         Kind
	File         string
	QualifyNames bool
}

// New returns the scorer for opts.Kind. An empty kind selects KindTreeSitter.
func New(opts Options) (Scorer, error) {
	switch opts.Kind {
	case "", KindTreeSitter:
		return &TreeSitter{QualifyNames: opts.QualifyNames}, nil
	case KindNone:
		return None{}, nil
	case KindFile:
		if opts.File == "" {
			return nil, fmt.Errorf("complexity scorer %q needs a file", opts.Kind)
		}
		return FromFile(opts.File)
	}
	return nil, fmt.Errorf("unknown complexity scorer %q", opts.Kind)
}

// None never reports scores, so every function gets the default.
type None struct{}

func (None) Name() string { return string(KindNone) }

func (None) Score(context.Context, model.SourceUnit) (map[string]int, error) {
	return nil, nil
}

// Static reports the same fixed scores for every unit.
type Static map[string]int

func (Static) Name() string { return "static" }

func (s Static) Score(context.Context, model.SourceUnit) (map[string]int, error) {
	return s, nil
}

// FromFile loads a JSON object of function name to score written by an
// external tool.
func FromFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading complexity file: %w", err)
	}
	var scores map[string]int
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("parsing complexity file %s: %w", path, err)
	}
	return Static(scores), nil
}

// Collector folds per-unit scores into one ComplexityMap. Negative scores are
// dropped, zero is raised to model.DefaultComplexity, and the highest score
// wins when a name is scored more than once. The zero value is ready to use.
type Collector struct {
	scores model.ComplexityMap
}

// Add folds scores into the collector.
func (c *Collector) Add(scores map[string]int) {
	for name, v := range scores {
		if v < 0 || name == "" {
			continue
		}
		if v < model.DefaultComplexity {
			v = model.DefaultComplexity
		}
		if c.scores == nil {
			c.scores = make(model.ComplexityMap)
		}
		if cur, ok := c.scores[name]; !ok || v > cur {
			c.scores[name] = v
		}
	}
}

// Merge folds another collector into c.
func (c *Collector) Merge(other *Collector) {
	if other != nil {
		c.Add(other.scores)
	}
}

// Empty reports whether no usable score was collected.
func (c *Collector) Empty() bool {
	return len(c.scores) == 0
}

// Map returns the collected scores. The result is never nil.
func (c *Collector) Map() model.ComplexityMap {
	out := make(model.ComplexityMap, len(c.scores))
	for k, v := range c.scores {
		out[k] = v
	}
	return out
}

// Collect folds any number of score maps into a ComplexityMap with the same
// rules as Collector.
func Collect(scores ...map[string]int) model.ComplexityMap {
	var c Collector
	for _, s := range scores {
		c.Add(s)
	}
	return c.Map()
}
