// Package extract finds function definitions and the calls made from their
// bodies.
package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/model"
)

// Extractor turns one source unit into its call graph contribution.
// Implementations must be deterministic and safe for concurrent use.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, unit model.SourceUnit) graph.Contribution
}

// Mode selects an Extractor implementation.
type Mode string

const (
	ModeText       Mode = "text"
	ModeTreeSitter Mode = "treesitter"
)

// Options configures New.
type Options struct {
	Mode         Mode
	Keyword      string
	QualifyNames bool
}

// New returns the extractor for opts.Mode. An empty mode selects ModeText.
func New(opts Options) (Extractor, error) {
	text := &Text{Keyword: opts.Keyword, QualifyNames: opts.QualifyNames}
	switch opts.Mode {
	case "", ModeText:
		return text, nil
	case ModeTreeSitter:
		return &TreeSitter{QualifyNames: opts.QualifyNames, Fallback: text}, nil
	}
	return nil, fmt.Errorf("unknown extractor mode %q", opts.Mode)
}

// contribution groups records by name into a graph contribution.
func contribution(path string, records []model.FunctionRecord, calls map[string]map[string]struct{}) graph.Contribution {
	c := graph.Contribution{
		Path:  path,
		Calls: make(map[string][]string, len(calls)),
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}
		c.Definitions = append(c.Definitions, r.Name)
	}
	sort.Strings(c.Definitions)

	for caller, set := range calls {
		callees := make([]string, 0, len(set))
		for callee := range set {
			callees = append(callees, callee)
		}
		sort.Strings(callees)
		c.Calls[caller] = callees
	}
	return c
}

func addCall(calls map[string]map[string]struct{}, caller, callee string) {
	set := calls[caller]
	if set == nil {
		set = make(map[string]struct{})
		calls[caller] = set
	}
	set[callee] = struct{}{}
}

func qualify(unit model.SourceUnit, name string, on bool) string {
	if !on {
		return name
	}
	return graph.Qualify(unit.Path, name)
}
