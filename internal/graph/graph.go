// Package graph folds per-file extraction results into a function call graph.
package graph

import (
	"sort"
	"strings"
)

// QualifySep separates the defining path from the function name when names
// are qualified by file.
const QualifySep = "::"

// Contribution is what one source file adds to the call graph: the names it
// defines and, for each definition, the raw call candidates found in its body.
// Candidates are not yet filtered against the repository-wide name set.
type Contribution struct {
	Path        string
	Definitions []string
	Calls       map[string][]string
}

// Empty reports whether the contribution defines nothing.
func (c Contribution) Empty() bool {
	return len(c.Definitions) == 0
}

// Edge is a directed caller → callee pair.
type Edge struct {
	Caller string
	Callee string
}

// CallGraph is a directed graph keyed by function name. Edges have set
// semantics and never loop back to the caller. A CallGraph is immutable.
type CallGraph struct {
	nodes []string
	out   map[string][]string
}

// Accumulator is the running value of the fold over contributions. The zero
// value is ready to use. Adding contributions in any order yields the same
// accumulator.
type Accumulator struct {
	defs  map[string]struct{}
	calls map[string]map[string]struct{}
}

// Add folds c into the accumulator.
func (a *Accumulator) Add(c Contribution) {
	if a.defs == nil {
		a.defs = make(map[string]struct{})
		a.calls = make(map[string]map[string]struct{})
	}
	for _, d := range c.Definitions {
		a.defs[d] = struct{}{}
	}
	for caller, callees := range c.Calls {
		set := a.calls[caller]
		if set == nil {
			set = make(map[string]struct{}, len(callees))
			a.calls[caller] = set
		}
		for _, callee := range callees {
			set[callee] = struct{}{}
		}
	}
}

// Merge folds another accumulator into a. Merge is associative and
// commutative, so per-worker accumulators can be combined in any order.
func (a *Accumulator) Merge(b *Accumulator) {
	if b == nil {
		return
	}
	a.Add(b.contribution())
}

func (a *Accumulator) contribution() Contribution {
	c := Contribution{
		Definitions: sortedKeys(a.defs),
		Calls:       make(map[string][]string, len(a.calls)),
	}
	for caller, set := range a.calls {
		c.Calls[caller] = sortedKeys(set)
	}
	return c
}

// Graph resolves accumulated call candidates against the set of known names.
// An edge (c, x) exists iff x is a defined name and x != c.
func (a *Accumulator) Graph() *CallGraph {
	g := &CallGraph{
		nodes: sortedKeys(a.defs),
		out:   make(map[string][]string),
	}

	// Qualified names ("path::name") resolve a bare candidate to every
	// definition carrying that bare name.
	byBare := make(map[string][]string)
	for _, n := range g.nodes {
		bare := Bare(n)
		if bare != n {
			byBare[bare] = append(byBare[bare], n)
		}
	}

	for caller, set := range a.calls {
		if _, ok := a.defs[caller]; !ok {
			continue
		}
		targets := make(map[string]struct{})
		for candidate := range set {
			if _, ok := a.defs[candidate]; ok {
				targets[candidate] = struct{}{}
			}
			for _, q := range byBare[candidate] {
				targets[q] = struct{}{}
			}
		}
		delete(targets, caller)
		if len(targets) > 0 {
			g.out[caller] = sortedKeys(targets)
		}
	}
	return g
}

// Build folds contributions into a single call graph.
func Build(contribs ...Contribution) *CallGraph {
	var acc Accumulator
	for _, c := range contribs {
		acc.Add(c)
	}
	return acc.Graph()
}

// Nodes returns all function names, sorted.
func (g *CallGraph) Nodes() []string {
	return g.nodes
}

// Len returns the number of nodes.
func (g *CallGraph) Len() int {
	return len(g.nodes)
}

// Has reports whether name is a node.
func (g *CallGraph) Has(name string) bool {
	i := sort.SearchStrings(g.nodes, name)
	return i < len(g.nodes) && g.nodes[i] == name
}

// Callees returns the distinct callees of name, sorted.
func (g *CallGraph) Callees(name string) []string {
	return g.out[name]
}

// OutDegree returns the number of distinct callees of name.
func (g *CallGraph) OutDegree(name string) int {
	return len(g.out[name])
}

// Edges returns every edge sorted by caller then callee.
func (g *CallGraph) Edges() []Edge {
	var edges []Edge
	for _, caller := range g.nodes {
		for _, callee := range g.out[caller] {
			edges = append(edges, Edge{Caller: caller, Callee: callee})
		}
	}
	return edges
}

// Qualify returns the file-qualified form of name.
func Qualify(path, name string) string {
	return path + QualifySep + name
}

// Bare strips a file qualifier from name, if present.
func Bare(name string) string {
	if i := strings.LastIndex(name, QualifySep); i >= 0 {
		return name[i+len(QualifySep):]
	}
	return name
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
