// Package priority combines call graph structure with complexity scores.
package priority

import (
	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/model"
)

// Compute returns outDegree + complexity for every node in g. Complexity is
// looked up by the node name first and then by its bare name, so scores
// keyed by plain function names still apply to qualified nodes. Nodes with
// no score, or a score below model.DefaultComplexity, use the default, so
// every priority is at least 1.
func Compute(g *graph.CallGraph, cm model.ComplexityMap) model.PriorityMap {
	pm := make(model.PriorityMap, g.Len())
	for _, name := range g.Nodes() {
		pm[name] = g.OutDegree(name) + lookup(cm, name)
	}
	return pm
}

func lookup(cm model.ComplexityMap, name string) int {
	v, ok := cm[name]
	if !ok {
		v = cm.Get(graph.Bare(name))
	}
	return max(v, model.DefaultComplexity)
}
