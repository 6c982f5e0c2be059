// Package model defines core data structures for callrank.
package model

// DefaultComplexity is the complexity assumed for a function the scorer
// reported nothing for.
const DefaultComplexity = 1

// SourceUnit is one scanned file. It is created once and never mutated.
type SourceUnit struct {
	Path      string // Relative to repo root
	Extension string
	Language  string
	Text      string
}

// FunctionRecord is a definition site found in a SourceUnit.
// Name is not qualified by file unless the extractor was asked to qualify it.
type FunctionRecord struct {
	Name string
	Path string
	Body string
}

// ComplexityMap maps function name to a non-negative complexity score.
type ComplexityMap map[string]int

// Get returns the complexity for name, or DefaultComplexity when absent.
func (m ComplexityMap) Get(name string) int {
	if v, ok := m[name]; ok {
		return v
	}
	return DefaultComplexity
}

// PriorityMap maps function name to outDegree + complexity.
type PriorityMap map[string]int

// WeightAssignment maps function name to a scheduler weight in [MinWeight, MaxWeight].
// It is valid for the single transmission that follows its creation.
type WeightAssignment map[string]int

const (
	MinWeight = 1
	MaxWeight = 100
)
