// Package ranking orders functions by priority and spreads scheduler weights
// over that order.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/callrank/internal/model"
)

// Entry is one function in rank order.
type Entry struct {
	Name     string
	Priority int
	Weight   int
}

// Order returns the entries of pm sorted by priority descending, then by name
// ascending. Weights are filled in with the linear-step decay.
func Order(pm model.PriorityMap) []Entry {
	entries := make([]Entry, 0, len(pm))
	for name, p := range pm {
		entries = append(entries, Entry{Name: name, Priority: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	step := Step(len(entries))
	for i := range entries {
		entries[i].Weight = weightAt(i, step)
	}
	return entries
}

// Step returns the weight decrement between consecutive ranks for n functions.
func Step(n int) int {
	if n <= 0 {
		return 1
	}
	return max(1, model.MaxWeight/n)
}

func weightAt(i, step int) int {
	return max(model.MaxWeight-i*step, model.MinWeight)
}

// Distribute maps each function in pm to a weight in [MinWeight, MaxWeight].
// The highest-priority function gets MaxWeight and weights never increase
// down the order. Functions with equal priority still get distinct weights
// by name order.
func Distribute(pm model.PriorityMap) model.WeightAssignment {
	return Weights(Order(pm))
}

// Weights collects the weights of ordered entries into an assignment.
func Weights(entries []Entry) model.WeightAssignment {
	wa := make(model.WeightAssignment, len(entries))
	for _, e := range entries {
		wa[e.Name] = e.Weight
	}
	return wa
}

// Top returns the first n entries. If n is <= 0 or >= len(entries), entries is
// returned as is.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// Filter returns the entries whose name contains substr (case-insensitive),
// keeping their rank order and weights.
func Filter(entries []Entry, substr string) []Entry {
	if substr == "" {
		return entries
	}
	lower := strings.ToLower(substr)
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), lower) {
			out = append(out, e)
		}
	}
	return out
}
