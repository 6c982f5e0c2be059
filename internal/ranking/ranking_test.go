package ranking

import (
	"fmt"
	"testing"

	"github.com/phobologic/callrank/internal/model"
)

func threeFunctions() model.PriorityMap {
	return model.PriorityMap{"foo": 3, "bar": 1, "baz": 4}
}

func TestDistributeThreeFunctions(t *testing.T) {
	t.Parallel()

	got := Distribute(threeFunctions())
	want := model.WeightAssignment{"baz": 100, "foo": 67, "bar": 34}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("weight(%s) = %d, want %d", k, got[k], v)
		}
	}
}

func TestWeightsMatchesDistribute(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 150; n += 7 {
		pm := make(model.PriorityMap, n)
		for i := 0; i < n; i++ {
			pm[fmt.Sprintf("f%03d", i)] = i % 5
		}
		entries := Order(pm)
		got := Weights(entries)
		if len(got) != n {
			t.Fatalf("n=%d: len = %d", n, len(got))
		}
		for _, e := range entries {
			if got[e.Name] != e.Weight {
				t.Errorf("n=%d: weight(%s) = %d, want %d", n, e.Name, got[e.Name], e.Weight)
			}
		}
		dist := Distribute(pm)
		for name, w := range dist {
			if got[name] != w {
				t.Errorf("n=%d: Distribute(%s) = %d, Weights = %d", n, name, w, got[name])
			}
		}
	}
}

func TestOrder(t *testing.T) {
	t.Parallel()

	got := Order(model.PriorityMap{"b": 2, "a": 2, "c": 5, "d": 1})
	wantNames := []string{"c", "a", "b", "d"}
	if len(got) != len(wantNames) {
		t.Fatalf("expected %d entries, got %d", len(wantNames), len(got))
	}
	for i, name := range wantNames {
		if got[i].Name != name {
			t.Errorf("entry %d: got %s, want %s", i, got[i].Name, name)
		}
	}
	if got[0].Weight != 100 || got[1].Weight != 75 || got[3].Weight != 25 {
		t.Errorf("unexpected weights: %+v", got)
	}
}

func TestDistributeEmpty(t *testing.T) {
	t.Parallel()

	got := Distribute(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil assignment, got %v", got)
	}
}

func TestDistributeSingle(t *testing.T) {
	t.Parallel()

	got := Distribute(model.PriorityMap{"only": 7})
	if got["only"] != 100 {
		t.Errorf("weight = %d, want 100", got["only"])
	}
}

func TestDistributeProperties(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 7, 33, 99, 100, 101, 250} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()

			pm := make(model.PriorityMap, n)
			for i := 0; i < n; i++ {
				pm[fmt.Sprintf("f%04d", i)] = 1 + i%5
			}
			entries := Order(pm)
			wa := Distribute(pm)

			if len(wa) != n {
				t.Fatalf("len = %d, want %d", len(wa), n)
			}
			if entries[0].Weight != model.MaxWeight {
				t.Errorf("top weight = %d, want %d", entries[0].Weight, model.MaxWeight)
			}
			for i, e := range entries {
				if e.Weight < model.MinWeight || e.Weight > model.MaxWeight {
					t.Errorf("%s weight %d out of range", e.Name, e.Weight)
				}
				if wa[e.Name] != e.Weight {
					t.Errorf("%s: Distribute %d, Order %d", e.Name, wa[e.Name], e.Weight)
				}
				if i > 0 && e.Weight > entries[i-1].Weight {
					t.Errorf("weight increased at %d: %d > %d", i, e.Weight, entries[i-1].Weight)
				}
				if i > 0 && e.Priority > entries[i-1].Priority {
					t.Errorf("priority increased at %d", i)
				}
			}
		})
	}
}

func TestDistributeLargeFloorsAtMin(t *testing.T) {
	t.Parallel()

	pm := make(model.PriorityMap, 150)
	for i := 0; i < 150; i++ {
		pm[fmt.Sprintf("f%03d", i)] = 1
	}
	entries := Order(pm)
	if entries[99].Weight != 1 || entries[100].Weight != 1 || entries[149].Weight != 1 {
		t.Errorf("expected tail to floor at 1, got %d %d %d",
			entries[99].Weight, entries[100].Weight, entries[149].Weight)
	}
	if entries[98].Weight != 2 {
		t.Errorf("entries[98].Weight = %d, want 2", entries[98].Weight)
	}
}

func TestStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, want int
	}{
		{0, 1}, {1, 100}, {3, 33}, {4, 25}, {100, 1}, {101, 1}, {1000, 1},
	}
	for _, tt := range tests {
		if got := Step(tt.n); got != tt.want {
			t.Errorf("Step(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestTop(t *testing.T) {
	t.Parallel()

	entries := Order(threeFunctions())
	if got := Top(entries, 0); len(got) != 3 {
		t.Errorf("n=0 should return all, got %d", len(got))
	}
	if got := Top(entries, 5); len(got) != 3 {
		t.Errorf("n > len should return all, got %d", len(got))
	}
	got := Top(entries, 2)
	if len(got) != 2 || got[0].Name != "baz" || got[1].Name != "foo" {
		t.Errorf("unexpected top 2: %+v", got)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	entries := Order(model.PriorityMap{"load_config": 3, "LoadData": 2, "save": 5})
	got := Filter(entries, "LOAD")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %+v", got)
	}
	if got[0].Name != "load_config" || got[0].Weight != 67 {
		t.Errorf("unexpected first match: %+v", got[0])
	}
	if got := Filter(entries, ""); len(got) != 3 {
		t.Errorf("empty filter should keep all, got %d", len(got))
	}
	if got := Filter(entries, "zzz"); len(got) != 0 {
		t.Errorf("expected no matches, got %+v", got)
	}
}
