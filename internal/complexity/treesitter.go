package complexity

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/lang"
	"github.com/phobologic/callrank/internal/model"
)

// TreeSitter computes cyclomatic complexity: one plus the number of decision
// points in a function body. Nested functions are scored on their own and do
// not add to their parent.
type TreeSitter struct {
	QualifyNames bool
}

func (*TreeSitter) Name() string { return string(KindTreeSitter) }

// Score implements Scorer. Units without a registered grammar yield no scores.
func (s *TreeSitter) Score(ctx context.Context, unit model.SourceUnit) (map[string]int, error) {
	l, ok := lang.Languages[unit.Language]
	if !ok || unit.Text == "" {
		return nil, nil
	}

	source := []byte(unit.Text)
	parser := l.NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", unit.Path, err)
	}
	defer tree.Close()

	scores := make(map[string]int)

	var visit func(n *sitter.Node, counter *int)
	visit = func(n *sitter.Node, counter *int) {
		if l.IsFunction(n) {
			c := 1
			for i := 0; i < int(n.ChildCount()); i++ {
				visit(n.Child(i), &c)
			}
			if name := l.FunctionName(n, source); name != "" {
				if s.QualifyNames {
					name = graph.Qualify(unit.Path, name)
				}
				if c > scores[name] {
					scores[name] = c
				}
			}
			return
		}
		if counter != nil && l.IsDecision(n) {
			*counter++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), counter)
		}
	}
	visit(tree.RootNode(), nil)

	return scores, nil
}
