package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/lang"
	"github.com/phobologic/callrank/internal/model"
)

// TreeSitter extracts definitions and calls from a parsed syntax tree. A call
// belongs to the innermost enclosing function; calls at module level are
// dropped. Units without a registered grammar go to Fallback.
type TreeSitter struct {
	QualifyNames bool
	Fallback     Extractor
}

func (t *TreeSitter) Name() string { return string(ModeTreeSitter) }

// Extract implements Extractor.
func (t *TreeSitter) Extract(ctx context.Context, unit model.SourceUnit) graph.Contribution {
	l, ok := lang.Languages[unit.Language]
	if !ok {
		return t.fallback(ctx, unit)
	}

	source := []byte(unit.Text)
	if len(source) == 0 {
		return graph.Contribution{Path: unit.Path}
	}

	parser := l.NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("parse failed, using textual extraction", "path", unit.Path, "err", err)
		return t.fallback(ctx, unit)
	}
	defer tree.Close()

	var records []model.FunctionRecord
	calls := make(map[string]map[string]struct{})

	var visit func(n *sitter.Node, enclosing string)
	visit = func(n *sitter.Node, enclosing string) {
		switch {
		case l.IsFunction(n):
			if name := l.FunctionName(n, source); name != "" {
				enclosing = qualify(unit, name, t.QualifyNames)
				records = append(records, model.FunctionRecord{
					Name: enclosing,
					Path: unit.Path,
					Body: lang.NodeText(n, source),
				})
			}
		case l.IsCall(n) && enclosing != "":
			if callee := l.CalleeName(n, source); callee != "" {
				addCall(calls, enclosing, callee)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), enclosing)
		}
	}
	visit(tree.RootNode(), "")

	return contribution(unit.Path, records, calls)
}

func (t *TreeSitter) fallback(ctx context.Context, unit model.SourceUnit) graph.Contribution {
	if t.Fallback == nil {
		return graph.Contribution{Path: unit.Path}
	}
	return t.Fallback.Extract(ctx, unit)
}
