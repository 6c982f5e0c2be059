package lang

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".PY", "python"},
		{".go", "go"},
		{".rb", "ruby"},
		{".js", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"python", "go", "ruby"} {
		l, ok := Languages[name]
		if !ok {
			t.Fatalf("%s language not registered", name)
		}
		if l.GetLanguage() == nil {
			t.Errorf("%s grammar is nil", name)
		}
		if l.Keyword == "" {
			t.Errorf("%s has no definition keyword", name)
		}
	}
}

func TestPythonCalleeName(t *testing.T) {
	t.Parallel()

	py := Languages["python"]
	source := []byte("foo()\nobj.bar()\n")
	tree, err := py.NewParser().ParseCtx(context.Background(), nil, source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer tree.Close()

	var names []string
	walk(tree.RootNode(), func(n *sitter.Node) {
		if py.IsCall(n) {
			names = append(names, py.CalleeName(n, source))
		}
	})

	if len(names) != 2 || names[0] != "foo" || names[1] != "bar" {
		t.Errorf("callee names = %v, want [foo bar]", names)
	}
}

func TestGoIsDecision(t *testing.T) {
	t.Parallel()

	g := Languages["go"]
	source := []byte("package p\n\nfunc f(a, b bool) {\n\tif a && b {\n\t}\n\tfor {\n\t}\n}\n")
	tree, err := g.NewParser().ParseCtx(context.Background(), nil, source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer tree.Close()

	count := 0
	walk(tree.RootNode(), func(n *sitter.Node) {
		if g.IsDecision(n) {
			count++
		}
	})
	if count != 3 {
		t.Errorf("decision count = %d, want 3 (if, &&, for)", count)
	}
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}
