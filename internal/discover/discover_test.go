package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/phobologic/callrank/internal/model"
)

func TestUnitsPythonFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "print('hello')")
	writeFile(t, dir, "lib/util.py", "def helper(): pass")
	// Non-Python file should be ignored
	writeFile(t, dir, "readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.py", "secret")

	units, s := collect(t, dir, DefaultOptions())

	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %v", len(units), paths(units))
	}
	if units[0].Path != "lib/util.py" {
		t.Errorf("unit 0: got %q", units[0].Path)
	}
	if units[1].Path != "main.py" {
		t.Errorf("unit 1: got %q", units[1].Path)
	}
	for _, u := range units {
		if u.Language != "python" || u.Extension != ".py" {
			t.Errorf("unit %q: language=%q ext=%q", u.Path, u.Language, u.Extension)
		}
	}
	if units[0].Text != "def helper(): pass" {
		t.Errorf("text = %q", units[0].Text)
	}
	if len(s.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", s.Warnings())
	}
}

func TestUnitsSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "node_modules/pkg.py", "pass")
	writeFile(t, dir, "__pycache__/cached.py", "pass")
	writeFile(t, dir, ".hidden/secret.py", "pass")

	units, _ := collect(t, dir, DefaultOptions())

	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].Path != "main.py" {
		t.Errorf("expected main.py, got %q", units[0].Path)
	}
}

func TestUnitsExtensionAllowList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "a.py", "pass")
	writeFile(t, dir, "b.go", "package b")
	writeFile(t, dir, "c.RB", "puts 1")

	opts := DefaultOptions()
	opts.Extensions = []string{"go", ".rb"}
	units, _ := collect(t, dir, opts)

	got := paths(units)
	want := []string{"b.go", "c.RB"}
	if !slices.Equal(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
	if units[1].Language != "ruby" {
		t.Errorf("c.RB language = %q, want ruby", units[1].Language)
	}
}

func TestUnitsGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\nskip_me.py\n")
	writeFile(t, dir, "keep.py", "pass")
	writeFile(t, dir, "skip_me.py", "pass")
	writeFile(t, dir, "generated/out.py", "pass")

	units, _ := collect(t, dir, DefaultOptions())
	if got := paths(units); !slices.Equal(got, []string{"keep.py"}) {
		t.Errorf("paths = %v, want [keep.py]", got)
	}

	opts := DefaultOptions()
	opts.RespectGitignore = false
	units, _ = collect(t, dir, opts)
	if len(units) != 3 {
		t.Errorf("without gitignore expected 3 units, got %v", paths(units))
	}
}

func TestUnitsSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.py", "pass")

	err := os.Symlink(filepath.Join(dir, "real.py"), filepath.Join(dir, "link.py"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	units, _ := collect(t, dir, DefaultOptions())
	if len(units) != 1 {
		t.Fatalf("expected 1 unit (no symlink), got %d", len(units))
	}
	if units[0].Path != "real.py" {
		t.Errorf("expected real.py, got %q", units[0].Path)
	}
}

func TestUnitsDecodeReplace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "bad.py", "def f(\xff):\n    g()\n")
	writeFile(t, dir, "bom.py", "\xef\xbb\xbfdef h():\n    pass\n")

	units, s := collect(t, dir, DefaultOptions())
	if len(units) != 2 {
		t.Fatalf("expected both files kept, got %v", paths(units))
	}
	if !strings.Contains(units[0].Text, "�") {
		t.Errorf("expected replacement character, got %q", units[0].Text)
	}
	if !strings.HasPrefix(units[1].Text, "def h") {
		t.Errorf("BOM not stripped: %q", units[1].Text)
	}

	ws := s.Warnings()
	if len(ws) != 1 || ws[0].Path != "bad.py" || ws[0].Skipped() {
		t.Errorf("warnings = %+v, want one non-skip warning for bad.py", ws)
	}
}

func TestUnitsDecodeStrict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "bad.py", "def f(\xff):\n")
	writeFile(t, dir, "good.py", "def g():\n")

	opts := DefaultOptions()
	opts.Decode = DecodeStrict
	units, s := collect(t, dir, opts)

	if got := paths(units); !slices.Equal(got, []string{"good.py"}) {
		t.Errorf("paths = %v, want [good.py]", got)
	}
	ws := s.Warnings()
	if len(ws) != 1 || !ws[0].Skipped() {
		t.Errorf("warnings = %+v, want one skip warning", ws)
	}
}

func TestUnitsMaxFileSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "big.py", strings.Repeat("x", 64))
	writeFile(t, dir, "small.py", "x")

	opts := DefaultOptions()
	opts.MaxFileSize = 10
	units, s := collect(t, dir, opts)

	if got := paths(units); !slices.Equal(got, []string{"small.py"}) {
		t.Errorf("paths = %v", got)
	}
	if len(s.Warnings()) != 1 {
		t.Errorf("expected 1 warning, got %v", s.Warnings())
	}
}

func TestUnitsCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "pass")

	s, err := New(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := 0
	for range s.Units(ctx) {
		n++
	}
	if n != 0 {
		t.Errorf("expected no units after cancel, got %d", n)
	}
	if !errors.Is(s.Err(), context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", s.Err())
	}
}

func TestNewAcquisitionError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "file.py", "pass")

	for _, root := range []string{filepath.Join(dir, "missing"), filepath.Join(dir, "file.py")} {
		_, err := New(root, DefaultOptions())
		var acq *AcquisitionError
		if !errors.As(err, &acq) {
			t.Errorf("New(%q) err = %v, want *AcquisitionError", root, err)
		}
	}
}

func TestAccepts(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"main.py", true},
		{"pkg/mod.py", true},
		{"pkg/mod.txt", false},
		{"node_modules/x.py", false},
		{".venv/lib/x.py", false},
		{"pkg/.secret.py", false},
	}
	for _, tc := range cases {
		if got := s.Accepts(tc.path); got != tc.want {
			t.Errorf("Accepts(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func collect(t *testing.T, dir string, opts Options) ([]model.SourceUnit, *Scanner) {
	t.Helper()
	s, err := New(dir, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var units []model.SourceUnit
	for u := range s.Units(context.Background()) {
		units = append(units, u)
	}
	if s.Err() != nil {
		t.Fatalf("Err: %v", s.Err())
	}
	return units, s
}

func paths(units []model.SourceUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Path
	}
	return out
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
