package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/callrank/internal/config"
)

func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "callrank.hcl")

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"init", path}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if string(data) != config.Template {
		t.Errorf("written file differs from template:\n%s", data)
	}
	if !strings.Contains(stderr.String(), "wrote "+path) {
		t.Errorf("stderr: %q", stderr.String())
	}
}

// The written file must load back to the defaults.
func TestInitFileLoads(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "callrank.hcl")

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"init", path}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg := config.Default()
	if err := config.LoadFile(context.Background(), path, &cfg); err != nil {
		t.Fatalf("loading written file: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("written file is invalid: %v", err)
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "callrank.hcl")
	if err := os.WriteFile(path, []byte("workers = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"init", path}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for existing file")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "workers = 3\n" {
		t.Errorf("existing file was modified: %q", data)
	}
}

func TestInitForce(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "callrank.hcl")
	if err := os.WriteFile(path, []byte("workers = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"init", "--force", path}, &stdout, &stderr); err != nil {
		t.Fatalf("init --force: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != config.Template {
		t.Errorf("file not replaced:\n%s", data)
	}
}

// TestInitDryRun verifies that --dry-run prints the template and does not
// create the target file.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "callrank.hcl")

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"init", "--dry-run", path}, &stdout, &stderr); err != nil {
		t.Fatalf("init --dry-run: %v", err)
	}

	if _, err := os.Stat(path); err == nil {
		t.Error("--dry-run should not create the file")
	}
	if stdout.String() != config.Template {
		t.Errorf("dry-run output:\n%s", stdout.String())
	}
}
