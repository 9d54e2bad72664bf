//go:build integration
// +build integration

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestIntegrationGoldrun builds the harness and runs it end to end
// against a shell-script candidate with real reference files.
func TestIntegrationGoldrun(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "goldrun")

	build := exec.Command("go", "build", "-o", bin, ".")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("building harness: %v\n%s", err, out)
	}

	candidate := filepath.Join(dir, "learner")
	script := `#!/bin/sh
echo "average loss 0.52341"
echo "learner 1.0 starting" 1>&2
`
	if err := os.WriteFile(candidate, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "refs"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "refs", "t1.stdout"), "average loss 0.52342\n")
	writeFile(t, filepath.Join(dir, "refs", "t1.stderr"), "learner 1.0 starting\n")
	writeFile(t, filepath.Join(dir, "suite.spec"), "{BIN}\nrefs/t1.stdout\nrefs/t1.stderr\n")

	t.Run("exact comparison fails on drift", func(t *testing.T) {
		cmd := exec.Command(bin, "--suite", "suite.spec", candidate)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err == nil {
			t.Fatalf("expected failure in exact mode, got success:\n%s", out)
		}
	})

	t.Run("fuzzy comparison tolerates drift", func(t *testing.T) {
		cmd := exec.Command(bin, "--suite", "suite.spec", "--fuzzy", candidate)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("expected fuzzy run to pass: %v\n%s", err, out)
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
