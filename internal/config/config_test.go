package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goldrun.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
program: learner
epsilon: 0.001
timeout: 30
memcheck: "valgrind --quiet"
platform_suffix: ".arm64"
search_dirs:
  - build
  - ../build
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Epsilon != 0.001 {
		t.Errorf("Expected epsilon 0.001, got %g", cfg.Epsilon)
	}
	if cfg.TimeoutSecs != 30 {
		t.Errorf("Expected timeout 30, got %d", cfg.TimeoutSecs)
	}
	if cfg.Memcheck != "valgrind --quiet" {
		t.Errorf("Expected memcheck command, got %q", cfg.Memcheck)
	}
	if cfg.PlatformSuffix != ".arm64" {
		t.Errorf("Expected platform suffix .arm64, got %q", cfg.PlatformSuffix)
	}
	if len(cfg.SearchDirs) != 2 || cfg.SearchDirs[0] != "build" {
		t.Errorf("Expected search dirs from file, got %v", cfg.SearchDirs)
	}
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := writeConfig(t, "timeout: 10\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := Default()
	if cfg.Program != def.Program {
		t.Errorf("Expected default program %q, got %q", def.Program, cfg.Program)
	}
	if cfg.Epsilon != def.Epsilon {
		t.Errorf("Expected default epsilon %g, got %g", def.Epsilon, cfg.Epsilon)
	}
	if cfg.TimeoutSecs != 10 {
		t.Errorf("Expected timeout 10, got %d", cfg.TimeoutSecs)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative epsilon", "epsilon: -0.5\n"},
		{"zero epsilon", "epsilon: 0\n"},
		{"negative timeout", "timeout: -1\n"},
		{"empty program", "program: \"\"\n"},
		{"malformed yaml", "epsilon: [not a number\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}
