package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the harness defaults that can be supplied through a YAML
// file and overridden by command-line flags. Behavioral run options
// (fail-fast, overwrite, diff printing) live with the runner; everything
// here describes the environment the suite runs in.
type Config struct {
	Program        string   `yaml:"program"`
	SearchDirs     []string `yaml:"search_dirs"`
	Suite          string   `yaml:"suite"`
	Workdir        string   `yaml:"workdir"`
	Epsilon        float64  `yaml:"epsilon"`
	TimeoutSecs    int      `yaml:"timeout"`
	Memcheck       string   `yaml:"memcheck"`
	PlatformSuffix string   `yaml:"platform_suffix"`
}

// Default returns the built-in configuration. Reference files for
// platforms with a different random-number implementation carry a
// GOOS-named suffix next to the canonical file.
func Default() Config {
	cfg := Config{
		Program:    "learner",
		SearchDirs: []string{".", "bin", "../bin"},
		Workdir:    ".",
		Epsilon:    1e-4,
	}
	if runtime.GOOS == "darwin" {
		cfg.PlatformSuffix = ".darwin"
	}
	return cfg
}

// Load overlays the YAML file at path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Program == "" {
		return fmt.Errorf("program name cannot be empty")
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("timeout cannot be negative, got %d", c.TimeoutSecs)
	}
	if c.Workdir == "" {
		return fmt.Errorf("workdir cannot be empty")
	}
	return nil
}
