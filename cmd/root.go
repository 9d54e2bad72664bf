package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goldrun-dev/goldrun/internal/config"
	"github.com/goldrun-dev/goldrun/internal/executor"
	"github.com/goldrun-dev/goldrun/internal/logging"
	"github.com/goldrun-dev/goldrun/internal/refs"
	"github.com/goldrun-dev/goldrun/internal/runner"
	"github.com/goldrun-dev/goldrun/internal/suite"
)

const version = "v1.0.0"

// defaultConfigFile is picked up from the working directory when no
// --config flag is given.
const defaultConfigFile = ".goldrun.yaml"

var (
	configPath    string
	suitePath     string
	program       string
	workdir       string
	testNumbers   []int
	epsilon       float64
	timeoutSecs   int
	memcheck      string
	fuzzy         bool
	ignoreSpace   bool
	diffAlways    bool
	diffSignif    bool
	printCommands bool
	failFast      bool
	overwrite     bool
	keepFailed    bool
	verbose       bool
	logLevel      string
	colorMode     string
	cleanup       func()
)

var rootCmd = &cobra.Command{
	Use:   "goldrun [candidate-executable]",
	Short: "Golden-file regression harness for a numeric command-line program",
	Long: `Goldrun runs a declarative suite of command-line tests against a
candidate executable and compares the captured stdout, stderr, and
prediction output against stored reference files. Comparison is exact by
default; with --fuzzy, numeric tokens may drift within an epsilon
(absolute, falling back to relative for large magnitudes) without
failing the test.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := logging.Init(logLevel, verbose, colorMode)
		if err != nil {
			return err
		}
		cleanup = c
		return nil
	},
	RunE: run,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "YAML defaults file (default "+defaultConfigFile+" if present)")
	f.StringVar(&suitePath, "suite", "", "test specification file (default: embedded suite)")
	f.StringVar(&program, "program", "", "candidate program name searched for when no path is given")
	f.StringVar(&workdir, "workdir", "", "directory for per-test scratch files")
	f.IntSliceVarP(&testNumbers, "tests", "t", nil, "run only these test numbers")
	f.Float64VarP(&epsilon, "epsilon", "e", 0, "numeric tolerance for --fuzzy comparison")
	f.IntVar(&timeoutSecs, "timeout", 0, "per-test wall-clock timeout in seconds")
	f.StringVar(&memcheck, "memcheck", "", "instrumentation wrapper command (takes precedence over --timeout)")
	f.BoolVarP(&fuzzy, "fuzzy", "z", false, "tolerate small numeric differences")
	f.BoolVarP(&ignoreSpace, "ignore-space", "w", false, "ignore whitespace-only differences")
	f.BoolVarP(&diffAlways, "diff", "d", false, "print the diff for every mismatch")
	f.BoolVarP(&diffSignif, "diff-significant", "D", false, "print the diff for significant mismatches")
	f.BoolVarP(&printCommands, "print-commands", "c", false, "echo each command before running it")
	f.BoolVarP(&failFast, "fail-fast", "f", false, "abort the run on the first failing test")
	f.BoolVarP(&overwrite, "overwrite", "o", false, "replace differing references with the actual output")
	f.BoolVarP(&keepFailed, "keep-failed", "k", false, "copy failing outputs next to their reference")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging (sets level=debug)")
	f.StringVar(&logLevel, "log-level", "info", "log verbosity: debug, info, warn, or error")
	f.StringVar(&colorMode, "color", "auto", "log coloring: auto, always, or never")
}

func Execute() {
	err := rootCmd.Execute()
	if cleanup != nil {
		cleanup()
	}
	if err == nil {
		return
	}
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		logging.L().Error(exitErr.Error())
		os.Exit(exitErr.Code)
	}
	logging.L().Error(err.Error())
	os.Exit(1)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	candidate := ""
	if len(args) == 1 {
		candidate = args[0]
	}
	bin, err := resolveCandidate(candidate, cfg)
	if err != nil {
		return err
	}
	logging.L().Info("starting run", "candidate", bin, "suite", suiteName(cfg), "fuzzy", fuzzy, "epsilon", cfg.Epsilon)

	cases, err := loadSuite(cfg, bin)
	if err != nil {
		return err
	}
	logging.L().Debug("parsed suite", "tests", len(cases))

	selected, err := normalizeSelection(testNumbers, len(cases))
	if err != nil {
		return err
	}

	exe := &executor.Executor{
		Workdir:       cfg.Workdir,
		Memcheck:      cfg.Memcheck,
		TimeoutSecs:   cfg.TimeoutSecs,
		PrintCommands: printCommands,
	}
	resolver := &refs.Resolver{PlatformSuffix: cfg.PlatformSuffix}
	r := runner.New(cases, exe, resolver, runner.Options{
		Fuzzy:             fuzzy,
		IgnoreSpace:       ignoreSpace,
		Epsilon:           cfg.Epsilon,
		DiffAlways:        diffAlways,
		DiffOnSignificant: diffSignif,
		FailFast:          failFast,
		Overwrite:         overwrite,
		KeepFailed:        keepFailed,
		Tests:             selected,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		return err
	}
	if summary.Failures > 0 {
		return fmt.Errorf("%d failed checks across %d tests", summary.Failures, summary.Ran)
	}
	logging.L().Info("all tests passed", "ran", summary.Ran)
	fmt.Printf("ok: %d tests passed\n", summary.Ran)
	return nil
}

// loadConfig layers changed flags over the YAML defaults file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
		logging.L().Debug("loaded config", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("program") {
		cfg.Program = program
	}
	if flags.Changed("suite") {
		cfg.Suite = suitePath
	}
	if flags.Changed("workdir") {
		cfg.Workdir = workdir
	}
	if flags.Changed("epsilon") {
		cfg.Epsilon = epsilon
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSecs = timeoutSecs
	}
	if flags.Changed("memcheck") {
		cfg.Memcheck = memcheck
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveCandidate locates the executable under test: the explicit path
// when given, otherwise the configured search directories, then $PATH.
func resolveCandidate(explicit string, cfg config.Config) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("candidate executable %s: %w", explicit, err)
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			return "", fmt.Errorf("candidate %s is not an executable file", explicit)
		}
		return explicit, nil
	}

	for _, dir := range cfg.SearchDirs {
		path := filepath.Join(dir, cfg.Program)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return path, nil
		}
	}
	if path, err := exec.LookPath(cfg.Program); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("no candidate executable: %s not found in %s or $PATH",
		cfg.Program, strings.Join(cfg.SearchDirs, ", "))
}

// loadSuite parses the external suite file when configured, the embedded
// default otherwise.
func loadSuite(cfg config.Config, bin string) ([]*suite.TestCase, error) {
	if cfg.Suite != "" {
		f, err := os.Open(cfg.Suite)
		if err != nil {
			return nil, fmt.Errorf("opening suite %s: %w", cfg.Suite, err)
		}
		defer f.Close()
		return suite.ParseAll(f, bin)
	}
	return suite.ParseAll(strings.NewReader(suite.DefaultSpec()), bin)
}

func suiteName(cfg config.Config) string {
	if cfg.Suite != "" {
		return cfg.Suite
	}
	return "embedded"
}

// normalizeSelection sorts and deduplicates requested test numbers and
// rejects ones the suite does not have. The run always proceeds in
// ascending numeric order regardless of how -t was spelled.
func normalizeSelection(nums []int, total int) ([]int, error) {
	if len(nums) == 0 {
		return nil, nil
	}
	seen := make(map[int]bool, len(nums))
	var out []int
	for _, n := range nums {
		if n < 1 || n > total {
			return nil, fmt.Errorf("test number %d out of range (suite has %d tests)", n, total)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}
