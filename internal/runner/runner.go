// Package runner drives the suite: executes each selected test, checks
// its outputs against the resolved references, and aggregates the
// verdicts into a run summary.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goldrun-dev/goldrun/internal/compare"
	"github.com/goldrun-dev/goldrun/internal/executor"
	"github.com/goldrun-dev/goldrun/internal/logging"
	"github.com/goldrun-dev/goldrun/internal/refs"
	"github.com/goldrun-dev/goldrun/internal/suite"
)

// Options are the behavioral run modes, all off by default.
type Options struct {
	Fuzzy             bool
	IgnoreSpace       bool
	Epsilon           float64
	DiffAlways        bool
	DiffOnSignificant bool
	FailFast          bool
	Overwrite         bool
	KeepFailed        bool

	// Tests restricts the run to these test numbers, ascending and
	// deduplicated. Empty means the whole suite.
	Tests []int
}

// ExitError carries the process exit status a fail-fast abort must
// propagate.
type ExitError struct {
	Code int
	Test int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("test %d failed, aborting run (exit %d)", e.Test, e.Code)
}

// Summary aggregates a finished (or aborted) run.
type Summary struct {
	Ran       int
	Failures  int
	FullSuite bool
	TotalCPU  time.Duration
}

// Runner executes test cases sequentially, one subprocess at a time.
type Runner struct {
	cases    []*suite.TestCase
	exec     *executor.Executor
	resolver *refs.Resolver
	opts     Options
}

func New(cases []*suite.TestCase, exec *executor.Executor, resolver *refs.Resolver, opts Options) *Runner {
	if opts.Epsilon <= 0 {
		opts.Epsilon = compare.DefaultEpsilon
	}
	return &Runner{cases: cases, exec: exec, resolver: resolver, opts: opts}
}

// Run executes the selected tests in declaration order. A fail-fast
// abort returns *ExitError; harness-level errors (spawn failures,
// reference bookkeeping) are returned as-is. Comparison failures only
// raise Summary.Failures.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	selected := r.selection()
	summary := &Summary{FullSuite: selected == nil}

	for _, tc := range r.cases {
		if selected != nil && !selected[tc.Number] {
			continue
		}
		summary.Ran++

		res, err := r.exec.Run(ctx, tc)
		if err != nil {
			return summary, err
		}
		summary.TotalCPU += res.CPUTime

		if res.Failed() {
			// A failed run short-circuits this test's comparisons.
			summary.Failures++
			logging.L().Error("test failed", "test", tc.Number, "check", "execution", "reason", res.Describe())
			if r.opts.FailFast {
				return summary, &ExitError{Code: res.ExitCode, Test: tc.Number}
			}
			continue
		}

		failed, err := r.checkOutputs(tc, res)
		if err != nil {
			return summary, err
		}
		summary.Failures += failed
		if failed > 0 && r.opts.FailFast {
			return summary, &ExitError{Code: 1, Test: tc.Number}
		}
	}

	if summary.FullSuite && summary.Failures == 0 && r.exec.Memcheck == "" {
		r.checkCPUTime(summary.TotalCPU)
	}
	return summary, nil
}

// checkOutputs runs the per-test checks in order: stdout, stderr, then
// predict when declared. Each check fails independently; none blocks the
// ones after it.
func (r *Runner) checkOutputs(tc *suite.TestCase, res *executor.Result) (int, error) {
	failed := 0

	for _, check := range []struct {
		kind   suite.Kind
		actual string
	}{
		{suite.KindStdout, res.StdoutPath},
		{suite.KindStderr, res.StderrPath},
		{suite.KindPredict, res.PredictPath},
	} {
		if check.kind == suite.KindPredict && !tc.HasRef(suite.KindPredict) {
			continue
		}
		n, err := r.checkOne(tc, check.kind, check.actual)
		if err != nil {
			return failed, err
		}
		failed += n
	}
	return failed, nil
}

// checkOne compares one output stream against its reference and returns
// 1 if the check failed, 0 otherwise.
func (r *Runner) checkOne(tc *suite.TestCase, kind suite.Kind, actualPath string) (int, error) {
	refName, declared := tc.Refs[kind]
	if !declared {
		// Only stdout may be undeclared: empty output is fine, any
		// output with nowhere to check it against is not.
		if empty, err := fileEmpty(actualPath); err != nil {
			return 0, err
		} else if empty {
			return 0, nil
		}
		if r.opts.Overwrite {
			logging.L().Warn("output with no declared reference left in place", "test", tc.Number, "check", kind)
			return 0, nil
		}
		logging.L().Error("test failed", "test", tc.Number, "check", kind, "reason", "output produced but no reference declared")
		return 1, nil
	}

	refPath := r.resolver.Resolve(refName)
	if refs.Missing(refPath) {
		if kind == suite.KindStdout {
			if empty, err := fileEmpty(actualPath); err != nil {
				return 0, err
			} else if empty {
				return 0, nil
			}
		}
		if r.opts.Overwrite {
			if err := refs.Overwrite(refPath, actualPath); err != nil {
				return 0, err
			}
			logging.L().Warn("reference created from output", "test", tc.Number, "ref", refPath)
			return 0, nil
		}
		logging.L().Error("test failed", "test", tc.Number, "check", kind, "reason", fmt.Sprintf("reference %s missing", refPath))
		return 1, nil
	}

	result, err := compare.CompareFiles(refPath, actualPath, compare.Options{
		Epsilon:     r.opts.Epsilon,
		Fuzzy:       r.opts.Fuzzy,
		IgnoreSpace: r.opts.IgnoreSpace,
	})
	if err != nil {
		return 0, fmt.Errorf("test %d: %w", tc.Number, err)
	}

	if result.Verdict == compare.Match {
		logging.L().Debug("check passed", "test", tc.Number, "check", kind)
		return 0, nil
	}

	// Side effects apply to any non-empty structural diff, whatever the
	// eventual verdict.
	if r.opts.DiffAlways || (r.opts.DiffOnSignificant && result.Verdict == compare.Significant) {
		fmt.Print(result.Render())
	}
	if r.opts.Overwrite {
		if err := refs.Overwrite(refPath, actualPath); err != nil {
			return 0, err
		}
		logging.L().Warn("reference overwritten", "test", tc.Number, "ref", refPath)
		return 0, nil
	}

	if result.Verdict == compare.Cosmetic {
		logging.L().Info("minor precision difference ignored", "test", tc.Number, "check", kind)
		return 0, nil
	}

	if r.opts.KeepFailed {
		if err := refs.CopyForInspection(refPath, actualPath); err != nil {
			logging.L().Warn("could not keep failed output", "test", tc.Number, "error", err)
		}
	}
	logging.L().Error("test failed", "test", tc.Number, "check", kind, "reason", fmt.Sprintf("output differs from %s", refPath))
	return 1, nil
}

// selection returns the set of requested test numbers, or nil for the
// whole suite.
func (r *Runner) selection() map[int]bool {
	if len(r.opts.Tests) == 0 {
		return nil
	}
	sel := make(map[int]bool, len(r.opts.Tests))
	for _, n := range r.opts.Tests {
		sel[n] = true
	}
	return sel
}

func fileEmpty(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking output %s: %w", path, err)
	}
	return info.Size() == 0, nil
}
