// Package executor runs one test's command as a subprocess with its
// output streams redirected to per-test scratch files. Timeout and
// memory-check enforcement are delegated to external wrapper commands
// rather than in-process timers, so the child sees exactly the
// environment the wrappers create.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/goldrun-dev/goldrun/internal/logging"
	"github.com/goldrun-dev/goldrun/internal/suite"
)

// Sentinel exit codes mapped by the wrapper commands.
const (
	// MemcheckExitCode is handed to the instrumentation wrapper via
	// --error-exitcode so detected errors are distinguishable from the
	// program's own exit statuses.
	MemcheckExitCode = 100
	// TimeoutExitCode is what timeout(1) exits with when it kills the
	// child.
	TimeoutExitCode = 124
)

// Executor runs test commands. At most one wrapper applies per run;
// instrumentation takes precedence over the timeout.
type Executor struct {
	// Workdir receives the per-test scratch files.
	Workdir string
	// Memcheck, when non-empty, is the instrumentation command the
	// test command is run under (e.g. "valgrind --quiet").
	Memcheck string
	// TimeoutSecs, when positive, wraps the command in timeout(1).
	TimeoutSecs int
	// PrintCommands echoes each command line before running it.
	PrintCommands bool
}

// Result captures one subprocess execution.
type Result struct {
	Test        *suite.TestCase
	ExitCode    int
	StdoutPath  string
	StderrPath  string
	PredictPath string
	CPUTime     time.Duration
	TimedOut    bool
	MemcheckErr bool
}

// Failed reports whether the child exited non-zero.
func (r *Result) Failed() bool { return r.ExitCode != 0 }

// Run executes the test's command, blocking until it exits. Scratch
// output files are recreated fresh; a stale predict output from an
// earlier test is removed first since its name is reused across tests.
// A spawn failure is an error; a non-zero child exit is not.
func (e *Executor) Run(ctx context.Context, tc *suite.TestCase) (*Result, error) {
	res := &Result{
		Test:       tc,
		StdoutPath: e.scratchPath(tc.Number, "stdout"),
		StderrPath: e.scratchPath(tc.Number, "stderr"),
	}
	if tc.PredictOut != "" {
		res.PredictPath = tc.PredictOut
		if err := os.Remove(tc.PredictOut); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("clearing stale predict output: %w", err)
		}
	}

	outFile, err := os.Create(res.StdoutPath)
	if err != nil {
		return nil, fmt.Errorf("creating stdout capture: %w", err)
	}
	defer outFile.Close()
	errFile, err := os.Create(res.StderrPath)
	if err != nil {
		return nil, fmt.Errorf("creating stderr capture: %w", err)
	}
	defer errFile.Close()

	cmdline := e.wrap(tc)
	if e.PrintCommands {
		fmt.Println(cmdline)
	}
	logging.L().Debug("executing", "test", tc.Number, "command", cmdline)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", cmdline)
	cmd.Stdout = outFile
	cmd.Stderr = errFile

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("test %d: spawning command: %w", tc.Number, runErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	if state := cmd.ProcessState; state != nil {
		res.CPUTime = state.UserTime() + state.SystemTime()
	}
	res.TimedOut = e.Memcheck == "" && e.TimeoutSecs > 0 && res.ExitCode == TimeoutExitCode
	res.MemcheckErr = e.Memcheck != "" && res.ExitCode == MemcheckExitCode

	return res, nil
}

// wrap applies at most one wrapping strategy to the command line.
func (e *Executor) wrap(tc *suite.TestCase) string {
	switch {
	case e.Memcheck != "":
		logFile := e.scratchPath(tc.Number, "memcheck")
		return fmt.Sprintf("%s --error-exitcode=%d --log-file=%s %s",
			e.Memcheck, MemcheckExitCode, logFile, tc.Command)
	case e.TimeoutSecs > 0:
		return fmt.Sprintf("timeout -k 5 %d %s", e.TimeoutSecs, tc.Command)
	default:
		return tc.Command
	}
}

func (e *Executor) scratchPath(num int, stream string) string {
	return filepath.Join(e.Workdir, fmt.Sprintf("test.%d.%s", num, stream))
}

// Describe renders a one-line explanation of a failed execution for the
// per-test diagnostic.
func (r *Result) Describe() string {
	switch {
	case r.TimedOut:
		return fmt.Sprintf("timed out (exit %d)", r.ExitCode)
	case r.MemcheckErr:
		return fmt.Sprintf("instrumentation detected an error (exit %d)", r.ExitCode)
	default:
		return fmt.Sprintf("exit %d", r.ExitCode)
	}
}
