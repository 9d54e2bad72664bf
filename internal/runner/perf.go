package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goldrun-dev/goldrun/internal/logging"
)

const (
	// cpuTimeFile records the previous clean full-suite run's
	// cumulative child CPU time, in seconds.
	cpuTimeFile = ".goldrun_cputime"

	// perfTolerance is how much slower a run may get before it is
	// flagged as a performance regression.
	perfTolerance = 1.02
)

// checkCPUTime compares this run's cumulative CPU time against the last
// recorded one and stores the new value. Only meaningful for clean,
// uninstrumented full-suite runs; bookkeeping problems are logged, never
// fatal.
func (r *Runner) checkCPUTime(total time.Duration) {
	path := filepath.Join(r.exec.Workdir, cpuTimeFile)
	current := total.Seconds()

	prev, err := readCPUTime(path)
	switch {
	case err != nil:
		logging.L().Debug("no previous cpu time recorded", "error", err)
	case cpuRegressed(prev, current):
		logging.L().Warn("cpu time regression",
			"previous", fmt.Sprintf("%.3fs", prev),
			"current", fmt.Sprintf("%.3fs", current),
			"ratio", fmt.Sprintf("%.3f", current/prev))
	default:
		logging.L().Debug("cpu time within tolerance",
			"previous", fmt.Sprintf("%.3fs", prev),
			"current", fmt.Sprintf("%.3fs", current))
	}

	if err := os.WriteFile(path, []byte(fmt.Sprintf("%.6f\n", current)), 0o644); err != nil {
		logging.L().Warn("could not record cpu time", "path", path, "error", err)
	}
}

// cpuRegressed reports whether the current run is slow enough relative
// to the recorded one to flag. A missing or zero previous value cannot
// regress.
func cpuRegressed(prev, current float64) bool {
	return prev > 0 && current/prev > perfTolerance
}

func readCPUTime(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing recorded cpu time: %w", err)
	}
	return v, nil
}
