// Package compare decides whether a candidate output file matches its
// reference. Line alignment is done in-process; on top of it sits a
// numeric tolerance pass so low-order floating-point drift across
// platforms and builds does not fail the suite.
package compare

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// DefaultEpsilon bounds both the absolute and the relative difference a
// numeric token may drift by before the mismatch counts as significant.
const DefaultEpsilon = 1e-4

// Verdict classifies a comparison.
type Verdict int

const (
	// Match means the files are structurally identical.
	Match Verdict = iota
	// Cosmetic means they differ, but only by numeric noise within
	// tolerance. Never a failure.
	Cosmetic
	// Significant means a difference tolerance cannot excuse.
	Significant
)

func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case Cosmetic:
		return "cosmetic"
	case Significant:
		return "significant"
	}
	return "unknown"
}

// Options configures a comparison.
type Options struct {
	Epsilon     float64
	Fuzzy       bool // apply numeric tolerance to differing lines
	IgnoreSpace bool // collapse whitespace before aligning
}

// DefaultOptions returns exact comparison with the stock epsilon.
func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon}
}

// Result is the outcome of comparing one reference/actual file pair.
type Result struct {
	Verdict Verdict
	Pairs   []Pair
}

// CompareFiles aligns the reference against the actual output and judges
// the differing regions. A missing or empty file on either side is
// treated as zero lines, not an error.
func CompareFiles(refPath, actualPath string, opts Options) (*Result, error) {
	ref, err := readLines(refPath)
	if err != nil {
		return nil, fmt.Errorf("reading reference %s: %w", refPath, err)
	}
	actual, err := readLines(actualPath)
	if err != nil {
		return nil, fmt.Errorf("reading output %s: %w", actualPath, err)
	}

	pairs := Align(ref, actual, opts.IgnoreSpace)
	if len(pairs) == 0 {
		return &Result{Verdict: Match}, nil
	}
	if !opts.Fuzzy {
		return &Result{Verdict: Significant, Pairs: pairs}, nil
	}
	return &Result{Verdict: Judge(pairs, opts.Epsilon), Pairs: pairs}, nil
}

// Judge re-examines differing line pairs under numeric tolerance. The
// first significant pair short-circuits the whole comparison.
func Judge(pairs []Pair, epsilon float64) Verdict {
	if len(pairs) == 0 {
		return Match
	}
	for _, p := range pairs {
		if judgePair(p, epsilon) == Significant {
			return Significant
		}
	}
	return Cosmetic
}

func judgePair(p Pair, epsilon float64) Verdict {
	// One-sided pairs have no counterpart to be tolerant against.
	if !p.HasLeft || !p.HasRight {
		return Significant
	}

	left := strings.Fields(p.Left)
	right := strings.Fields(p.Right)
	if len(left) != len(right) {
		return Significant
	}

	for i := range left {
		if judgeWords(left[i], right[i], epsilon) == Significant {
			return Significant
		}
	}
	return Cosmetic
}

// judgeWords applies the absolute-then-relative tolerance rule to a
// single token pair. The relative test intentionally switches on the
// magnitude of the right-hand (actual) value only.
func judgeWords(left, right string, epsilon float64) Verdict {
	if left == right {
		return Match
	}

	lv, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return Significant
	}
	rv, err := strconv.ParseFloat(right, 64)
	if err != nil {
		return Significant
	}
	// ParseFloat accepts "nan", which compares false against
	// everything and would slip through every tolerance gate.
	if math.IsNaN(lv) || math.IsNaN(rv) {
		return Significant
	}

	if math.Abs(lv-rv) <= epsilon {
		return Cosmetic
	}
	// The absolute test already failed; near zero there is no safe
	// ratio to fall back on.
	if math.Abs(rv) <= 1.0 {
		return Significant
	}
	// Tolerance must be affirmed, never reached by fallthrough.
	if math.Abs(lv/rv-1.0) <= epsilon {
		return Cosmetic
	}
	return Significant
}

// Render prints the differing regions side by side, reference on the
// left, actual output on the right.
func (r *Result) Render() string {
	var b strings.Builder
	for _, p := range r.Pairs {
		switch {
		case p.HasLeft && p.HasRight:
			fmt.Fprintf(&b, "%s | %s\n", p.Left, p.Right)
		case p.HasLeft:
			fmt.Fprintf(&b, "%s <\n", p.Left)
		default:
			fmt.Fprintf(&b, "> %s\n", p.Right)
		}
	}
	return b.String()
}

// readLines returns the file's lines, treating a missing file as empty.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
