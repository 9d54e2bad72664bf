package compare

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Pair is one aligned line from each side of a differing region. A side
// with no counterpart (pure insertion or deletion) has HasLeft/HasRight
// false for that side.
type Pair struct {
	Left, Right       string
	HasLeft, HasRight bool
}

// Align matches reference lines against actual lines and returns only the
// differing regions as aligned pairs; lines common to both sides are
// suppressed. With ignoreWS set, runs of whitespace are collapsed before
// matching, so lines differing only in spacing align as common.
func Align(left, right []string, ignoreWS bool) []Pair {
	a, b := left, right
	if ignoreWS {
		a = normalizeWS(left)
		b = normalizeWS(right)
	}

	var pairs []Pair
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			// common region
		case 'r':
			n := op.I2 - op.I1
			if m := op.J2 - op.J1; m > n {
				n = m
			}
			for k := 0; k < n; k++ {
				var p Pair
				if op.I1+k < op.I2 {
					p.Left, p.HasLeft = left[op.I1+k], true
				}
				if op.J1+k < op.J2 {
					p.Right, p.HasRight = right[op.J1+k], true
				}
				pairs = append(pairs, p)
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				pairs = append(pairs, Pair{Left: left[i], HasLeft: true})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				pairs = append(pairs, Pair{Right: right[j], HasRight: true})
			}
		}
	}
	return pairs
}

func normalizeWS(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Join(strings.Fields(l), " ")
	}
	return out
}
