// Package suite parses the declarative test specification consumed by the
// harness: blank-line-separated blocks, each holding one command line and
// the reference files its output is checked against.
package suite

// Kind tags a reference file by the output stream it describes.
type Kind int

const (
	KindStdout Kind = iota
	KindStderr
	KindPredict
)

func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindStderr:
		return "stderr"
	case KindPredict:
		return "predict"
	}
	return "unknown"
}

// DefaultPredictFile is where the candidate program writes predictions
// when the command line carries no explicit -p flag.
const DefaultPredictFile = "predict.tmp"

// TestCase is one declared test: a fully substituted command line plus
// the reference files its outputs are compared against.
type TestCase struct {
	// Number is 1-based and assigned in declaration order.
	Number int

	// Command has the executable placeholder already substituted.
	Command string

	// Refs maps each declared expectation kind to its reference path.
	// A stderr reference is always present; stdout and predict are
	// optional.
	Refs map[Kind]string

	// PredictOut is the file the candidate writes predictions to,
	// parsed from the command's -p flag, or DefaultPredictFile when a
	// predict reference is declared without one.
	PredictOut string
}

// HasRef reports whether a reference of the given kind was declared.
func (tc *TestCase) HasRef(k Kind) bool {
	_, ok := tc.Refs[k]
	return ok
}
