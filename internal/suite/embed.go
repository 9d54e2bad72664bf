package suite

import _ "embed"

// defaultSuite ships with the binary so the harness can run without an
// external specification file.
//
//go:embed testdata/default.suite
var defaultSuite string

// DefaultSpec returns the embedded test specification text.
func DefaultSpec() string {
	return defaultSuite
}
