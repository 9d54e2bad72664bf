package suite

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goldrun-dev/goldrun/internal/logging"
)

// Placeholder marks where the resolved candidate executable path is
// substituted into a command line.
const Placeholder = "{BIN}"

// ErrNoMoreTests is returned by Next when the specification is exhausted.
var ErrNoMoreTests = errors.New("no more tests")

// ParseError reports a malformed test block. The suite itself is broken,
// so callers treat it as fatal.
type ParseError struct {
	Test   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("test %d: %s", e.Test, e.Reason)
}

// Parser consumes the line-oriented test specification one block at a time.
type Parser struct {
	sc      *bufio.Scanner
	bin     string
	nextNum int
	eof     bool
}

// NewParser reads the specification from r, substituting bin for the
// command placeholder.
func NewParser(r io.Reader, bin string) *Parser {
	return &Parser{sc: bufio.NewScanner(r), bin: bin, nextNum: 1}
}

// Next returns the next test case in declaration order, ErrNoMoreTests on
// clean end of input, or a *ParseError for a malformed block.
func (p *Parser) Next() (*TestCase, error) {
	if p.eof {
		return nil, ErrNoMoreTests
	}

	tc := &TestCase{Refs: make(map[Kind]string)}
	pending := false

	for p.sc.Scan() {
		line := p.sc.Text()

		// A blank or blank-starting line terminates the block.
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			if pending {
				return p.finish(tc)
			}
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.Contains(line, Placeholder):
			if tc.Command != "" {
				return nil, &ParseError{Test: p.nextNum, Reason: "more than one command line in block"}
			}
			tc.Command = strings.ReplaceAll(line, Placeholder, p.bin)
			pending = true
		case strings.HasSuffix(line, ".stdout"):
			tc.Refs[KindStdout] = line
			pending = true
		case strings.HasSuffix(line, ".stderr"):
			tc.Refs[KindStderr] = line
			pending = true
		case strings.HasSuffix(line, ".predict"):
			tc.Refs[KindPredict] = line
			pending = true
		default:
			logging.L().Warn("unrecognized specification line", "line", line)
		}
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("reading specification: %w", err)
	}

	p.eof = true
	if pending {
		return p.finish(tc)
	}
	return nil, ErrNoMoreTests
}

// finish validates a completed block and fills in derived fields.
func (p *Parser) finish(tc *TestCase) (*TestCase, error) {
	tc.Number = p.nextNum
	p.nextNum++

	if tc.Command == "" {
		return nil, &ParseError{Test: tc.Number, Reason: "block has no command line"}
	}
	if !tc.HasRef(KindStderr) {
		return nil, &ParseError{Test: tc.Number, Reason: "block has no .stderr reference"}
	}

	tc.PredictOut = predictArg(tc.Command)
	if tc.PredictOut == "" && tc.HasRef(KindPredict) {
		tc.PredictOut = DefaultPredictFile
	}

	return tc, nil
}

// predictArg extracts the argument of the -p flag from a command line,
// or "" when the flag is absent.
func predictArg(command string) string {
	fields := strings.Fields(command)
	for i, f := range fields {
		if f == "-p" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// ParseAll drains the parser, returning every test case in order.
func ParseAll(r io.Reader, bin string) ([]*TestCase, error) {
	p := NewParser(r, bin)
	var cases []*TestCase
	for {
		tc, err := p.Next()
		if errors.Is(err, ErrNoMoreTests) {
			return cases, nil
		}
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
}
