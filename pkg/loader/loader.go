// Package loader drives the insert engine from a CSV-formatted
// stream of key,value pairs.
package loader

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/adrennan/cordix/pkg/btree"
)

// ErrMalformedLine is the Err of a LineResult whose line cannot be
// parsed into a (key, value) pair.
var ErrMalformedLine = errors.New("loader: invalid format")

// LineResult records the outcome of processing one non-empty CSV
// line. Line is 1-based. Exactly one of (Err == nil) or (Err != nil)
// holds; on success Key, Value, and Outcome describe the insert.
type LineResult struct {
	Line    int
	Key     uint64
	Value   uint64
	Raw     string
	Outcome btree.InsertOutcome
	Err     error
}

// Load reads r line by line. Each non-empty line is split on its
// first comma into two fields; both are trimmed and parsed as 64-bit
// unsigned integers and forwarded to tree.Insert. A line that fails
// to parse is reported via its LineResult.Err (set to
// ErrMalformedLine) and skipped; parsing resumes with the next line.
// A line whose insert is rejected as a duplicate still produces a
// LineResult carrying that error — the loader itself never stops on
// a single bad or duplicate line.
func Load(r io.Reader, tree *btree.Tree) ([]LineResult, error) {
	var results []LineResult

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value, err := parseLine(line)
		if err != nil {
			results = append(results, LineResult{Line: lineNum, Raw: line, Err: err})
			continue
		}

		outcome, insertErr := tree.InsertReporting(key, value)
		results = append(results, LineResult{Line: lineNum, Key: key, Value: value, Raw: line, Outcome: outcome, Err: insertErr})
	}
	if err := scanner.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// parseLine splits line on its first comma and parses both fields as
// unsigned 64-bit integers.
func parseLine(line string) (key, value uint64, err error) {
	idx := strings.IndexByte(line, ',')
	if idx < 0 {
		return 0, 0, ErrMalformedLine
	}

	keyStr := strings.TrimSpace(line[:idx])
	valueStr := strings.TrimSpace(line[idx+1:])

	key, err = strconv.ParseUint(keyStr, 10, 64)
	if err != nil {
		return 0, 0, ErrMalformedLine
	}
	value, err = strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, 0, ErrMalformedLine
	}
	return key, value, nil
}
