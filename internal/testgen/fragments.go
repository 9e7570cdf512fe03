package testgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Fragment is one test-case object found in a completion reply.
type Fragment struct {
	Title          string
	Input          string
	ExpectedOutput string
	Code           string
}

// ParseError records a '{' in the reply that did not start a decodable
// object. The scanner drops it and resumes one byte later.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed fragment at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var fragmentFields = []string{"title", "input", "expectedOutput", "code"}

// ExtractFragments scans reply for JSON objects carrying test-case fields.
//
// Every '{' is a candidate start. A candidate that decodes to an object with at
// least one test-case field is accepted and the scan continues after it, so
// braces inside its string values are never revisited. Objects without such
// fields (wrappers like {"tests":[...]}) are entered rather than skipped, and
// candidates that fail to decode are reported and skipped by one byte.
func ExtractFragments(reply string) ([]Fragment, []*ParseError) {
	var (
		fragments []Fragment
		problems  []*ParseError
	)

	pos := 0
	for pos < len(reply) {
		idx := strings.IndexByte(reply[pos:], '{')
		if idx < 0 {
			break
		}
		start := pos + idx

		dec := json.NewDecoder(strings.NewReader(reply[start:]))
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			problems = append(problems, &ParseError{Offset: start, Err: err})
			pos = start + 1
			continue
		}

		if !hasFragmentField(obj) {
			pos = start + 1
			continue
		}

		fragments = append(fragments, Fragment{
			Title:          fieldText(obj["title"]),
			Input:          fieldText(obj["input"]),
			ExpectedOutput: fieldText(obj["expectedOutput"]),
			Code:           fieldText(obj["code"]),
		})
		pos = start + int(dec.InputOffset())
	}

	return fragments, problems
}

func hasFragmentField(obj map[string]json.RawMessage) bool {
	for _, f := range fragmentFields {
		if _, ok := obj[f]; ok {
			return true
		}
	}
	return false
}

// fieldText returns string values unquoted, null or absent as "", and any
// other JSON value in compact form.
func fieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
