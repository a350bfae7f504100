package jsonutils

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedOutput is returned when no parseable JSON object can be
// recovered from a model response.
var ErrMalformedOutput = errors.New("malformed model output")

var (
	reFence         = regexp.MustCompile("(?s)```json(.*?)```")
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractObject recovers a JSON object embedded in free-form LLM output.
//
// Priority:
// 1. Triple-backtick fenced ```json ... ```
// 2. First balanced {...} span, string- and escape-aware
//
// It also strips invisible Unicode characters and trailing commas before
// closing braces/brackets. Returns ErrMalformedOutput if no balanced object
// exists or the candidate does not parse.
func ExtractObject(input string) (json.RawMessage, error) {
	input = stripInvisible(input)

	if match := reFence.FindStringSubmatch(input); len(match) > 1 {
		input = strings.TrimSpace(match[1])
	}

	candidate, ok := firstBalancedObject(input)
	if !ok {
		return nil, ErrMalformedOutput
	}

	candidate = reTrailingComma.ReplaceAllString(candidate, "$1")

	if !json.Valid([]byte(candidate)) {
		return nil, ErrMalformedOutput
	}
	return json.RawMessage(candidate), nil
}

// DecodeObject extracts an embedded JSON object and unmarshals it into v.
func DecodeObject(input string, v interface{}) error {
	raw, err := ExtractObject(input)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrMalformedOutput
	}
	return nil
}

// firstBalancedObject scans for the first '{' and returns the span up to its
// matching '}'. Braces inside JSON strings do not count; backslash escapes
// inside strings are honored.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func stripInvisible(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D' {
			return -1
		}
		return r
	}, s))
}

// ToJSON serializes a Go value to an indented JSON string. Returns an empty
// string if serialization fails.
func ToJSON(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bytes))
}
