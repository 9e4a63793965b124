// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// Decode parses raw model output into T. It tolerates the usual wrapping
// models add around JSON (prose before or after the value, Markdown code
// fences) and returns a SchemaParseError when no JSON value decodes.
//
// Candidates are the well-formed JSON values starting at each '{' or '['
// in the output, scanned left to right. The first one that decodes into T
// wins; values nested inside a rejected candidate are not considered.
func Decode[T any](raw string) (T, error) {
	s := StripFences(raw)
	var lastErr error
	for i := 0; i < len(s); {
		j := strings.IndexAny(s[i:], "{[")
		if j < 0 {
			break
		}
		start := i + j
		dec := json.NewDecoder(strings.NewReader(s[start:]))
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			i = start + 1
			continue
		}
		var out T
		err := json.Unmarshal(value, &out)
		if err == nil {
			return out, nil
		}
		lastErr = err
		i = start + int(dec.InputOffset())
	}
	if lastErr == nil {
		lastErr = errors.New("no JSON value found")
	}
	var zero T
	return zero, &SchemaParseError{Raw: raw, Err: lastErr}
}

// StripFences removes Markdown code fence lines (``` with an optional
// language tag) and trims the result.
func StripFences(s string) string {
	if !strings.Contains(s, "```") {
		return strings.TrimSpace(s)
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
