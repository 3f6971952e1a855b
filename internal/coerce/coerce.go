// Package coerce normalizes raw model output into the requested result type.
package coerce

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Object decodes raw model output as JSON. Models routinely wrap JSON in
// markdown code fences; a bare fence is stripped before decoding, nothing else
// is repaired. Any valid JSON value is returned as decoded (objects become
// map[string]any, arrays []any, scalars their Go equivalents).
func Object(raw string) (any, error) {
	cleaned := stripFence(raw)
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("decode model output as JSON: %w", err)
	}
	return v, nil
}

// Boolean maps raw model output onto a bool. The mapping is total: trimmed,
// lowercased "yes", "true" and "1" are true; any other text that decodes as a
// nonzero JSON number is true; everything else, including the empty string, is
// false.
func Boolean(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(stripFence(raw)))
	switch s {
	case "yes", "true", "1":
		return true
	}
	var n float64
	if err := json.Unmarshal([]byte(s), &n); err == nil {
		return n != 0
	}
	return false
}

// stripFence removes a surrounding markdown code fence (``` or ```json) when
// the whole payload is fenced.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
