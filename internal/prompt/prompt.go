// Package prompt builds the fixed system/user message envelope sent to a
// provider. The caller's instruction is interpolated verbatim; the input text
// travels untouched as the sole user message.
package prompt

import "strings"

// Shape selects which output contract the system message asks for.
type Shape int

const (
	// ShapeObject asks for a single valid JSON object.
	ShapeObject Shape = iota
	// ShapeBool asks for the bare lowercase literal true or false.
	ShapeBool
)

// Envelope is one fully assembled request. It carries no state between calls;
// Build is invoked fresh for every invocation.
type Envelope struct {
	System string
	User   string
}

// Build assembles the envelope for one call. No truncation is applied to the
// input text; length limits are the provider's concern.
func Build(instruction, text string, shape Shape) Envelope {
	var parts []string
	switch shape {
	case ShapeBool:
		parts = []string{
			"You are a filter that determines if text meets certain criteria.",
			"The output must be strictly the lowercase literal true or false and nothing else.",
			"The criteria are defined by the following request:",
			"",
			instruction,
		}
	default:
		parts = []string{
			"You are a parser that extracts structured data from text.",
			"The output must be a single valid JSON object.",
			"The fields should be extracted according to the following request:",
			"",
			instruction,
		}
	}
	return Envelope{
		System: strings.Join(parts, "\n"),
		User:   text,
	}
}
