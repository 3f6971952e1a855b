package llmparse

import "fmt"

// ConfigError reports an invalid configuration: an unsupported provider, a
// missing credential, an empty instruction. It is always raised at
// construction time, never after.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return "configuration error: " + e.Message
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// ExtractionError reports malformed or undecodable HTML/PDF input.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s: %v", e.Message, e.Cause)
	}
	return "extraction error: " + e.Message
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// InvocationError wraps any failure originating from the remote call, so
// callers never see provider-internal error types. The original cause message
// is preserved.
type InvocationError struct {
	Cause error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation error: %v", e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// ParseError reports a model response that could not be coerced into the
// requested output shape. Raw holds the response text for diagnosis; no
// partial result is ever returned alongside it.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
