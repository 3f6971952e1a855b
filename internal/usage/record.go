// Package usage records per-call token usage to an append-only NDJSON log.
package usage

import "time"

// Kind discriminates usage lines from error lines.
const (
	KindUsage = "usage"
	KindError = "error"
)

// Tokens carries the token counts reported by a provider for one call.
type Tokens struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// Record is one log line. Exactly one is written per remote call, success or
// failure. Error lines omit the token fields; usage lines omit error fields.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Function  string    `json:"function"`
	Model     string    `json:"model"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}
