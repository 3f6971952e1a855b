// Package provider constructs rate-limited, usage-logged clients for the
// supported remote model providers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"llmparse/internal/usage"
)

// Supported provider names.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// Default model identifiers per provider.
const (
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
)

// DefaultTimeout bounds a single remote call when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 45 * time.Second

// Construction failures surfaced to the factory layer.
var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingAPIKey       = errors.New("missing API key")
)

// Request is one fully assembled prompt envelope.
type Request struct {
	System string
	User   string
}

// Response is the provider's reply plus its token accounting.
type Response struct {
	Text   string
	Tokens usage.Tokens
}

// chat is the provider-specific transport behind Client.
type chat interface {
	complete(ctx context.Context, req Request) (Response, error)
}

// Gate admits an outbound call; implementations block until admission.
type Gate interface {
	Wait(ctx context.Context) error
}

// Config selects and tunes the underlying provider transport.
type Config struct {
	Provider    string
	Model       string
	Temperature float32

	// Label names the calling function in usage records.
	Label string

	// APIKey overrides the provider's environment variable.
	APIKey string
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	// Timeout is the per-call safety margin; see DefaultTimeout.
	Timeout time.Duration
}

var dotenvOnce sync.Once

// loadDotenv pulls a .env file into the environment once, before the first
// credential lookup.
func loadDotenv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Normalize fills provider and model defaults in place.
func (c *Config) Normalize() {
	if c.Provider == "" {
		c.Provider = OpenAI
	}
	if c.Model == "" {
		switch c.Provider {
		case Anthropic:
			c.Model = DefaultAnthropicModel
		default:
			c.Model = DefaultOpenAIModel
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

func newChat(cfg Config) (chat, error) {
	switch cfg.Provider {
	case OpenAI:
		return newOpenAIChat(cfg)
	case Anthropic:
		return newAnthropicChat(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
