package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"llmparse/internal/usage"
)

// EnvAnthropicKey holds the Anthropic credential. Unlike OpenAI, a missing
// key is reported at call time by the API, not at construction.
const EnvAnthropicKey = "ANTHROPIC_API_KEY"

// The Messages API requires an explicit output cap.
const anthropicMaxTokens = 4096

type anthropicChat struct {
	client      *anthropic.Client
	model       string
	temperature float32
}

func newAnthropicChat(cfg Config) *anthropicChat {
	key := cfg.APIKey
	if key == "" {
		loadDotenv()
		key = os.Getenv(EnvAnthropicKey)
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicChat{
		client:      anthropic.NewClient(key, opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (c *anthropicChat) complete(ctx context.Context, req Request) (Response, error) {
	temp := c.temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      req.System,
		MaxTokens:   anthropicMaxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.User),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages: %w", err)
	}
	return Response{
		Text: strings.TrimSpace(resp.GetFirstContentText()),
		Tokens: usage.Tokens{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
