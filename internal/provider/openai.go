package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"llmparse/internal/usage"
)

// EnvOpenAIKey holds the OpenAI credential. Its absence is a construction
// error: the client is unusable without it.
const EnvOpenAIKey = "OPENAI_API_KEY"

type openaiChat struct {
	client      *openai.Client
	model       string
	temperature float32
}

func newOpenAIChat(cfg Config) (*openaiChat, error) {
	key := cfg.APIKey
	if key == "" {
		loadDotenv()
		key = os.Getenv(EnvOpenAIKey)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, EnvOpenAIKey)
	}

	conf := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	return &openaiChat{
		client:      openai.NewClientWithConfig(conf),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *openaiChat) complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai returned no choices")
	}
	return Response{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Tokens: usage.Tokens{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}
