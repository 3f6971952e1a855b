package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"llmparse/internal/usage"
)

// Client is a configured remote-model client. Every Complete passes through
// the shared gate and emits exactly one usage or error record, success or
// failure included.
type Client struct {
	cfg      Config
	chat     chat
	gate     Gate
	usageLog *usage.Logger
	log      *slog.Logger
}

// New builds a Client for cfg.Provider. Unknown providers and a missing
// OpenAI credential fail here, before any network traffic.
func New(cfg Config, gate Gate, usageLog *usage.Logger, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg.Normalize()

	inner, err := newChat(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:      cfg,
		chat:     inner,
		gate:     gate,
		usageLog: usageLog,
		log:      log,
	}, nil
}

// Model returns the resolved model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Complete sends one prompt envelope to the provider.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	reqID := uuid.New().String()
	start := time.Now()

	if _, ok := ctx.Deadline(); !ok && c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.log.Info("llm.invoke.start",
		"req_id", reqID,
		"provider", c.cfg.Provider,
		"model", c.cfg.Model,
		"label", c.cfg.Label,
		"text_len", len(req.User),
	)

	if err := c.gate.Wait(ctx); err != nil {
		c.log.Error("llm.invoke.rate_limit_wait_error",
			"req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		c.usageLog.Failure(c.cfg.Label, c.cfg.Model, err, "rate_limit")
		return Response{}, err
	}

	resp, err := c.chat.complete(ctx, req)
	if err != nil {
		c.log.Error("llm.invoke.error",
			"req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		c.usageLog.Failure(c.cfg.Label, c.cfg.Model, err, "invocation")
		return Response{}, err
	}

	c.usageLog.Usage(c.cfg.Label, c.cfg.Model, resp.Tokens)
	c.log.Info("llm.invoke.ok",
		"req_id", reqID,
		"prompt_tokens", resp.Tokens.Prompt,
		"completion_tokens", resp.Tokens.Completion,
		"total_tokens", resp.Tokens.Total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
