// Package llmparse turns unstructured text into structured JSON data or a
// boolean classification by delegating the extraction work to a remote LLM
// provider. Factories return single-purpose values closing over a fixed
// prompt/model configuration; every remote call is paced by a process-wide
// rate limiter and accounted in an append-only token-usage log.
package llmparse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"llmparse/internal/coerce"
	"llmparse/internal/prompt"
	"llmparse/internal/provider"
	"llmparse/internal/ratelimit"
	"llmparse/internal/usage"
)

// Supported providers.
const (
	ProviderOpenAI    = provider.OpenAI
	ProviderAnthropic = provider.Anthropic
)

// Limiter admits outbound provider calls. The default is one shared
// process-wide token bucket; tests inject deterministic substitutes.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Config is consumed by exactly one factory call and is immutable afterwards;
// every invocation of the returned value reuses the same configuration.
type Config struct {
	// Instruction tells the model what to extract or which criterion to
	// apply. Required.
	Instruction string

	// Provider is "openai" (default) or "anthropic".
	Provider string

	// Model overrides the provider's default model identifier.
	Model string

	// Temperature is passed through to the provider, range [0, 2].
	Temperature float32

	// LogPath overrides the usage-log destination. Empty falls back to
	// LLM_TOKEN_LOG_FILE, then to llm_token_usage.jsonl.
	LogPath string

	// Timeout bounds a single remote call when the caller's context has no
	// deadline. Zero means the default of 45s.
	Timeout time.Duration

	// Schema, when set on a parser, validates the decoded response as a
	// JSON Schema document. Nil means any valid JSON is accepted.
	Schema map[string]any

	// APIKey overrides the provider's environment credential.
	APIKey string
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string

	// Logger receives structured diagnostics. Nil means slog.Default().
	Logger *slog.Logger
	// Limiter overrides the shared rate limiter.
	Limiter Limiter
}

// core holds everything a closure needs for one call path.
type core struct {
	client *provider.Client
	shape  prompt.Shape
	instr  string
	schema *jsonschema.Schema
}

func newCore(cfg Config, label string, shape prompt.Shape) (*core, error) {
	if strings.TrimSpace(cfg.Instruction) == "" {
		return nil, &ConfigError{Message: "instruction is required"}
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, &ConfigError{Message: fmt.Sprintf("temperature %v outside [0, 2]", cfg.Temperature)}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var gate provider.Gate = cfg.Limiter
	if gate == nil {
		gate = ratelimit.Shared()
	}

	usageLog := usage.NewLogger(usage.ResolvePath(cfg.LogPath), logger)

	client, err := provider.New(provider.Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Label:       label,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
	}, gate, usageLog, logger)
	if err != nil {
		return nil, &ConfigError{Message: "cannot build provider client", Cause: err}
	}

	c := &core{client: client, shape: shape, instr: cfg.Instruction}
	if cfg.Schema != nil {
		compiled, err := compileSchema(cfg.Schema)
		if err != nil {
			return nil, &ConfigError{Message: "invalid output schema", Cause: err}
		}
		c.schema = compiled
	}
	return c, nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return jsonschema.CompileString("config.schema.json", string(b))
}

// invoke runs one rate-limited, logged remote call and returns the raw
// response text.
func (c *core) invoke(ctx context.Context, text string) (string, error) {
	env := prompt.Build(c.instr, text, c.shape)
	resp, err := c.client.Complete(ctx, provider.Request{System: env.System, User: env.User})
	if err != nil {
		return "", &InvocationError{Cause: err}
	}
	return resp.Text, nil
}

// Parser extracts structured data from text. Objects decode to
// map[string]any; any other valid JSON shape the model returns is passed
// through as decoded.
type Parser struct {
	core *core
}

// NewParser builds a structured-extraction parser. Configuration is validated
// eagerly: an unsupported provider or missing OpenAI credential fails here,
// before any network call.
func NewParser(cfg Config) (*Parser, error) {
	return newParserWithLabel(cfg, "parser")
}

// Parse sends text to the configured model and decodes the response as JSON.
func (p *Parser) Parse(ctx context.Context, text string) (any, error) {
	return p.core.parseStructured(ctx, text)
}

func (c *core) parseStructured(ctx context.Context, text string) (any, error) {
	raw, err := c.invoke(ctx, text)
	if err != nil {
		return nil, err
	}
	v, err := coerce.Object(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	if c.schema != nil {
		if err := c.schema.Validate(v); err != nil {
			return nil, &ParseError{Raw: raw, Cause: err}
		}
	}
	return v, nil
}

// Filter classifies text against a yes/no criterion. Given a successful
// remote call the coercion is total: every response maps to true or false,
// never an error.
type Filter struct {
	core *core
}

// NewFilter builds a boolean classifier with the same eager validation as
// NewParser.
func NewFilter(cfg Config) (*Filter, error) {
	c, err := newCore(cfg, "filter", prompt.ShapeBool)
	if err != nil {
		return nil, err
	}
	return &Filter{core: c}, nil
}

// Keep reports whether text satisfies the configured criterion.
func (f *Filter) Keep(ctx context.Context, text string) (bool, error) {
	raw, err := f.core.invoke(ctx, text)
	if err != nil {
		return false, err
	}
	return coerce.Boolean(raw), nil
}

// HTMLParser converts HTML input to plain text before structured extraction.
type HTMLParser struct {
	inner *Parser
}

// NewHTMLParser builds a parser that accepts HTML (UTF-8 or standard base64
// of it) and pipes the extracted text through the standard parse path.
func NewHTMLParser(cfg Config) (*HTMLParser, error) {
	p, err := newParserWithLabel(cfg, "html_parser")
	if err != nil {
		return nil, err
	}
	return &HTMLParser{inner: p}, nil
}

func (p *HTMLParser) Parse(ctx context.Context, html []byte) (any, error) {
	text, err := HTMLToText(html)
	if err != nil {
		return nil, err
	}
	return p.inner.Parse(ctx, text)
}

// PDFParser converts PDF input to plain text before structured extraction.
type PDFParser struct {
	inner *Parser
}

// NewPDFParser builds a parser that accepts PDF input as raw bytes, standard
// base64, or URL-safe base64.
func NewPDFParser(cfg Config) (*PDFParser, error) {
	p, err := newParserWithLabel(cfg, "pdf_parser")
	if err != nil {
		return nil, err
	}
	return &PDFParser{inner: p}, nil
}

func (p *PDFParser) Parse(ctx context.Context, pdf []byte) (any, error) {
	text, err := PDFToText(pdf)
	if err != nil {
		return nil, err
	}
	return p.inner.Parse(ctx, text)
}

func newParserWithLabel(cfg Config, label string) (*Parser, error) {
	c, err := newCore(cfg, label, prompt.ShapeObject)
	if err != nil {
		return nil, err
	}
	return &Parser{core: c}, nil
}

// ExportUsageXLSX renders the usage log as an XLSX workbook: the raw records
// plus per-model token totals. An empty path resolves the same way as
// Config.LogPath.
func ExportUsageXLSX(logPath string) ([]byte, error) {
	return usage.ExportXLSX(usage.ResolvePath(logPath))
}
