package llmparse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"llmparse/internal/usage"
)

const sampleEmail = `From: john@example.com
Date: 2024-03-15
Subject: Meeting Tomorrow
Content: Let's discuss the project tomorrow at 2 PM.
`

// fakeLLM serves the OpenAI chat-completions shape with a fixed response and
// records the prompts it receives.
type fakeLLM struct {
	srv *httptest.Server

	mu         sync.Mutex
	lastSystem string
	lastUser   string
	calls      int
}

func newFakeLLM(t *testing.T, content string) *fakeLLM {
	t.Helper()
	f := &fakeLLM{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.calls++
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				f.lastSystem = m.Content
			case "user":
				f.lastUser = m.Content
			}
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLLM) config(t *testing.T, instruction string) Config {
	t.Helper()
	return Config{
		Instruction: instruction,
		APIKey:      "test-key",
		BaseURL:     f.srv.URL + "/v1",
		LogPath:     filepath.Join(t.TempDir(), "usage.jsonl"),
	}
}

func TestNewParserRejectsUnsupportedProvider(t *testing.T) {
	_, err := NewParser(Config{Instruction: "Extract things", Provider: "cohere"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
}

func TestNewFilterRejectsUnsupportedProvider(t *testing.T) {
	_, err := NewFilter(Config{Instruction: "Is it urgent?", Provider: "cohere"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
}

func TestNewParserRequiresInstruction(t *testing.T) {
	_, err := NewParser(Config{APIKey: "k"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
}

func TestNewParserRejectsOutOfRangeTemperature(t *testing.T) {
	_, err := NewParser(Config{Instruction: "x", APIKey: "k", Temperature: 2.5})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
}

func TestNewParserRequiresOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewParser(Config{Instruction: "Extract things"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
}

func TestParserEndToEnd(t *testing.T) {
	fake := newFakeLLM(t, `{"sender":"john@example.com","date":"2024-03-15","subject":"Meeting Tomorrow"}`)
	p, err := NewParser(fake.config(t, "Extract sender, date, subject"))
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	v, err := p.Parse(context.Background(), sampleEmail)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("want object, got %T", v)
	}
	if m["sender"] != "john@example.com" || m["date"] != "2024-03-15" || m["subject"] != "Meeting Tomorrow" {
		t.Fatalf("unexpected fields: %+v", m)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !strings.Contains(fake.lastSystem, "Extract sender, date, subject") {
		t.Fatalf("instruction missing from system message: %q", fake.lastSystem)
	}
	if fake.lastUser != sampleEmail {
		t.Fatalf("input must be forwarded verbatim: %q", fake.lastUser)
	}
}

func TestParserNonJSONResponse(t *testing.T) {
	fake := newFakeLLM(t, "I could not find any fields, sorry.")
	p, err := NewParser(fake.config(t, "Extract fields"))
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	_, err = p.Parse(context.Background(), "text")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if parseErr.Raw != "I could not find any fields, sorry." {
		t.Fatalf("raw response not preserved: %q", parseErr.Raw)
	}
}

func TestParserProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	}))
	defer srv.Close()

	p, err := NewParser(Config{
		Instruction: "Extract fields",
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		LogPath:     filepath.Join(t.TempDir(), "usage.jsonl"),
	})
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	_, err = p.Parse(context.Background(), "text")
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("want *InvocationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("cause message must be preserved: %v", err)
	}
}

func TestFilterEndToEnd(t *testing.T) {
	cases := []struct {
		response string
		want     bool
	}{
		{"true", true},
		{"YES", true},
		{" True ", true},
		{"no", false},
		{"", false},
	}
	for _, tc := range cases {
		fake := newFakeLLM(t, tc.response)
		f, err := NewFilter(fake.config(t, "Is this email urgent?"))
		if err != nil {
			t.Fatalf("new filter: %v", err)
		}
		got, err := f.Keep(context.Background(), sampleEmail)
		if err != nil {
			t.Fatalf("keep(%q): %v", tc.response, err)
		}
		if got != tc.want {
			t.Fatalf("keep with response %q = %v, want %v", tc.response, got, tc.want)
		}
	}
}

func TestParserSchemaValidation(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"sender"},
		"properties": map[string]any{
			"sender": map[string]any{"type": "string"},
		},
	}

	fake := newFakeLLM(t, `{"sender":42}`)
	cfg := fake.config(t, "Extract sender")
	cfg.Schema = schema
	p, err := NewParser(cfg)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	_, err = p.Parse(context.Background(), "text")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("schema violation must be *ParseError, got %v", err)
	}

	ok := newFakeLLM(t, `{"sender":"john@example.com"}`)
	cfg = ok.config(t, "Extract sender")
	cfg.Schema = schema
	p, err = NewParser(cfg)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	if _, err := p.Parse(context.Background(), "text"); err != nil {
		t.Fatalf("valid response must pass schema: %v", err)
	}
}

func TestHTMLParserEndToEnd(t *testing.T) {
	fake := newFakeLLM(t, `{"link":"https://example.com"}`)
	p, err := NewHTMLParser(fake.config(t, "Extract the first link"))
	if err != nil {
		t.Fatalf("new html parser: %v", err)
	}

	html := `<p>See <a href="https://example.com">the docs</a> for details.</p>`
	if _, err := p.Parse(context.Background(), []byte(html)); err != nil {
		t.Fatalf("parse: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !strings.Contains(fake.lastUser, "[the docs](https://example.com)") {
		t.Fatalf("html should reach the model as markdown text: %q", fake.lastUser)
	}
}

func TestHTMLParserSurfacesExtractionError(t *testing.T) {
	fake := newFakeLLM(t, `{}`)
	p, err := NewHTMLParser(fake.config(t, "Extract something"))
	if err != nil {
		t.Fatalf("new html parser: %v", err)
	}

	_, err = p.Parse(context.Background(), []byte{0xff, 0xfe, '<'})
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("want *ExtractionError, got %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.calls != 0 {
		t.Fatalf("no remote call may happen when extraction fails, got %d", fake.calls)
	}
}

func TestPDFParserRejectsGarbage(t *testing.T) {
	fake := newFakeLLM(t, `{}`)
	p, err := NewPDFParser(fake.config(t, "Extract something"))
	if err != nil {
		t.Fatalf("new pdf parser: %v", err)
	}
	_, err = p.Parse(context.Background(), []byte("not a pdf at all!!"))
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("want *ExtractionError, got %v", err)
	}
}

func TestConcurrentCallsProduceOneLogLineEach(t *testing.T) {
	fake := newFakeLLM(t, `{"ok":true}`)
	cfg := fake.config(t, "Extract ok")
	p, err := NewParser(cfg)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Parse(context.Background(), "text"); err != nil {
				t.Errorf("parse: %v", err)
			}
		}()
	}
	wg.Wait()

	recs, skipped, err := usage.ReadRecords(cfg.LogPath)
	if err != nil {
		t.Fatalf("read usage log: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("%d malformed lines in log", skipped)
	}
	if len(recs) != n {
		t.Fatalf("want %d records, got %d", n, len(recs))
	}
	for _, r := range recs {
		if r.Kind != usage.KindUsage || r.Function != "parser" {
			t.Fatalf("unexpected record: %+v", r)
		}
	}
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	l.waits++
	l.mu.Unlock()
	return nil
}

func TestInjectedLimiterGatesEveryCall(t *testing.T) {
	fake := newFakeLLM(t, `{"ok":true}`)
	cfg := fake.config(t, "Extract ok")
	lim := &countingLimiter{}
	cfg.Limiter = lim

	p, err := NewParser(cfg)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Parse(context.Background(), "text"); err != nil {
			t.Fatalf("parse %d: %v", i, err)
		}
	}
	lim.mu.Lock()
	defer lim.mu.Unlock()
	if lim.waits != 3 {
		t.Fatalf("limiter must gate every call, waits=%d", lim.waits)
	}
}
