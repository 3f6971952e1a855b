package usage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// EnvLogFile overrides the log destination when no explicit path is given.
	EnvLogFile = "LLM_TOKEN_LOG_FILE"
	// DefaultFilename is the fallback when neither a path nor the env var is set.
	DefaultFilename = "llm_token_usage.jsonl"
)

// ResolvePath picks the log destination: explicit path, then LLM_TOKEN_LOG_FILE,
// then the default filename in the working directory.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvLogFile); p != "" {
		return p
	}
	return DefaultFilename
}

// Logger appends one JSON record per line to a shared log file. Writes are
// best-effort: failures are reported through slog and discarded so they can
// never mask the result of the call being logged.
type Logger struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
}

// NewLogger prepares a logger for path, creating parent directories as needed.
// Construction never fails; a bad destination degrades to reported-and-dropped
// writes.
func NewLogger(path string, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("usage.log.mkdir_error", "dir", dir, "error", err)
		}
	}
	return &Logger{path: path, log: log}
}

// Path returns the resolved log destination.
func (l *Logger) Path() string { return l.path }

// Usage appends a token-usage line for one successful call.
func (l *Logger) Usage(function, model string, tokens Tokens) {
	l.append(Record{
		Timestamp:        time.Now().UTC(),
		Kind:             KindUsage,
		Function:         function,
		Model:            model,
		PromptTokens:     tokens.Prompt,
		CompletionTokens: tokens.Completion,
		TotalTokens:      tokens.Total,
	})
}

// Failure appends an error line for one failed call.
func (l *Logger) Failure(function, model string, callErr error, errorKind string) {
	msg := ""
	if callErr != nil {
		msg = callErr.Error()
	}
	l.append(Record{
		Timestamp: time.Now().UTC(),
		Kind:      KindError,
		Function:  function,
		Model:     model,
		Error:     msg,
		ErrorKind: errorKind,
	})
}

func (l *Logger) append(rec Record) {
	line, err := json.Marshal(rec)
	if err != nil {
		l.log.Warn("usage.log.encode_error", "error", err)
		return
	}
	line = append(line, '\n')

	// One O_APPEND write per record keeps lines whole even when several
	// processes share the file; the mutex serializes writers in this one.
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.log.Warn("usage.log.open_error", "path", l.path, "error", err)
		return
	}
	if _, err := f.Write(line); err != nil {
		l.log.Warn("usage.log.write_error", "path", l.path, "error", err)
	}
	if err := f.Close(); err != nil {
		l.log.Warn("usage.log.close_error", "path", l.path, "error", err)
	}
}
