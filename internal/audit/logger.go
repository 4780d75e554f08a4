package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/flight-bridge/fcb/internal/auth"
	"github.com/flight-bridge/fcb/internal/config"
	"github.com/flight-bridge/fcb/internal/dji"
)

// Outcomes recorded in AuditEntry.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// CodeSuccess is recorded when a command succeeded.
const CodeSuccess = "SUCCESS"

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	Timestamp time.Time      `json:"ts"`
	User      string         `json:"user"`
	Action    string         `json:"action"`
	RequestID string         `json:"requestId,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Outcome   string         `json:"outcome"`
	Code      string         `json:"code"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latencyMs"`
}

// Logger appends audit entries to a rotating JSONL file.
type Logger struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	log    *slog.Logger
	closed bool
}

// NewLogger opens the audit file described by cfg.
func NewLogger(cfg config.AuditConfig, log *slog.Logger) (*Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("audit file must be set")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	out := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &Logger{out: out, log: log}, nil
}

// LogAction records one command. err nil means success.
func (l *Logger) LogAction(ctx context.Context, action, requestID string, params map[string]any, err error, latency time.Duration) {
	entry := AuditEntry{
		Timestamp: time.Now().UTC(),
		User:      userFromContext(ctx),
		Action:    action,
		RequestID: requestID,
		Params:    params,
		Outcome:   OutcomeSuccess,
		Code:      CodeSuccess,
		LatencyMs: latency.Milliseconds(),
	}
	if err != nil {
		entry.Outcome = OutcomeError
		entry.Code = dji.CodeOf(err).Error()
		entry.Message = err.Error()
	}

	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry AuditEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		l.log.Error("failed to marshal audit entry", "action", entry.Action, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		l.log.Error("failed to write audit entry", "action", entry.Action, "error", err)
	}
}

func userFromContext(ctx context.Context) string {
	if claims := auth.ClaimsFromContext(ctx); claims != nil && claims.Subject != "" {
		return claims.Subject
	}
	return "unknown"
}

// FilePath returns the path of the active audit file.
func (l *Logger) FilePath() string {
	return l.out.Filename
}

// Rotate closes the active file, renames it with a timestamp and opens a
// fresh one.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.out.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	return nil
}

// Close closes the audit file. Entries logged afterwards are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.out.Close()
}
