package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys are compared lower-cased with "_" and "-" removed, so
// "refresh_token", "refreshToken" and "Refresh-Token" all match.
var sensitiveKeys = map[string]struct{}{
	"password":           {},
	"passwordhash":       {},
	"verifier":           {},
	"proof":              {},
	"clientsessionproof": {},
	"serversessionproof": {},
	"clientephemeral":    {},
	"serverephemeral":    {},
	"secret":             {},
	"twofactorsecret":    {},
	"code":               {},
	"recoverycode":       {},
	"token":              {},
	"accesstoken":        {},
	"refreshtoken":       {},
	"authorization":      {},
	"key":                {},
	"encryptionkey":      {},
	"blob":               {},
}

func isSensitive(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	_, ok := sensitiveKeys[k]
	return ok
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if isSensitive(a.Key) {
		return slog.String(a.Key, redacted)
	}
	return a
}

type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// NewJSON writes JSON lines at level and above to w with sensitive
// attributes redacted.
func NewJSON(w io.Writer, level slog.Level) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})))
}

// Discard drops everything. Used where a logger is required but output is not.
func Discard() *SlogLogger {
	return NewJSON(io.Discard, slog.LevelError)
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
