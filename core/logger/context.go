package logger

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID      contextKey = "rid"
	ctxCycleID  contextKey = "cycle_id"
	ctxUpdateID contextKey = "update_id"
	ctxChatID   contextKey = "chat_id"
	ctxKind     contextKey = "kind"
	ctxLogger   contextKey = "logger"
	ctxHandler  contextKey = "handler"
)

var (
	telegramTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	rubikaTokenRe   = regexp.MustCompile(`/v3/[A-Za-z0-9]{16,}`)
)

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	return LoggerOr(ctx, L)
}

// LoggerOr returns the logger stored by WithLogger, or fallback.
func LoggerOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return fallback
}

// WithRID attaches a request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// NewRID returns a fresh random correlation id.
func NewRID() string {
	return uuid.NewString()
}

// CompactRID shortens a UUID rid to its first group for readability.
// Other inputs are returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	id, err := uuid.Parse(rid)
	if err != nil {
		return rid
	}
	return id.String()[:8]
}

// WithCycle tags every log line of one poll cycle.
func WithCycle(ctx context.Context, cycleID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCycleID, cycleID)
}

// CycleFrom returns the poll cycle id.
func CycleFrom(ctx context.Context) string {
	return stringValue(ctx, ctxCycleID)
}

// WithUpdateMeta attaches identifiers of the update being handled.
func WithUpdateMeta(ctx context.Context, kind, messageID, chatID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxKind, kind)
	ctx = context.WithValue(ctx, ctxUpdateID, messageID)
	return context.WithValue(ctx, ctxChatID, chatID)
}

// UpdateIDFrom extracts the update/message identifier.
func UpdateIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxUpdateID)
}

// ChatIDFrom extracts the chat identifier.
func ChatIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxChatID)
}

// KindFrom extracts the update kind.
func KindFrom(ctx context.Context) string {
	return stringValue(ctx, ctxKind)
}

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns handler identifier from context if present.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, ctxHandler)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// SanitizeError renders err with bot tokens redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := telegramTokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
	return rubikaTokenRe.ReplaceAllString(msg, "/v3/<redacted>")
}
