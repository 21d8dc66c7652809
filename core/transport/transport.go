// Package transport defines the messaging API boundary the poller and sender use.
package transport

import (
	"context"
	"errors"
)

// Kind classifies an inbound update.
type Kind string

const (
	// KindNewMessage is a text message sent to the bot.
	KindNewMessage Kind = "NewMessage"
	// KindBotStarted is emitted when a user opens or restarts the bot.
	KindBotStarted Kind = "BotStarted"
	// KindOther covers every update the bot ignores.
	KindOther Kind = "Other"
)

var (
	// ErrTransport marks network failures, timeouts and non-JSON responses.
	ErrTransport = errors.New("transport error")
	// ErrShape marks responses that parse but lack the expected fields.
	ErrShape = errors.New("unexpected response shape")
)

// Update is one inbound event, normalized across APIs.
type Update struct {
	Kind   Kind
	ChatID string
	Text   string
	// MessageID doubles as the cursor fallback when a batch reports no next cursor.
	MessageID string
	SenderID  string
}

// Batch is the result of one fetch.
type Batch struct {
	Updates []Update
	// Next is the cursor reported by the API, nil when absent.
	Next *string
}

// Client polls updates and sends replies over one messaging API.
type Client interface {
	Fetch(ctx context.Context, cursor *string, limit int) (Batch, error)
	Send(ctx context.Context, chatID, text string) error
}

// ErrorKind names the error class for logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrShape):
		return "shape"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return "unknown"
}
