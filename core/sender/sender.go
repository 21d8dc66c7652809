// Package sender delivers reply payloads in order with a fixed pacing delay.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/fontbot/core/logger"
)

// MessageSender is the outbound half of a transport client.
type MessageSender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Options controls pacing between consecutive sends.
type Options struct {
	Pacing time.Duration
}

// Sender sends synchronously from the poll goroutine; it is not safe for
// concurrent use.
type Sender struct {
	client MessageSender
	opts   Options
	last   time.Time
	errs   atomic.Uint64

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New returns a Sender writing through client.
func New(client MessageSender, opts Options) *Sender {
	if opts.Pacing < 0 {
		opts.Pacing = 0
	}
	return &Sender{client: client, opts: opts, now: time.Now, sleep: sleepCtx}
}

// ErrorCount returns the number of failed sends.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Send delivers one payload as is.
func (s *Sender) Send(ctx context.Context, chatID, text string) error {
	return s.SendAll(ctx, chatID, []string{text})
}

// SendAll delivers payloads in order. A failed payload is logged and the
// rest are still attempted; nothing is retried.
func (s *Sender) SendAll(ctx context.Context, chatID string, payloads []string) error {
	var errs []error
	for i, text := range payloads {
		if text == "" {
			continue
		}
		if err := s.pace(ctx); err != nil {
			return err
		}
		start := time.Now()
		err := s.client.Send(ctx, chatID, text)
		s.last = s.now()
		if err != nil {
			s.errs.Add(1)
			logSendFailure(ctx, chatID, i, len(payloads), err, time.Since(start))
			errs = append(errs, fmt.Errorf("payload %d/%d: %w", i+1, len(payloads), err))
			continue
		}
		if logger.ShouldSampleDebug() {
			logger.Send.DebugContext(ctx, "send.success",
				slog.String("chat_id", chatID),
				slog.Int("chunk", i+1),
				slog.Int("chunks", len(payloads)),
				slog.Duration("elapsed", time.Since(start)),
			)
		}
	}
	return errors.Join(errs...)
}

func (s *Sender) pace(ctx context.Context) error {
	if s.last.IsZero() || s.opts.Pacing <= 0 {
		return nil
	}
	wait := s.opts.Pacing - s.now().Sub(s.last)
	if wait <= 0 {
		return nil
	}
	return s.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func logSendFailure(ctx context.Context, chatID string, idx, total int, err error, elapsed time.Duration) {
	logger.Send.LogAttrs(ctx, slog.LevelError, "send.fail",
		slog.String("chat_id", chatID),
		slog.Int("chunk", idx+1),
		slog.Int("chunks", total),
		slog.String("err", logger.SanitizeError(err)),
		slog.String("error_kind", classifyError(err)),
		slog.Duration("elapsed", elapsed),
	)
}
