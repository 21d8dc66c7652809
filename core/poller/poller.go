// Package poller drives the fetch, dispatch and persist loop over a resumable cursor.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/fontbot/core/cursor"
	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
)

// Fetcher returns the updates after cursor.
type Fetcher interface {
	Fetch(ctx context.Context, cursor *string, limit int) (transport.Batch, error)
}

// Handler processes one update.
type Handler interface {
	Handle(ctx context.Context, u transport.Update) error
}

// State is the poller's lifecycle stage.
type State int

const (
	StateInit State = iota
	StateFirstFetch
	StateSteady
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFirstFetch:
		return "first_fetch"
	case StateSteady:
		return "steady"
	default:
		return "stopped"
	}
}

// Options tunes the loop.
type Options struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	Limit        int
}

// Poller owns the cursor. One cycle (fetch, dispatch the batch, persist,
// sleep) completes before the next begins.
type Poller struct {
	fetcher Fetcher
	handler Handler
	store   cursor.Store
	opts    Options

	cursor *string
	dirty  bool
	state  State

	sleep func(context.Context, time.Duration) error
	newID func() string
}

// New wires a poller. Zero options fall back to 1.2s interval, 2s backoff
// and a batch limit of 20.
func New(f Fetcher, h Handler, store cursor.Store, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 1200 * time.Millisecond
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 2 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	return &Poller{
		fetcher: f,
		handler: h,
		store:   store,
		opts:    opts,
		sleep:   sleepCtx,
		newID:   uuid.NewString,
	}
}

// State returns the current lifecycle stage.
func (p *Poller) State() State { return p.state }

// Cursor returns the in-memory cursor.
func (p *Poller) Cursor() *string { return p.cursor }

// Run loads the cursor and polls until ctx is cancelled. The batch in
// flight when ctx ends is still dispatched and persisted.
func (p *Poller) Run(ctx context.Context) error {
	defer func() { p.state = StateStopped }()

	if err := p.init(ctx); err != nil {
		return nil
	}
	logger.Poll.LogAttrs(ctx, slog.LevelInfo, "poll.start",
		slog.String("state", p.state.String()),
		slog.String("cursor", deref(p.cursor)),
		slog.Int("limit", p.opts.Limit),
	)

	for ctx.Err() == nil {
		cycleCtx := logger.WithCycle(ctx, p.newID())
		wait := p.cycle(cycleCtx)
		if err := p.sleep(ctx, wait); err != nil {
			break
		}
	}
	logger.Poll.LogAttrs(context.Background(), slog.LevelInfo, "poll.stop",
		slog.String("cursor", deref(p.cursor)),
	)
	return nil
}

// init loads the stored cursor. A corrupt record is a virgin start; other
// load errors are retried so a transient outage does not skip the backlog.
func (p *Poller) init(ctx context.Context) error {
	p.state = StateInit
	for {
		cur, err := p.store.Load(ctx)
		switch {
		case err == nil:
			p.cursor = cur
		case errors.Is(err, cursor.ErrCorrupt):
			logger.Store.LogAttrs(ctx, slog.LevelWarn, "cursor.load.corrupt",
				slog.String("err", logger.SanitizeError(err)),
			)
			p.cursor = nil
		default:
			logger.Store.LogAttrs(ctx, slog.LevelError, "cursor.load.fail",
				slog.String("err", logger.SanitizeError(err)),
				slog.Duration("backoff", p.opts.ErrorBackoff),
			)
			if serr := p.sleep(ctx, p.opts.ErrorBackoff); serr != nil {
				return serr
			}
			continue
		}
		break
	}
	if p.cursor == nil {
		p.state = StateFirstFetch
	} else {
		p.state = StateSteady
	}
	return nil
}

// cycle runs one fetch and returns how long to sleep before the next.
func (p *Poller) cycle(ctx context.Context) time.Duration {
	start := time.Now()
	batch, err := p.fetcher.Fetch(ctx, p.cursor, p.opts.Limit)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		logger.Poll.LogAttrs(ctx, slog.LevelWarn, "poll.fetch.fail",
			slog.String("state", p.state.String()),
			slog.String("cursor", deref(p.cursor)),
			slog.String("err", logger.SanitizeError(err)),
			slog.String("error_kind", transport.ErrorKind(err)),
			slog.Duration("backoff", p.opts.ErrorBackoff),
		)
		return p.opts.ErrorBackoff
	}

	if p.state == StateFirstFetch {
		p.advance(batch)
		p.persist(ctx)
		p.state = StateSteady
		logger.Poll.LogAttrs(ctx, slog.LevelInfo, "poll.first_fetch",
			slog.Int("skipped", len(batch.Updates)),
			slog.String("cursor", deref(p.cursor)),
		)
		return p.opts.Interval
	}

	// Sends of this batch finish even if a stop arrives mid-batch.
	dispatchCtx := logger.WithLogger(context.WithoutCancel(ctx),
		logger.Dispatch.With(slog.Int("batch_size", len(batch.Updates))))
	failed := 0
	for _, u := range batch.Updates {
		if err := p.dispatch(dispatchCtx, u); err != nil {
			failed++
			logger.FromContext(dispatchCtx).LogAttrs(dispatchCtx, slog.LevelError, "dispatch.fail",
				slog.String("kind", string(u.Kind)),
				slog.String("update_id", u.MessageID),
				slog.String("chat_id", u.ChatID),
				slog.String("err", logger.SanitizeError(err)),
				slog.String("error_kind", transport.ErrorKind(err)),
			)
		}
	}

	prev := deref(p.cursor)
	p.advance(batch)
	p.persist(dispatchCtx)

	if len(batch.Updates) > 0 {
		logger.Poll.LogAttrs(ctx, slog.LevelInfo, "poll.cursor.advance",
			slog.String("prev_cursor", prev),
			slog.String("cursor", deref(p.cursor)),
			slog.Int("updates", len(batch.Updates)),
			slog.Int("failed", failed),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return p.opts.Interval
}

// advance moves the cursor to the batch's next position, falling back to
// the last update's identifier. Without either the cursor stays put.
func (p *Poller) advance(batch transport.Batch) {
	var next string
	switch {
	case batch.Next != nil && *batch.Next != "":
		next = *batch.Next
	case len(batch.Updates) > 0:
		next = batch.Updates[len(batch.Updates)-1].MessageID
	}
	if next == "" {
		return
	}
	if p.cursor == nil || *p.cursor != next {
		p.cursor = &next
		p.dirty = true
	}
}

// persist writes a changed cursor. On failure the in-memory cursor is kept
// and the write is retried after the next batch.
func (p *Poller) persist(ctx context.Context) {
	if !p.dirty || p.cursor == nil {
		return
	}
	if err := p.store.Save(ctx, *p.cursor); err != nil {
		logger.Store.LogAttrs(ctx, slog.LevelError, "cursor.save.fail",
			slog.String("cursor", *p.cursor),
			slog.String("err", logger.SanitizeError(err)),
		)
		return
	}
	p.dirty = false
}

func (p *Poller) dispatch(ctx context.Context, u transport.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.LoggerOr(ctx, logger.Dispatch).LogAttrs(ctx, slog.LevelError, "dispatch.panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.handler.Handle(ctx, u)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
