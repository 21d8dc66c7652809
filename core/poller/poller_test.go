package poller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/fontbot/core/cursor"
	"github.com/m3rciful/fontbot/core/dispatch"
	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
)

type fetchResult struct {
	batch transport.Batch
	err   error
}

// scriptedFetcher replays results and cancels the run once they are used up.
type scriptedFetcher struct {
	results []fetchResult
	cursors []*string
	cancel  context.CancelFunc
}

func (f *scriptedFetcher) Fetch(ctx context.Context, cur *string, _ int) (transport.Batch, error) {
	f.cursors = append(f.cursors, cur)
	if len(f.results) == 0 {
		f.cancel()
		return transport.Batch{}, ctx.Err()
	}
	r := f.results[0]
	f.results = f.results[1:]
	if len(f.results) == 0 {
		defer f.cancel()
	}
	return r.batch, r.err
}

type recordingHandler struct {
	seen   []transport.Update
	ctxs   []context.Context
	fail   map[string]error
	panics map[string]bool
}

func (h *recordingHandler) Handle(ctx context.Context, u transport.Update) error {
	h.seen = append(h.seen, u)
	h.ctxs = append(h.ctxs, ctx)
	if h.panics[u.MessageID] {
		panic("handler exploded")
	}
	return h.fail[u.MessageID]
}

type memStore struct {
	cur       *string
	loadErr   error
	failSaves int
	saves     []string
}

func (s *memStore) Load(context.Context) (*string, error) {
	if s.loadErr != nil {
		err := s.loadErr
		s.loadErr = nil
		return nil, err
	}
	return s.cur, nil
}

func (s *memStore) Save(_ context.Context, c string) error {
	if s.failSaves > 0 {
		s.failSaves--
		return errors.New("disk full")
	}
	s.saves = append(s.saves, c)
	s.cur = &c
	return nil
}

type harness struct {
	poller  *Poller
	fetcher *scriptedFetcher
	handler *recordingHandler
	store   *memStore
	slept   []time.Duration
}

func newHarness(t *testing.T, store *memStore, results ...fetchResult) (*harness, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := &harness{
		fetcher: &scriptedFetcher{results: results, cancel: cancel},
		handler: &recordingHandler{},
		store:   store,
	}
	h.poller = New(h.fetcher, h.handler, store, Options{Interval: time.Second, ErrorBackoff: 2 * time.Second, Limit: 20})
	h.poller.sleep = func(ctx context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return ctx.Err()
	}
	return h, ctx
}

func ptr(s string) *string { return &s }

func upd(id string) transport.Update {
	return transport.Update{Kind: transport.KindNewMessage, ChatID: "c", Text: "abc", MessageID: id}
}

func ok(next *string, ids ...string) fetchResult {
	b := transport.Batch{Next: next}
	for _, id := range ids {
		b.Updates = append(b.Updates, upd(id))
	}
	return fetchResult{batch: b}
}

func TestFirstRunSkipsBacklogAndPersistsNext(t *testing.T) {
	store := &memStore{}
	h, ctx := newHarness(t, store,
		ok(ptr("N1"), "1", "2", "3"),
		ok(ptr("N2"), "4"),
	)
	require.NoError(t, h.poller.Run(ctx))

	require.Len(t, h.handler.seen, 1)
	assert.Equal(t, "4", h.handler.seen[0].MessageID)
	assert.Equal(t, []string{"N1", "N2"}, store.saves)
	assert.Nil(t, h.fetcher.cursors[0])
	assert.Equal(t, "N1", *h.fetcher.cursors[1])
	assert.Equal(t, StateStopped, h.poller.State())
}

func TestFirstRunFallsBackToLastMessageID(t *testing.T) {
	store := &memStore{}
	h, ctx := newHarness(t, store, ok(nil, "10", "11"))
	require.NoError(t, h.poller.Run(ctx))
	assert.Empty(t, h.handler.seen)
	assert.Equal(t, []string{"11"}, store.saves)
}

func TestFirstRunWithEmptyBatchKeepsCursorAbsent(t *testing.T) {
	store := &memStore{}
	h, ctx := newHarness(t, store, ok(nil), ok(ptr("N1"), "1"))
	require.NoError(t, h.poller.Run(ctx))
	assert.Nil(t, h.fetcher.cursors[1])
	require.Len(t, h.handler.seen, 1)
	assert.Equal(t, []string{"N1"}, store.saves)
}

func TestFirstFetchErrorRetriesWithoutDispatch(t *testing.T) {
	store := &memStore{}
	h, ctx := newHarness(t, store,
		fetchResult{err: fmt.Errorf("x: %w", transport.ErrTransport)},
		ok(ptr("N1"), "1"),
	)
	require.NoError(t, h.poller.Run(ctx))
	assert.Empty(t, h.handler.seen)
	assert.Equal(t, []string{"N1"}, store.saves)
	assert.Equal(t, 2*time.Second, h.slept[0])
}

func TestSteadyPollDispatchesInOrderAndAdvances(t *testing.T) {
	store := &memStore{cur: ptr("C0")}
	h, ctx := newHarness(t, store,
		ok(ptr("C1"), "1", "2"),
		ok(nil, "3", "4"),
		ok(nil),
	)
	require.NoError(t, h.poller.Run(ctx))

	var ids []string
	for _, u := range h.handler.seen {
		ids = append(ids, u.MessageID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	assert.Equal(t, []string{"C1", "4"}, store.saves)
	assert.Equal(t, "C0", *h.fetcher.cursors[0])
	assert.Equal(t, "C1", *h.fetcher.cursors[1])
	assert.Equal(t, "4", *h.fetcher.cursors[2])
	assert.Equal(t, []time.Duration{time.Second, time.Second}, h.slept[:2])
}

func TestFetchErrorsNeverAdvanceCursor(t *testing.T) {
	store := &memStore{cur: ptr("C0")}
	h, ctx := newHarness(t, store,
		fetchResult{err: fmt.Errorf("getUpdates: %w", transport.ErrShape)},
		fetchResult{err: fmt.Errorf("getUpdates: %w", transport.ErrTransport)},
		ok(ptr("C1"), "1"),
	)
	require.NoError(t, h.poller.Run(ctx))

	assert.Equal(t, "C0", *h.fetcher.cursors[0])
	assert.Equal(t, "C0", *h.fetcher.cursors[2])
	assert.Equal(t, []string{"C1"}, store.saves)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.slept[:2])
}

func TestDispatchFailuresAreIsolated(t *testing.T) {
	store := &memStore{cur: ptr("C0")}
	h, ctx := newHarness(t, store, ok(ptr("C1"), "1", "2", "3"))
	h.handler.fail = map[string]error{"1": errors.New("send failed")}
	h.handler.panics = map[string]bool{"2": true}

	require.NoError(t, h.poller.Run(ctx))
	assert.Len(t, h.handler.seen, 3)
	assert.Equal(t, []string{"C1"}, store.saves)
}

func TestPersistFailureKeepsMemoryCursorAndRetries(t *testing.T) {
	store := &memStore{cur: ptr("C0"), failSaves: 1}
	h, ctx := newHarness(t, store, ok(ptr("C1"), "1"), ok(nil))
	require.NoError(t, h.poller.Run(ctx))

	assert.Equal(t, "C1", *h.fetcher.cursors[1])
	assert.Equal(t, []string{"C1"}, store.saves)
	assert.Equal(t, "C1", *h.poller.Cursor())
	assert.Len(t, h.handler.seen, 1)
}

func TestCorruptStateIsVirginStart(t *testing.T) {
	store := &memStore{loadErr: fmt.Errorf("%w: bad json", cursor.ErrCorrupt)}
	h, ctx := newHarness(t, store, ok(ptr("N1"), "1"))
	require.NoError(t, h.poller.Run(ctx))
	assert.Empty(t, h.handler.seen)
	assert.Equal(t, []string{"N1"}, store.saves)
	assert.Equal(t, []time.Duration{time.Second}, h.slept)
}

func TestLoadErrorIsRetried(t *testing.T) {
	store := &memStore{cur: ptr("C0"), loadErr: errors.New("connection refused")}
	h, ctx := newHarness(t, store, ok(ptr("C1"), "1"))
	require.NoError(t, h.poller.Run(ctx))
	assert.Equal(t, 2*time.Second, h.slept[0])
	assert.Equal(t, "C0", *h.fetcher.cursors[0])
	assert.Len(t, h.handler.seen, 1)
}

// A crash after dispatch but before persistence replays the batch from the
// old cursor; the replies must match byte for byte.
func TestRedeliveryAfterCrashIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := cursor.NewFileStore(path)
	require.NoError(t, store.Save(context.Background(), "C0"))

	batch := transport.Batch{
		Next: ptr("C1"),
		Updates: []transport.Update{
			{Kind: transport.KindNewMessage, ChatID: "c", Text: "abc", MessageID: "1"},
			{Kind: transport.KindNewMessage, ChatID: "c", Text: "سلام", MessageID: "2"},
			{Kind: transport.KindNewMessage, ChatID: "c", Text: "42", MessageID: "3"},
		},
	}
	run := func(crash bool) [][]string {
		out := &outbox{}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := &scriptedFetcher{results: []fetchResult{{batch: batch}}, cancel: cancel}
		var st cursor.Store = store
		if crash {
			st = crashingStore{store}
		}
		p := New(f, dispatch.New(out, dispatch.Options{MaxMessageChars: 4000}), st, Options{})
		p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
		require.NoError(t, p.Run(ctx))
		assert.Equal(t, "C0", *f.cursors[0])
		return out.payloads
	}

	first := run(true)
	second := run(false)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)

	cur, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C1", *cur)
}

func TestDispatchContextCarriesCycleLogger(t *testing.T) {
	store := &memStore{cur: ptr("C0")}
	h, ctx := newHarness(t, store, ok(ptr("C1"), "1", "2"))
	require.NoError(t, h.poller.Run(ctx))

	require.Len(t, h.handler.ctxs, 2)
	first := h.handler.ctxs[0]
	assert.NotEmpty(t, logger.CycleFrom(first))
	assert.Equal(t, logger.CycleFrom(first), logger.CycleFrom(h.handler.ctxs[1]))
	assert.NotNil(t, logger.LoggerOr(first, nil))
	assert.NoError(t, first.Err())
}

type crashingStore struct{ cursor.Store }

func (crashingStore) Save(context.Context, string) error { return errors.New("process killed") }

type outbox struct{ payloads [][]string }

func (o *outbox) SendAll(_ context.Context, _ string, payloads []string) error {
	o.payloads = append(o.payloads, payloads)
	return nil
}

func TestStopInterruptsSleep(t *testing.T) {
	store := &memStore{cur: ptr("C0")}
	ctx, cancel := context.WithCancel(context.Background())
	f := fetcherFunc(func(context.Context, *string, int) (transport.Batch, error) {
		return transport.Batch{}, nil
	})
	p := New(f, &recordingHandler{}, store, Options{Interval: time.Hour})
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

type fetcherFunc func(ctx context.Context, cur *string, limit int) (transport.Batch, error)

func (f fetcherFunc) Fetch(ctx context.Context, cur *string, limit int) (transport.Batch, error) {
	return f(ctx, cur, limit)
}
