package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
)

type outbox struct {
	chats    []string
	payloads [][]string
	err      error
}

func (o *outbox) SendAll(_ context.Context, chatID string, payloads []string) error {
	o.chats = append(o.chats, chatID)
	o.payloads = append(o.payloads, payloads)
	return o.err
}

var fixedNow = time.Date(2024, 3, 19, 21, 0, 0, 0, time.UTC)

func newTestDispatcher(opts Options) (*Dispatcher, *outbox) {
	out := &outbox{}
	d := New(out, opts)
	d.now = func() time.Time { return fixedNow }
	return d, out
}

func msg(chat, text string) transport.Update {
	return transport.Update{Kind: transport.KindNewMessage, ChatID: chat, Text: text, MessageID: "1"}
}

func TestHandleIgnoresUpdates(t *testing.T) {
	d, out := newTestDispatcher(Options{})
	ctx := context.Background()
	for _, u := range []transport.Update{
		{Kind: transport.KindOther, ChatID: "c", Text: "abc"},
		{Kind: transport.KindNewMessage, Text: "abc"},
		{Kind: transport.KindBotStarted, ChatID: "  "},
		msg("c", ""),
		msg("c", " \n\t "),
	} {
		require.NoError(t, d.Handle(ctx, u))
	}
	assert.Empty(t, out.chats)
}

func TestHandleVariantReply(t *testing.T) {
	d, out := newTestDispatcher(Options{MaxMessageChars: 4000})
	require.NoError(t, d.Handle(context.Background(), msg("c1", "  abc ")))

	require.Equal(t, []string{"c1"}, out.chats)
	require.Len(t, out.payloads[0], 1)
	lines := strings.Split(out.payloads[0][0], "\n")
	assert.Len(t, lines, 40)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, strconv.Itoa(i+1)+" "), line)
	}
	assert.Contains(t, lines, "2 ABC")
	joined := out.payloads[0][0]
	for _, want := range []string{" ᴀʙᴄ", " ａｂｃ", " ★ abc ★"} {
		assert.Contains(t, joined, want)
	}
}

func TestHandleChunksLongReplies(t *testing.T) {
	d, out := newTestDispatcher(Options{MaxMessageChars: 200})
	require.NoError(t, d.Handle(context.Background(), msg("c1", "hello world")))
	require.Len(t, out.payloads, 1)
	assert.Greater(t, len(out.payloads[0]), 1)
	_, whole := Reply("hello world", 0)
	assert.Equal(t, whole[0], strings.Join(out.payloads[0], "\n"))
}

var stampRe = regexp.MustCompile(`📅 \d{4}/\d{2}/\d{2} \d{2}:\d{2}\n`)

func TestHandleGreeting(t *testing.T) {
	tehran, err := time.LoadLocation("Asia/Tehran")
	require.NoError(t, err)
	d, out := newTestDispatcher(Options{Location: tehran})

	require.NoError(t, d.Handle(context.Background(), msg("c1", "/start")))
	require.NoError(t, d.Handle(context.Background(), msg("c2", " START ")))
	require.NoError(t, d.Handle(context.Background(), transport.Update{Kind: transport.KindBotStarted, ChatID: "c3"}))

	require.Len(t, out.payloads, 3)
	for _, p := range out.payloads {
		require.Len(t, p, 1)
		assert.Regexp(t, stampRe, p[0])
		assert.Contains(t, p[0], "1403/01/01 00:30")
		assert.NotContains(t, p[0], "\n1 ")
	}
}

func TestGreetingTriggers(t *testing.T) {
	assert.True(t, IsGreeting("/Start"))
	assert.True(t, IsGreeting("start"))
	assert.False(t, IsGreeting("/start now"))
	assert.False(t, IsGreeting("starts"))
}

func TestHandleEmptyPersianSetSendsNothing(t *testing.T) {
	d, out := newTestDispatcher(Options{})
	require.NoError(t, d.Handle(context.Background(), msg("c1", "hello سلام")))
	assert.Empty(t, out.chats)
}

func TestHandleReturnsSendError(t *testing.T) {
	d, out := newTestDispatcher(Options{})
	out.err = transport.ErrTransport
	err := d.Handle(context.Background(), msg("c1", "123"))
	assert.True(t, errors.Is(err, transport.ErrTransport))
}

func TestHandleRateLimitsPerChat(t *testing.T) {
	d, out := newTestDispatcher(Options{RateLimit: time.Second})
	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, msg("c1", "1")))
	require.NoError(t, d.Handle(ctx, msg("c1", "2")))
	require.NoError(t, d.Handle(ctx, msg("c2", "3")))

	d.now = func() time.Time { return fixedNow.Add(time.Second) }
	require.NoError(t, d.Handle(ctx, msg("c1", "4")))

	assert.Equal(t, []string{"c1", "c2", "c1"}, out.chats)
}

func TestHandleLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := logger.WithLogger(context.Background(), log.With("batch_size", 1))

	d, _ := newTestDispatcher(Options{})
	require.NoError(t, d.Handle(ctx, msg("c1", "abc")))

	line := buf.String()
	assert.Contains(t, line, `"msg":"dispatch.reply"`)
	assert.Contains(t, line, `"category":"latin"`)
	assert.Contains(t, line, `"batch_size":1`)
}

func TestReplyIsByteIdenticalOnRedelivery(t *testing.T) {
	for _, text := range []string{"abc", "سلام دنیا", "2024"} {
		c1, p1 := Reply(text, 300)
		c2, p2 := Reply(text, 300)
		assert.Equal(t, c1, c2)
		assert.Equal(t, p1, p2)
	}
}
