// Package dispatch routes inbound updates to the greeting or the variant reply.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/fontbot/core/calendar"
	"github.com/m3rciful/fontbot/core/fonts"
	"github.com/m3rciful/fontbot/core/format"
	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
)

const greetingTemplate = "🗨 خوش آمدید به ربات فونت ساز|زیبا نویس |𝐄𝐑𝐈𝐊 📢\n📅 %s\n🅰️ کلمه مورد نظر را ارسال کنید."

var greetingTriggers = map[string]struct{}{
	"/start": {},
	"start":  {},
}

// Replier sends payloads to a chat in order.
type Replier interface {
	SendAll(ctx context.Context, chatID string, payloads []string) error
}

// Options configures a Dispatcher.
type Options struct {
	// Location renders the greeting clock; nil means UTC.
	Location *time.Location
	// MaxMessageChars bounds each reply payload in runes; 0 disables chunking.
	MaxMessageChars int
	// RateLimit is the minimum gap between handled updates of one chat; 0 disables it.
	RateLimit time.Duration
}

// Dispatcher handles one update at a time.
type Dispatcher struct {
	out     Replier
	opts    Options
	limiter *rateLimiter
	now     func() time.Time
}

// New returns a Dispatcher replying through out.
func New(out Replier, opts Options) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Dispatcher{
		out:     out,
		opts:    opts,
		limiter: newRateLimiter(opts.RateLimit),
		now:     time.Now,
	}
}

// Handle routes u. Ignored updates return nil; send failures are returned
// after every payload was attempted.
func (d *Dispatcher) Handle(ctx context.Context, u transport.Update) error {
	if u.Kind != transport.KindNewMessage && u.Kind != transport.KindBotStarted {
		return nil
	}
	if strings.TrimSpace(u.ChatID) == "" {
		return nil
	}
	text := strings.TrimSpace(u.Text)
	if u.Kind == transport.KindNewMessage && text == "" {
		return nil
	}

	if logger.RIDFrom(ctx) == "" {
		ctx = logger.WithRID(ctx, logger.NewRID())
	}
	ctx = logger.WithUpdateMeta(ctx, string(u.Kind), u.MessageID, u.ChatID)
	log := logger.LoggerOr(ctx, logger.Dispatch)
	if logger.ShouldSampleDebug() {
		log.LogAttrs(ctx, slog.LevelDebug, "update.received",
			slog.String("status", "ok"),
			slog.String("payload", logger.SanitizeLimit(text, 256)),
		)
	}
	if !d.limiter.Allow(u.ChatID, d.now()) {
		log.LogAttrs(ctx, slog.LevelWarn, "dispatch.rate_limited",
			slog.String("status", "rate_limited"),
		)
		return nil
	}

	if u.Kind == transport.KindBotStarted || IsGreeting(text) {
		ctx = logger.WithHandler(ctx, "greeting")
		log.DebugContext(ctx, "dispatch.greeting")
		if err := d.out.SendAll(ctx, u.ChatID, []string{Greeting(d.now(), d.opts.Location)}); err != nil {
			return fmt.Errorf("greeting: %w", err)
		}
		return nil
	}

	ctx = logger.WithHandler(ctx, "variants")
	category, payloads := Reply(text, d.opts.MaxMessageChars)
	if len(payloads) == 0 {
		// Mixed-script input can lose every Persian variant to the Latin filter.
		log.LogAttrs(ctx, slog.LevelWarn, "dispatch.empty",
			slog.String("category", category.String()),
			slog.String("status", "skip"),
		)
		return nil
	}
	log.LogAttrs(ctx, slog.LevelInfo, "dispatch.reply",
		slog.String("category", category.String()),
		slog.Int("chunks", len(payloads)),
	)
	if err := d.out.SendAll(ctx, u.ChatID, payloads); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// IsGreeting reports whether text asks for the welcome message.
func IsGreeting(text string) bool {
	_, ok := greetingTriggers[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Greeting renders the welcome message with the Jalali clock of now in loc.
func Greeting(now time.Time, loc *time.Location) string {
	return fmt.Sprintf(greetingTemplate, calendar.Stamp(now, loc))
}

// Reply runs text through classification, generation, numbering and chunking.
// maxChars of 0 returns a single payload.
func Reply(text string, maxChars int) (fonts.Category, []string) {
	category, variants := fonts.Render(text)
	if len(variants) == 0 {
		return category, nil
	}
	return category, format.Chunk(format.Text(variants), maxChars)
}
