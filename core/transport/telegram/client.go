// Package telegram adapts the Telegram Bot API, via telebot, to the poller.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
)

// Client drives getUpdates manually so the cursor stays under the poller's
// control instead of telebot's own long poller.
type Client struct {
	bot *tele.Bot
}

// New builds an offline telebot instance; no request is made until Fetch or Send.
func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	bot, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  httpClient,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return &Client{bot: bot}, nil
}

type updatesResponse struct {
	OK     bool              `json:"ok"`
	Result []json.RawMessage `json:"result"`
}

// Fetch calls getUpdates with offset=cursor. Next is the highest readable
// update id plus one. An update telebot cannot decode is returned as
// KindOther so the rest of the batch still moves the cursor.
// telebot has no context support; the HTTP client timeout bounds the call.
func (c *Client) Fetch(ctx context.Context, cursor *string, limit int) (transport.Batch, error) {
	if err := ctx.Err(); err != nil {
		return transport.Batch{}, err
	}
	params := map[string]any{"limit": limit, "timeout": 0}
	if cursor != nil && *cursor != "" {
		offset, err := strconv.Atoi(*cursor)
		if err != nil {
			return transport.Batch{}, fmt.Errorf("telegram: cursor %q is not an update id: %w", *cursor, err)
		}
		params["offset"] = offset
	}

	data, err := c.bot.Raw("getUpdates", params)
	if err != nil {
		return transport.Batch{}, fmt.Errorf("telegram getUpdates: %w: %w", transport.ErrTransport, err)
	}
	var resp updatesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return transport.Batch{}, fmt.Errorf("telegram getUpdates: %w: %v", transport.ErrShape, err)
	}
	if !resp.OK {
		return transport.Batch{}, fmt.Errorf("telegram getUpdates: %w: ok=false", transport.ErrShape)
	}

	batch := transport.Batch{Updates: make([]transport.Update, 0, len(resp.Result))}
	lastID := -1
	for i, item := range resp.Result {
		var u tele.Update
		if err := json.Unmarshal(item, &u); err != nil {
			var head struct {
				ID *int `json:"update_id"`
			}
			out := transport.Update{Kind: transport.KindOther}
			if json.Unmarshal(item, &head) == nil && head.ID != nil {
				out.MessageID = strconv.Itoa(*head.ID)
				lastID = max(lastID, *head.ID)
			}
			logger.Poll.LogAttrs(ctx, slog.LevelWarn, "poll.update.malformed",
				slog.String("transport", "telegram"),
				slog.Int("index", i),
				slog.String("update_id", out.MessageID),
				slog.String("err", logger.SanitizeError(err)),
			)
			batch.Updates = append(batch.Updates, out)
			continue
		}
		batch.Updates = append(batch.Updates, normalize(u))
		lastID = max(lastID, u.ID)
	}
	if lastID >= 0 {
		next := strconv.Itoa(lastID + 1)
		batch.Next = &next
	}
	return batch, nil
}

// Send delivers text as a plain message.
func (c *Client) Send(ctx context.Context, chatID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	if _, err := c.bot.Send(tele.ChatID(id), text); err != nil {
		return fmt.Errorf("telegram sendMessage: %w: %w", transport.ErrTransport, err)
	}
	return nil
}

func normalize(u tele.Update) transport.Update {
	out := transport.Update{Kind: transport.KindOther, MessageID: strconv.Itoa(u.ID)}
	switch {
	case u.Message != nil:
		m := u.Message
		out.Kind = transport.KindNewMessage
		out.Text = m.Text
		out.MessageID = strconv.Itoa(m.ID)
		if m.Chat != nil {
			out.ChatID = strconv.FormatInt(m.Chat.ID, 10)
		}
		if m.Sender != nil {
			out.SenderID = strconv.FormatInt(m.Sender.ID, 10)
		}
	case u.MyChatMember != nil:
		// A private chat moving back to "member" means the user (re)started the bot.
		cm := u.MyChatMember
		if cm.Chat != nil && cm.Chat.Type == tele.ChatPrivate &&
			cm.NewChatMember != nil && cm.NewChatMember.Role == tele.Member {
			out.Kind = transport.KindBotStarted
			out.ChatID = strconv.FormatInt(cm.Chat.ID, 10)
		}
	}
	return out
}
