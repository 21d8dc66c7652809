package rubika

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
)

// flexString accepts JSON strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type rawMessage struct {
	MessageID flexString `json:"message_id"`
	Text      string     `json:"text"`
	SenderID  flexString `json:"sender_id"`
}

type rawUpdate struct {
	Type       string      `json:"type"`
	ChatID     flexString  `json:"chat_id"`
	NewMessage *rawMessage `json:"new_message"`
	MessageID  flexString  `json:"message_id"`
}

// updatesData keeps each field raw so one bad value cannot hide the others.
type updatesData struct {
	Updates      json.RawMessage `json:"updates"`
	NextOffsetID json.RawMessage `json:"next_offset_id"`
	NextStartID  json.RawMessage `json:"next_start_id"`
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

// DecodeUpdates normalizes both getUpdates envelopes:
// {"status":"OK","data":{...}} and {"ok":true,"result":[...]}.
//
// Updates are decoded one by one. An update that does not decode becomes
// KindOther, keeping its message_id when readable, so the batch and its
// next cursor survive.
func DecodeUpdates(ctx context.Context, body []byte) (transport.Batch, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return transport.Batch{}, fmt.Errorf("%w: invalid JSON: %v", transport.ErrTransport, err)
	}

	var data updatesData
	switch {
	case env.Status == "OK" && len(env.Data) > 0:
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return transport.Batch{}, fmt.Errorf("%w: data: %v", transport.ErrShape, err)
		}
	case env.OK || hasValue(env.Result):
		data.Updates = env.Result
	default:
		return transport.Batch{}, fmt.Errorf("%w: status %q", transport.ErrShape, env.Status)
	}

	var batch transport.Batch
	next := flexOf(data.NextOffsetID)
	if next == "" {
		next = flexOf(data.NextStartID)
	}
	if next != "" {
		batch.Next = &next
	}

	var items []json.RawMessage
	if hasValue(data.Updates) {
		if err := json.Unmarshal(data.Updates, &items); err != nil {
			if batch.Next == nil {
				return transport.Batch{}, fmt.Errorf("%w: updates: %v", transport.ErrShape, err)
			}
			logger.Poll.LogAttrs(ctx, slog.LevelWarn, "poll.updates.malformed",
				slog.String("transport", "rubika"),
				slog.String("cursor", next),
				slog.String("err", logger.SanitizeError(err)),
			)
		}
	}

	batch.Updates = make([]transport.Update, 0, len(items))
	for i, item := range items {
		var raw rawUpdate
		if err := json.Unmarshal(item, &raw); err != nil {
			u := transport.Update{Kind: transport.KindOther, MessageID: salvageMessageID(item)}
			logger.Poll.LogAttrs(ctx, slog.LevelWarn, "poll.update.malformed",
				slog.String("transport", "rubika"),
				slog.Int("index", i),
				slog.String("update_id", u.MessageID),
				slog.String("err", logger.SanitizeError(err)),
			)
			batch.Updates = append(batch.Updates, u)
			continue
		}
		batch.Updates = append(batch.Updates, raw.normalize())
	}
	return batch, nil
}

// salvageMessageID reads new_message.message_id, then message_id, from an
// update whose other fields may be unusable.
func salvageMessageID(item json.RawMessage) string {
	var top map[string]json.RawMessage
	if json.Unmarshal(item, &top) != nil {
		return ""
	}
	var msg map[string]json.RawMessage
	if json.Unmarshal(top["new_message"], &msg) == nil {
		if id := flexOf(msg["message_id"]); id != "" {
			return id
		}
	}
	return flexOf(top["message_id"])
}

func flexOf(raw json.RawMessage) string {
	if !hasValue(raw) {
		return ""
	}
	var f flexString
	if json.Unmarshal(raw, &f) != nil {
		return ""
	}
	return strings.TrimSpace(string(f))
}

func (u rawUpdate) normalize() transport.Update {
	out := transport.Update{
		ChatID:    strings.TrimSpace(string(u.ChatID)),
		MessageID: string(u.MessageID),
	}
	switch u.Type {
	case "NewMessage":
		out.Kind = transport.KindNewMessage
	case "StartedBot":
		out.Kind = transport.KindBotStarted
	default:
		out.Kind = transport.KindOther
	}
	if m := u.NewMessage; m != nil {
		out.Text = m.Text
		out.SenderID = string(m.SenderID)
		if m.MessageID != "" {
			out.MessageID = string(m.MessageID)
		}
	}
	return out
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

type sendResponse struct {
	Status       string `json:"status"`
	OK           *bool  `json:"ok"`
	Description  string `json:"description"`
	StatusDetail string `json:"status_det"`
}

func checkSend(body []byte) error {
	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", transport.ErrTransport, err)
	}
	if resp.Status == "OK" || (resp.OK != nil && *resp.OK) {
		return nil
	}
	detail := resp.StatusDetail
	if detail == "" {
		detail = resp.Description
	}
	return fmt.Errorf("%w: sendMessage status %q %s", transport.ErrShape, resp.Status, detail)
}
