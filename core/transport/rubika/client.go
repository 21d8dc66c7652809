// Package rubika talks to the Rubika bot API.
package rubika

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/m3rciful/fontbot/core/transport"
)

const maxBodyBytes = 4 << 20

// Client calls {baseURL}/{token}/{method} with JSON bodies.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a Rubika client. A nil httpClient uses http.DefaultClient.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// Fetch calls getUpdates starting after cursor.
func (c *Client) Fetch(ctx context.Context, cursor *string, limit int) (transport.Batch, error) {
	payload := map[string]any{"limit": limit}
	if cursor != nil && *cursor != "" {
		payload["offset_id"] = *cursor
	}
	body, err := c.post(ctx, "getUpdates", payload)
	if err != nil {
		return transport.Batch{}, err
	}
	return DecodeUpdates(ctx, body)
}

// Send posts text to chatID.
func (c *Client) Send(ctx context.Context, chatID, text string) error {
	body, err := c.post(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text})
	if err != nil {
		return err
	}
	return checkSend(body)
}

func (c *Client) post(ctx context.Context, method string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("rubika %s: encode: %w", method, err)
	}
	url := c.baseURL + "/" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rubika %s: %w: %v", method, transport.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rubika %s: %w: %w", method, transport.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("rubika %s: read body: %w: %v", method, transport.ErrTransport, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("rubika %s: %w: http %d", method, transport.ErrTransport, resp.StatusCode)
	}
	return body, nil
}
