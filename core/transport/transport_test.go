package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "shape", ErrorKind(fmt.Errorf("getUpdates: %w", ErrShape)))
	assert.Equal(t, "transport", ErrorKind(fmt.Errorf("getUpdates: %w", ErrTransport)))
	assert.Equal(t, "cancelled", ErrorKind(fmt.Errorf("x: %w", context.Canceled)))
	assert.Equal(t, "timeout", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "unknown", ErrorKind(errors.New("boom")))
}

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset")}

	assert.True(t, ShouldRetry(dial))
	assert.True(t, ShouldRetry(&url.Error{Op: "Post", URL: "http://x", Err: dial}))
	assert.True(t, ShouldRetry(&net.DNSError{Err: "no such host", IsTemporary: true}))
	assert.False(t, ShouldRetry(read))
	assert.False(t, ShouldRetry(&url.Error{Op: "Post", URL: "http://x", Err: read}))
	assert.False(t, ShouldRetry(nil))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportResendsBodyAfterDialFailure(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	rt := &retryTransport{
		maxRetries: 2,
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			b, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(b))
			if calls.Add(1) == 1 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("{}"))}, nil
		}),
	}
	req, err := http.NewRequest(http.MethodPost, "http://example.invalid/x", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`}, bodies)
}

func TestRetryTransportDoesNotRetryAfterWrite(t *testing.T) {
	var calls atomic.Int32
	rt := &retryTransport{
		maxRetries: 2,
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, &net.OpError{Op: "read", Err: errors.New("reset")}
		}),
	}
	req, err := http.NewRequest(http.MethodPost, "http://example.invalid/x", strings.NewReader("{}"))
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
