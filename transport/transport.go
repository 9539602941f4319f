// Package transport delivers encoded payloads to the collector. A Chain
// prefers the page's send-and-forget primitive and falls back to a plain
// HTTP request only when that primitive is missing or refuses the payload.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/skaes/vitals-reporter/environment"
	"github.com/skaes/vitals-reporter/formats/webvitals"
	"github.com/skaes/vitals-reporter/util"
)

// Strategy is one way of handing a payload to the network. Attempt returns
// whether the payload was taken; it never reports what happened to it
// afterwards.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, endpoint string, body []byte) bool
}

// Beacon uses the send-and-forget primitive of the environment.
type Beacon struct {
	Env environment.Environment
}

func (b Beacon) Name() string { return "beacon" }

func (b Beacon) Attempt(ctx context.Context, endpoint string, body []byte) bool {
	return b.Env.TrySendBeacon(endpoint, body)
}

// HTTP posts the payload in a separate go routine and ignores the response.
// Requests never carry credentials.
type HTTP struct {
	// KeepAlive detaches requests from the caller's context, so that they
	// complete even if the caller goes away.
	KeepAlive bool

	client *http.Client
	wg     sync.WaitGroup
}

// NewHTTP creates a fallback strategy sending with a copy of client. The
// copy never carries a cookie jar. A nil client is replaced by one using
// the given timeout.
func NewHTTP(client *http.Client, timeout time.Duration) *HTTP {
	var c http.Client
	if client != nil {
		c = *client
	} else {
		c.Timeout = timeout
	}
	c.Jar = nil
	return &HTTP{KeepAlive: true, client: &c}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Attempt(ctx context.Context, endpoint string, body []byte) bool {
	req, err := h.newRequest(ctx, endpoint, body)
	if err != nil {
		return false
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res, err := h.client.Do(req)
		if err != nil {
			return
		}
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}()
	return true
}

func (h *HTTP) newRequest(ctx context.Context, endpoint string, body []byte) (*http.Request, error) {
	if h.KeepAlive {
		ctx = context.WithoutCancel(ctx)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", webvitals.ContentType)
	return req, nil
}

// Wait waits for requests in flight. It returns true if waiting timed out.
func (h *HTTP) Wait(timeout time.Duration) bool {
	return util.WaitForWaitGroupWithTimeout(&h.wg, timeout)
}

// Chain tries Preferred and falls back to Fallback.
type Chain struct {
	Preferred Strategy
	Fallback  Strategy
}

// Send returns the name of the strategy that took the payload, or the
// empty string if none did.
func (c Chain) Send(ctx context.Context, endpoint string, body []byte) string {
	for _, s := range []Strategy{c.Preferred, c.Fallback} {
		if s == nil {
			continue
		}
		if s.Attempt(ctx, endpoint, body) {
			return s.Name()
		}
	}
	return ""
}
