// Package webhook delivers transfer completion events to an HTTP endpoint.
//
// Each event is POSTed as JSON with its type and id repeated in headers so
// receivers can deduplicate redeliveries. Server errors and network
// failures are retried; any 4xx status ends delivery at once.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/iox"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// Event headers set on every delivery.
const (
	HeaderEventType = "X-Tfc-Event"
	HeaderEventID   = "X-Tfc-Event-Id"
)

// Config configures delivery.
type Config struct {
	URL     string
	Headers map[string]string
	// Timeout applies per attempt. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retries counts attempts after the first.
	Retries int
}

// Adapter is an adapter.Adapter backed by an HTTP endpoint.
type Adapter struct {
	config Config
	client *http.Client
}

// New validates cfg and builds the HTTP client.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("webhook retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// StatusError reports a delivery answered with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint answered %d %s", e.Code, http.StatusText(e.Code))
}

// Permanent reports whether retrying cannot help.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500
}

// Publish delivers event, retrying transient failures.
func (a *Adapter) Publish(ctx context.Context, event *adapter.TransferCompletedEvent) error {
	body, err := adapter.Encode(event)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	deliver := func(ctx context.Context) error {
		return a.deliver(ctx, event, body)
	}
	if err := adapter.Retry(ctx, a.config.Retries, deliver, stopOnClientError); err != nil {
		return fmt.Errorf("webhook %s: %w", event.EventID, err)
	}
	return nil
}

func stopOnClientError(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Permanent() {
		return fmt.Errorf("giving up: %w", err)
	}
	return nil
}

func (a *Adapter) deliver(ctx context.Context, event *adapter.TransferCompletedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, event.EventType)
	req.Header.Set(HeaderEventID, event.EventID)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle keep-alive connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
