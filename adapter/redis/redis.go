// Package redis announces transfer completions with Redis PUBLISH.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/tfc/adapter"
)

// DefaultChannel receives events when no channel is configured.
const DefaultChannel = "tfc:transfer_completed"

// DefaultTimeout bounds one PUBLISH.
const DefaultTimeout = 5 * time.Second

// Config configures the publisher.
type Config struct {
	// URL uses the redis:// scheme, e.g. redis://:secret@cache:6379/2.
	URL     string
	Channel string
	Timeout time.Duration
	// Retries counts attempts after the first.
	Retries int
}

// Adapter is an adapter.Adapter backed by a Redis channel.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New parses the URL and builds a lazily connecting client.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("redis retries must be >= 0, got %d", cfg.Retries)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url %q: %w", cfg.URL, err)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Publish sends the encoded event to the channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.TransferCompletedEvent) error {
	payload, err := adapter.Encode(event)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	err = adapter.Retry(ctx, a.config.Retries, func(ctx context.Context) error {
		return a.publishOnce(ctx, payload)
	}, stopWhenClosed)
	if err != nil {
		return fmt.Errorf("redis publish to %s: %w", a.config.Channel, err)
	}
	return nil
}

func (a *Adapter) publishOnce(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return a.client.Publish(ctx, a.config.Channel, payload).Err()
}

// A closed client never recovers.
func stopWhenClosed(err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

// Close shuts the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
