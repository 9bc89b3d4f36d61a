package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/iox"
)

func init() {
	adapter.BaseBackoff = time.Millisecond
}

func testEvent() *adapter.TransferCompletedEvent {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	return adapter.NewTransferCompletedEvent("delete", "old/archive.tar", 0, 0, 0, now)
}

// asyncReceive must be started before Publish; miniredis delivers
// synchronously.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestPublish_Channels(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    string
	}{
		{name: "default", channel: "", want: DefaultChannel},
		{name: "custom", channel: "ops:files", want: "ops:files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)

			a, err := New(Config{URL: "redis://" + mr.Addr(), Channel: tt.channel})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer iox.DiscardErr(a.Close)

			sub := mr.NewSubscriber()
			sub.Subscribe(tt.want)
			ch := asyncReceive(sub)

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("publish: %v", err)
			}

			msg := waitMessage(t, ch)
			if msg.Channel != tt.want {
				t.Errorf("channel = %q, want %q", msg.Channel, tt.want)
			}

			var got adapter.TransferCompletedEvent
			if err := json.Unmarshal([]byte(msg.Message), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Direction != "delete" || got.Path != "old/archive.tar" {
				t.Errorf("event = %+v", got)
			}
		})
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 2, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardErr(a.Close)

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardErr(a.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestPublish_AfterClose(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty url", cfg: Config{}, wantErr: true},
		{name: "invalid url", cfg: Config{URL: "not-a-redis-url"}, wantErr: true},
		{name: "negative retries", cfg: Config{URL: "redis://localhost:6379", Retries: -1}, wantErr: true},
		{name: "ok", cfg: Config{URL: "redis://localhost:6379"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if a == nil {
				return
			}
			defer iox.DiscardErr(a.Close)
			if a.config.Channel != DefaultChannel {
				t.Errorf("Channel = %q, want %q", a.config.Channel, DefaultChannel)
			}
			if a.config.Timeout != DefaultTimeout {
				t.Errorf("Timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
			}
		})
	}
}
