package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/iox"
)

func init() {
	adapter.BaseBackoff = time.Millisecond
}

func testEvent() *adapter.TransferCompletedEvent {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	return adapter.NewTransferCompletedEvent("upload", "incoming/report.csv", 1024, 0xAE8B14860A799888, 1700000000, now)
}

func TestPublish_Success(t *testing.T) {
	var received adapter.TransferCompletedEvent
	var eventType, eventID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		eventType = r.Header.Get(HeaderEventType)
		eventID = r.Header.Get(HeaderEventID)
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received.EventType != adapter.EventTypeTransferCompleted {
		t.Errorf("EventType = %q, want %q", received.EventType, adapter.EventTypeTransferCompleted)
	}
	if received.Path != "incoming/report.csv" {
		t.Errorf("Path = %q", received.Path)
	}
	if received.Bytes != 1024 {
		t.Errorf("Bytes = %d, want 1024", received.Bytes)
	}
	if eventType != adapter.EventTypeTransferCompleted {
		t.Errorf("%s = %q", HeaderEventType, eventType)
	}
	if eventID == "" || eventID != received.EventID {
		t.Errorf("%s = %q, want %q", HeaderEventID, eventID, received.EventID)
	}
}

func TestStatusError_Permanent(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, true},
		{404, true},
		{499, true},
		{500, false},
		{503, false},
		{302, false},
	}
	for _, tt := range tests {
		if got := (&StatusError{Code: tt.code}).Permanent(); got != tt.want {
			t.Errorf("StatusError{%d}.Permanent() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Headers: map[string]string{"Authorization": "Bearer t"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if auth != "Bearer t" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer t")
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		name         string
		codes        []int // per attempt; last repeats
		retries      int
		wantErr      bool
		wantAttempts int32
	}{
		{name: "2xx", codes: []int{202}, retries: 3, wantAttempts: 1},
		{name: "5xx then ok", codes: []int{500, 503, 200}, retries: 3, wantAttempts: 3},
		{name: "5xx exhausts", codes: []int{502}, retries: 2, wantErr: true, wantAttempts: 3},
		{name: "4xx immediate", codes: []int{404}, retries: 3, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(attempts.Add(1)) - 1
				if n >= len(tt.codes) {
					n = len(tt.codes) - 1
				}
				w.WriteHeader(tt.codes[n])
			}))
			defer ts.Close()

			a, err := New(Config{URL: ts.URL, Retries: tt.retries, Timeout: 5 * time.Second})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer iox.DiscardClose(a)

			err = a.Publish(t.Context(), testEvent())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a, err := New(Config{URL: ts.URL, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}

	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
}
