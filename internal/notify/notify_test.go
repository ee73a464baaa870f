package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/support-bot/internal/channel/memory"
	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

var incident = domain.Summary{
	Kind:        domain.SummaryIncident,
	Contact:     "Jane",
	Category:    domain.CategoryNetwork,
	Description: "Wifi keeps dropping",
	TicketRef:   "#007",
}

func TestRelayDeliversOneMessage(t *testing.T) {
	t.Parallel()

	ch := memory.New(clock.Fake(time.Unix(0, 0)))
	ch.AddConversation("support", "IT Support", false)
	relay := NewRelay(ch, "IT Support", zaptest.NewLogger(t))

	if err := relay.Deliver(context.Background(), incident); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	sent := ch.Sent("support")
	if len(sent) != 1 || sent[0] != incident.Text() {
		t.Fatalf("sent mismatch: %q", sent)
	}
	if ch.IsOpen() {
		t.Fatalf("support conversation left open")
	}
}

func TestRelayMissingDestination(t *testing.T) {
	t.Parallel()

	ch := memory.New(clock.Fake(time.Unix(0, 0)))
	relay := NewRelay(ch, "IT Support", zaptest.NewLogger(t))

	err := relay.Deliver(context.Background(), incident)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRelayClosesAfterSendFailure(t *testing.T) {
	t.Parallel()

	ch := memory.New(clock.Fake(time.Unix(0, 0)))
	ch.AddConversation("support", "IT Support", false)
	ch.Fail = func(op string) error {
		if op == "send" {
			return errors.New("input box not found")
		}
		return nil
	}
	relay := NewRelay(ch, "IT Support", zaptest.NewLogger(t))

	if err := relay.Deliver(context.Background(), incident); err == nil {
		t.Fatalf("expected send error")
	}
	if ch.Closed("support") != 1 {
		t.Fatalf("support conversation should be closed after failed send")
	}
}

func TestSlackMirrorRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body.Store(string(raw))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.Fake(time.Unix(0, 0))
	mirror := NewSlackMirror(SlackConfig{WebhookURL: srv.URL, RetryAttempts: 3}, clk, zaptest.NewLogger(t))
	if err := mirror.Send(context.Background(), incident); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("call count mismatch: got=%d want=2", calls.Load())
	}
	if clk.Slept() != time.Second {
		t.Fatalf("backoff mismatch: got=%s want=1s", clk.Slept())
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(body.Load().(string)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !strings.Contains(payload.Text, "Ticket No: #007") {
		t.Fatalf("payload text mismatch: %q", payload.Text)
	}
}

func TestSlackMirrorStopsOnClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	mirror := NewSlackMirror(SlackConfig{WebhookURL: srv.URL, RetryAttempts: 3}, clock.Fake(time.Unix(0, 0)), zaptest.NewLogger(t))
	if err := mirror.Send(context.Background(), incident); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors should not be retried: calls=%d", calls.Load())
	}
}
