package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/config"
	"territory-engine/internal/domain"
)

func TestCaptureEventDelivery(t *testing.T) {
	received := make(chan domain.CaptureEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev domain.CaptureEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		received <- ev
	}))
	defer srv.Close()

	n := NewWebhookNotifier(&config.Config{WebhookURLs: []string{srv.URL}}, zerolog.Nop())
	n.OnCapture(domain.CaptureEvent{
		RoundID:       "r1",
		Region:        "B2",
		NewOwner:      domain.TeamRed,
		PreviousOwner: domain.TeamBlue,
		At:            time.Now(),
	})

	select {
	case ev := <-received:
		if ev.Region != "B2" || ev.NewOwner != domain.TeamRed || ev.PreviousOwner != domain.TeamBlue {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("webhook never arrived")
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(&config.Config{WebhookURLs: []string{srv.URL}}, zerolog.Nop())
	n.OnCapture(domain.CaptureEvent{Region: "A2", NewOwner: domain.TeamRed, At: time.Now()})

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a retry after 500, got %d calls", calls.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNoURLsIsNoOp(t *testing.T) {
	n := NewWebhookNotifier(&config.Config{}, zerolog.Nop())
	// Must not panic or spawn work.
	n.OnCapture(domain.CaptureEvent{Region: "A2", NewOwner: domain.TeamRed, At: time.Now()})
}
