package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/httpx"
)

func TestHTTPSendPostsEvent(t *testing.T) {
	var gotPath string
	var gotEvent events.OrderEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotEvent); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, httpx.NewThrottle(server.Client(), 0))
	err := h.Send(context.Background(), events.OrderEvent{
		EventType:   events.TypeOrderFulfilled,
		OrderHash:   "0xhash",
		BlockNumber: 42,
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/api/v1/events" {
		t.Errorf("path = %s", gotPath)
	}
	if gotEvent.OrderHash != "0xhash" || gotEvent.BlockNumber != 42 {
		t.Errorf("event round-trip failed: %+v", gotEvent)
	}
}

func TestHTTPSendTreatsNon2xxAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, httpx.NewThrottle(server.Client(), 0))
	err := h.Send(context.Background(), events.OrderEvent{EventType: events.TypeOrderValidated})
	if err == nil {
		t.Fatal("expected failure for non-2xx response")
	}

	var statusErr *httpx.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected StatusError 422, got %v", err)
	}
}
