package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/httpx"
)

// Events receives normalized on-chain lifecycle transitions. The scanner
// treats a failed send as a write failure for that single event, never fatal
// to the scan.
type Events interface {
	Send(ctx context.Context, ev events.OrderEvent) error
}

// HTTP posts order events to the backend ingestion endpoint.
type HTTP struct {
	url    string
	client *httpx.Throttle
}

// NewHTTP creates an event sink targeting the backend base URL.
func NewHTTP(baseURL string, client *httpx.Throttle) *HTTP {
	return &HTTP{
		url:    strings.TrimRight(baseURL, "/") + "/api/v1/events",
		client: client,
	}
}

// Send posts the event; any non-2xx response is a failed write.
func (h *HTTP) Send(ctx context.Context, ev events.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpx.StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	return nil
}
