package listings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// page is one decoded page of a marketplace's listing endpoint.
type page struct {
	entries []json.RawMessage
	next    string
}

// parsePage decodes a listing page envelope. Marketplaces disagree on the
// envelope shape, so the item array is accepted under orders/listings/results
// or as a bare top-level array, and the continuation token under
// next/cursor/continuation.
func parsePage(body []byte) (page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return page{}, fmt.Errorf("failed to decode listing array: %w", err)
		}
		return page{entries: entries}, nil
	}

	var envelope struct {
		Orders       []json.RawMessage `json:"orders"`
		Listings     []json.RawMessage `json:"listings"`
		Results      []json.RawMessage `json:"results"`
		Next         *string           `json:"next"`
		Cursor       *string           `json:"cursor"`
		Continuation *string           `json:"continuation"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return page{}, fmt.Errorf("failed to decode listing envelope: %w", err)
	}

	p := page{}
	switch {
	case envelope.Orders != nil:
		p.entries = envelope.Orders
	case envelope.Listings != nil:
		p.entries = envelope.Listings
	case envelope.Results != nil:
		p.entries = envelope.Results
	}

	switch {
	case envelope.Next != nil:
		p.next = *envelope.Next
	case envelope.Cursor != nil:
		p.next = *envelope.Cursor
	case envelope.Continuation != nil:
		p.next = *envelope.Continuation
	}

	return p, nil
}
