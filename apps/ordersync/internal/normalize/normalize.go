// Package normalize maps raw source payloads into the canonical order record.
// Everything here is pure: no I/O, no clock, no store.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/markets"
	"ordersync/apps/ordersync/internal/model"
)

// Price converts a raw integer base-unit amount to its whole-unit decimal
// value, e.g. "2500000000000000000" with 18 decimals becomes 2.5.
func Price(raw string, decimals int) (decimal.Decimal, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("invalid raw amount %q", raw)
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)), nil
}

// SynthesizeIdentifier derives a deterministic order identifier for sources
// that expose no native order hash. Identical (tokenID, seller, price) tuples
// intentionally collapse into one record so re-polls converge.
func SynthesizeIdentifier(tokenID, seller, rawPrice string) string {
	seed := strings.ToLower(tokenID + ":" + seller + ":" + rawPrice)
	return crypto.Keccak256Hash([]byte(seed)).Hex()
}

// Listing normalizes one raw marketplace listing entry. Field names vary per
// marketplace, so extraction is tolerant across the known aliases; the raw
// payload is retained verbatim for audit.
func Listing(profile *markets.Profile, collection string, raw json.RawMessage) (model.Order, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to decode listing entry: %w", err)
	}

	tokenID := pickString(fields, "token_id", "tokenId", "token")
	seller := strings.ToLower(pickString(fields, "seller", "maker", "offerer", "seller_address"))
	rawPrice := pickString(fields, "price", "current_price", "amount")

	identifier := strings.ToLower(pickString(fields, "order_hash", "orderHash", "hash", "id"))
	if identifier == "" {
		if tokenID == "" && seller == "" && rawPrice == "" {
			return model.Order{}, fmt.Errorf("listing entry has no identifier and no fields to derive one")
		}
		identifier = SynthesizeIdentifier(tokenID, seller, rawPrice)
	}

	order := model.Order{
		Identifier:          identifier,
		NFTContract:         strings.ToLower(collection),
		MarketplaceContract: strings.ToLower(profile.MarketplaceContract),
		RawPayload:          raw,
		Status:              model.StatusActive,
		Source:              profile.Name,
	}

	if tokenID != "" {
		order.TokenID = &tokenID
	}
	if seller != "" {
		order.Seller = &seller
	}
	if rawPrice != "" {
		price, err := Price(rawPrice, profile.PriceDecimals)
		if err != nil {
			return model.Order{}, fmt.Errorf("failed to normalize price: %w", err)
		}
		order.Price = decimal.NewNullDecimal(price)
	}
	if image := pickString(fields, "image", "image_url", "imageUrl"); image != "" {
		order.Image = &image
	}

	return order, nil
}

// Transition normalizes one on-chain lifecycle event into a canonical order
// write. The event's raw price is scaled by its own decimals so a chain write
// carries the same whole-unit representation as a listing write.
func Transition(ev events.OrderEvent) (model.Order, error) {
	var status model.Status
	switch ev.EventType {
	case events.TypeOrderValidated:
		status = model.StatusActive
	case events.TypeOrderFulfilled:
		status = model.StatusFulfilled
	case events.TypeOrderCancelled:
		status = model.StatusCancelled
	default:
		return model.Order{}, fmt.Errorf("unknown event type %q", ev.EventType)
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	block := ev.BlockNumber
	order := model.Order{
		Identifier:          strings.ToLower(ev.OrderHash),
		NFTContract:         strings.ToLower(ev.NFTContract),
		MarketplaceContract: strings.ToLower(ev.ExchangeContract),
		RawPayload:          raw,
		Status:              status,
		OnChainBlock:        &block,
		Source:              "chain",
	}

	if ev.TokenID != "" {
		tokenID := ev.TokenID
		order.TokenID = &tokenID
	}
	if ev.Offerer != "" {
		seller := strings.ToLower(ev.Offerer)
		order.Seller = &seller
	}
	if status == model.StatusFulfilled && ev.Fulfiller != "" {
		buyer := strings.ToLower(ev.Fulfiller)
		order.Buyer = &buyer
	}
	if ev.RawPrice != "" {
		price, err := Price(ev.RawPrice, ev.PriceDecimals)
		if err != nil {
			return model.Order{}, fmt.Errorf("failed to normalize price: %w", err)
		}
		order.Price = decimal.NewNullDecimal(price)
	}

	return order, nil
}

// decodeFields unmarshals an entry into a flat field map, keeping numbers as
// json.Number so large token ids and raw amounts survive untruncated.
func decodeFields(raw json.RawMessage) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var fields map[string]interface{}
	if err := decoder.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// pickString returns the first non-empty value among the given keys, rendering
// numbers as their literal string form.
func pickString(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
