package normalize

import (
	"encoding/json"
	"testing"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/markets"
	"ordersync/apps/ordersync/internal/model"
)

var testProfile = &markets.Profile{
	Name:                "opensea",
	Pagination:          markets.PaginateCursor,
	PageSize:            50,
	PriceDecimals:       18,
	MarketplaceContract: "0x00000000000000ADC04C56BF30AC9D3C0AAF14DC",
}

func TestPriceNormalization(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"1000000000", 9, "1"},
		{"2500000000000000000", 18, "2.5"},
		{"0", 18, "0"},
		{"123", 0, "123"},
		{"1", 18, "0.000000000000000001"},
	}

	for _, tc := range cases {
		price, err := Price(tc.raw, tc.decimals)
		if err != nil {
			t.Fatalf("Price(%q, %d): %v", tc.raw, tc.decimals, err)
		}
		if price.String() != tc.want {
			t.Errorf("Price(%q, %d) = %s, want %s", tc.raw, tc.decimals, price.String(), tc.want)
		}
	}

	if _, err := Price("not-a-number", 18); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestSynthesizeIdentifierIsDeterministic(t *testing.T) {
	a := SynthesizeIdentifier("42", "0xAbC", "1000")
	b := SynthesizeIdentifier("42", "0xabc", "1000")
	if a != b {
		t.Fatalf("identical (tokenId, seller, price) must synthesize the same identifier: %s != %s", a, b)
	}

	c := SynthesizeIdentifier("43", "0xabc", "1000")
	if a == c {
		t.Fatal("different token ids must not collide")
	}
}

func TestListingNormalizesFields(t *testing.T) {
	raw := json.RawMessage(`{
		"order_hash": "0xABCDEF",
		"token_id": "7141",
		"seller": "0xDEAD00000000000000000000000000000000BEEF",
		"price": "2500000000000000000",
		"image": "https://img.example/7141.png",
		"extra_field": {"kept": true}
	}`)

	order, err := Listing(testProfile, "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D", raw)
	if err != nil {
		t.Fatal(err)
	}

	if order.Identifier != "0xabcdef" {
		t.Errorf("identifier not lower-cased: %s", order.Identifier)
	}
	if order.NFTContract != "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d" {
		t.Errorf("nft contract not lower-cased: %s", order.NFTContract)
	}
	if order.MarketplaceContract != "0x00000000000000adc04c56bf30ac9d3c0aaf14dc" {
		t.Errorf("marketplace contract not lower-cased: %s", order.MarketplaceContract)
	}
	if order.Seller == nil || *order.Seller != "0xdead00000000000000000000000000000000beef" {
		t.Errorf("seller not lower-cased: %v", order.Seller)
	}
	if !order.Price.Valid || order.Price.Decimal.String() != "2.5" {
		t.Errorf("price not normalized: %v", order.Price)
	}
	if order.TokenID == nil || *order.TokenID != "7141" {
		t.Errorf("token id not extracted: %v", order.TokenID)
	}
	if order.Status != model.StatusActive {
		t.Errorf("listing must be active, got %s", order.Status)
	}
	if order.Source != "opensea" {
		t.Errorf("source = %s", order.Source)
	}
	if string(order.RawPayload) != string(raw) {
		t.Error("raw payload must pass through unmodified")
	}
}

func TestListingSynthesizesIdentifierWhenHashAbsent(t *testing.T) {
	raw := json.RawMessage(`{"token_id": "42", "seller": "0xabc", "price": "1000000000000000000"}`)

	first, err := Listing(testProfile, "0xcollection", raw)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Listing(testProfile, "0xcollection", raw)
	if err != nil {
		t.Fatal(err)
	}

	if first.Identifier != second.Identifier {
		t.Fatal("re-polled entries must converge on one identifier")
	}
	if first.Identifier != SynthesizeIdentifier("42", "0xabc", "1000000000000000000") {
		t.Fatal("synthesized identifier must derive from (tokenId, seller, price)")
	}
}

func TestListingToleratesFieldAliases(t *testing.T) {
	raw := json.RawMessage(`{"id": "listing-9", "tokenId": 9, "maker": "0xAA", "current_price": "5000000000000000000"}`)

	order, err := Listing(testProfile, "0xcollection", raw)
	if err != nil {
		t.Fatal(err)
	}
	if order.Identifier != "listing-9" {
		t.Errorf("identifier = %s", order.Identifier)
	}
	if order.TokenID == nil || *order.TokenID != "9" {
		t.Errorf("numeric token id must render as string, got %v", order.TokenID)
	}
	if !order.Price.Valid || order.Price.Decimal.String() != "5" {
		t.Errorf("price = %v", order.Price)
	}
}

func TestListingRejectsGarbage(t *testing.T) {
	if _, err := Listing(testProfile, "0xc", json.RawMessage(`"just a string"`)); err == nil {
		t.Error("expected error for non-object entry")
	}
	if _, err := Listing(testProfile, "0xc", json.RawMessage(`{}`)); err == nil {
		t.Error("expected error for entry with nothing to key on")
	}
	if _, err := Listing(testProfile, "0xc", json.RawMessage(`{"order_hash":"0x1","price":"one eth"}`)); err == nil {
		t.Error("expected error for unparseable price")
	}
}

func TestTransitionFulfilled(t *testing.T) {
	ev := events.OrderEvent{
		EventType:        events.TypeOrderFulfilled,
		OrderHash:        "0xHASH",
		Offerer:          "0xSELLER",
		Fulfiller:        "0xBUYER",
		NFTContract:      "0xNFT",
		ExchangeContract: "0xEXCHANGE",
		TokenID:          "7141",
		RawPrice:         "1000000000",
		PriceDecimals:    9,
		BlockNumber:      123456,
		LogIndex:         7,
		TxHash:           "0xtx",
	}

	order, err := Transition(ev)
	if err != nil {
		t.Fatal(err)
	}

	if order.Status != model.StatusFulfilled {
		t.Errorf("status = %s", order.Status)
	}
	if order.Identifier != "0xhash" {
		t.Errorf("identifier = %s", order.Identifier)
	}
	if order.Buyer == nil || *order.Buyer != "0xbuyer" {
		t.Errorf("buyer = %v", order.Buyer)
	}
	if order.Seller == nil || *order.Seller != "0xseller" {
		t.Errorf("seller = %v", order.Seller)
	}
	if !order.Price.Valid || order.Price.Decimal.String() != "1" {
		t.Errorf("price = %v", order.Price)
	}
	if order.OnChainBlock == nil || *order.OnChainBlock != 123456 {
		t.Errorf("on-chain block = %v", order.OnChainBlock)
	}
	if order.Source != "chain" {
		t.Errorf("source = %s", order.Source)
	}
}

func TestTransitionValidatedHasNoBuyer(t *testing.T) {
	order, err := Transition(events.OrderEvent{
		EventType:   events.TypeOrderValidated,
		OrderHash:   "0x1",
		Offerer:     "0x2",
		NFTContract: "0x3",
		Fulfiller:   "0xshould-be-ignored",
	})
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != model.StatusActive {
		t.Errorf("status = %s", order.Status)
	}
	if order.Buyer != nil {
		t.Error("validated transition must not set a buyer")
	}
}

func TestTransitionRejectsUnknownEventType(t *testing.T) {
	if _, err := Transition(events.OrderEvent{EventType: "order_teleported"}); err == nil {
		t.Error("expected error for unknown event type")
	}
}
