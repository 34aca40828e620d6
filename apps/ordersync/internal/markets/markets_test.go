package markets

import "testing"

func TestRegistryLookups(t *testing.T) {
	registry := NewRegistry()

	profile, ok := registry.Get("opensea")
	if !ok {
		t.Fatal("opensea profile missing")
	}
	if profile.Pagination != PaginateCursor {
		t.Errorf("opensea pagination = %s", profile.Pagination)
	}
	if profile.PriceDecimals != 18 {
		t.Errorf("opensea price decimals = %d", profile.PriceDecimals)
	}

	if _, ok := registry.Get("OpenSea"); !ok {
		t.Error("lookup must be case-insensitive")
	}

	profile, ok = registry.Get("magiceden")
	if !ok {
		t.Fatal("magiceden profile missing")
	}
	if profile.Pagination != PaginateOffset {
		t.Errorf("magiceden pagination = %s", profile.Pagination)
	}

	if _, ok := registry.Get("unknown-market"); ok {
		t.Error("unknown marketplace must not resolve")
	}

	if len(registry.All()) != 2 {
		t.Errorf("All() = %d profiles", len(registry.All()))
	}
}
