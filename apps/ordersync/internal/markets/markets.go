package markets

import "strings"

// Pagination selects how a marketplace's listing endpoint is walked.
type Pagination string

const (
	// PaginateCursor advances with an opaque continuation token returned by
	// the previous page.
	PaginateCursor Pagination = "cursor"
	// PaginateOffset advances with a numeric skip count.
	PaginateOffset Pagination = "offset"
)

// Profile parameterizes one marketplace REST source. The near-identical
// per-marketplace fetch loops collapse into a single walker driven by this.
type Profile struct {
	Name                string     `json:"name"`
	BaseURL             string     `json:"base_url"`
	ListingsPath        string     `json:"listings_path"`
	Method              string     `json:"method"` // GET or POST
	Pagination          Pagination `json:"pagination"`
	PageSize            int        `json:"page_size"`
	SortField           string     `json:"sort_field"`
	SortDirection       string     `json:"sort_direction"`
	PriceDecimals       int        `json:"price_decimals"`
	MarketplaceContract string     `json:"marketplace_contract"`
	APIKeyHeader        string     `json:"api_key_header,omitempty"`
	APIKeyEnv           string     `json:"api_key_env,omitempty"`
}

// Registry holds all supported marketplace profiles.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry creates a registry with all supported marketplaces.
func NewRegistry() *Registry {
	registry := &Registry{
		profiles: make(map[string]*Profile),
	}

	supportedProfiles := []*Profile{
		{
			Name:                "opensea",
			BaseURL:             "https://api.opensea.io",
			ListingsPath:        "/api/v2/listings",
			Method:              "GET",
			Pagination:          PaginateCursor,
			PageSize:            50,
			SortField:           "created_date",
			SortDirection:       "desc",
			PriceDecimals:       18,
			MarketplaceContract: "0x00000000000000adc04c56bf30ac9d3c0aaf14dc",
			APIKeyHeader:        "X-API-KEY",
			APIKeyEnv:           "OPENSEA_API_KEY",
		},
		{
			Name:                "magiceden",
			BaseURL:             "https://api-mainnet.magiceden.dev",
			ListingsPath:        "/v3/rtp/ethereum/orders/asks/v5",
			Method:              "GET",
			Pagination:          PaginateOffset,
			PageSize:            100,
			SortField:           "createdAt",
			SortDirection:       "desc",
			PriceDecimals:       18,
			MarketplaceContract: "0x9a1d00bed7cd04bcda516d721a596eb22aac6834",
		},
	}

	for _, profile := range supportedProfiles {
		registry.profiles[profile.Name] = profile
	}

	return registry
}

// Get returns a profile by marketplace name (case-insensitive).
func (r *Registry) Get(name string) (*Profile, bool) {
	if profile, exists := r.profiles[name]; exists {
		return profile, true
	}
	if profile, exists := r.profiles[strings.ToLower(name)]; exists {
		return profile, true
	}
	return nil, false
}

// All returns every registered profile.
func (r *Registry) All() []*Profile {
	all := make([]*Profile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		all = append(all, profile)
	}
	return all
}

// GlobalRegistry is the shared registry instance used across the application.
var GlobalRegistry = NewRegistry()
