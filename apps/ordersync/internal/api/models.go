package api

import (
	"time"

	"ordersync/apps/ordersync/internal/model"
)

// OrderResponse represents the API response for order information
type OrderResponse struct {
	Identifier          string     `json:"identifier"`
	TokenID             *string    `json:"token_id,omitempty"`
	Price               *string    `json:"price,omitempty"`
	NFTContract         string     `json:"nft_contract"`
	MarketplaceContract string     `json:"marketplace_contract"`
	Seller              *string    `json:"seller_address,omitempty"`
	Buyer               *string    `json:"buyer_address,omitempty"`
	Status              string     `json:"status"`
	Image               *string    `json:"image,omitempty"`
	OnChainBlock        *uint64    `json:"on_chain_block,omitempty"`
	Source              string     `json:"source"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// EventAcceptedResponse represents the response for an accepted chain event
type EventAcceptedResponse struct {
	Status     string `json:"status"`
	Identifier string `json:"identifier"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toOrderResponse(order model.Order) OrderResponse {
	response := OrderResponse{
		Identifier:          order.Identifier,
		TokenID:             order.TokenID,
		NFTContract:         order.NFTContract,
		MarketplaceContract: order.MarketplaceContract,
		Seller:              order.Seller,
		Buyer:               order.Buyer,
		Status:              string(order.Status),
		Image:               order.Image,
		OnChainBlock:        order.OnChainBlock,
		Source:              order.Source,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	if order.Price.Valid {
		price := order.Price.Decimal.String()
		response.Price = &price
	}
	return response
}
