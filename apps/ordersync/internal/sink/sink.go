package sink

import (
	"context"

	"ordersync/apps/ordersync/internal/model"
)

// Sink is the single write path for canonical orders. Upsert must be safely
// callable any number of times with the same identifier.
type Sink interface {
	Upsert(ctx context.Context, order model.Order) error
}

// Allowed is the status transition policy as a pure function. The enforcement
// lives in the repository's upsert predicate; this is its executable
// reference, kept in sync by the repository and handler tests. The two source
// streams are not ordered relative to each other, so a terminal state must
// never be downgraded back to active:
//
//	active    -> active | fulfilled | cancelled
//	fulfilled -> fulfilled | cancelled
//	cancelled -> cancelled | fulfilled
//
// Terminal-to-terminal rewrites are permitted so a chain rescan with corrected
// data wins; a rejected transition leaves the stored row untouched.
func Allowed(current, next model.Status) bool {
	if current.Terminal() && next == model.StatusActive {
		return false
	}
	return next.Valid()
}
