package stock

import "context"

// StateStore defines the contract for persisting last-known availability.
// Implementations live in infra/store/ (Redis, SQLite, Supabase, in-memory).
type StateStore interface {
	// Get returns the stored state for a product.
	// The boolean is false when the product has never been observed.
	Get(ctx context.Context, sc StoreContext, productID string) (StoredState, bool, error)

	// Put overwrites the stored state of every given product.
	// All updates of one call are applied atomically: either every update
	// is visible afterwards or none is.
	Put(ctx context.Context, sc StoreContext, updates ...StateUpdate) error
}
