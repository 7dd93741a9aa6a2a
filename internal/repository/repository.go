package repository

import (
	"context"

	"github.com/Mayank7677/fragrance-cart-service/internal/domain"
)

// CartRepository persists the per-user active cart document.
type CartRepository interface {
	// FindActive returns the user's active cart, or ErrNotFound when the
	// user has none.
	FindActive(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveIfVersion atomically persists the cart when the stored version
	// still equals expectedVersion, stamping cart.Version to
	// expectedVersion+1 on success. expectedVersion 0 creates the cart.
	// Returns false without writing when another writer got there first.
	// A cart saved with a non-active status is moved out of the active
	// slot, so at most one active cart per user exists at any time.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)
}
