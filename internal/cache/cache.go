package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/medmarket/internal/domain"
)

// CartCache holds read-through copies of carts. Entries are versioned by
// Cart.UpdatedAt: once a version is invalidated, older copies are refused.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Invalidate(ctx context.Context, userID string, version time.Time) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrStaleCart = errors.New("cart older than cached version")
)
