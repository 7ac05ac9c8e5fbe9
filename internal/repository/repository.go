package repository

import (
	"context"
	"errors"

	"github.com/fjod/medmarket/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
	// UsersWithProduct returns the users whose carts hold a line for the product.
	UsersWithProduct(ctx context.Context, productID int64) ([]string, error)
}
