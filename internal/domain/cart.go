package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string     `bson:"_id,omitempty"`
	UserID    string     `bson:"user_id"`
	Items     []LineItem `bson:"items"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// LineItem is one product entry in a cart. Price and stock are snapshots
// taken from the catalog when the line was added or last refreshed.
type LineItem struct {
	ProductID int64           `bson:"product_id"`
	Name      string          `bson:"name"`
	Quantity  int             `bson:"quantity"`
	UnitPrice decimal.Decimal `bson:"unit_price"`
	Stock     int             `bson:"stock"`
	Selected  bool            `bson:"selected"`
	AddedAt   time.Time       `bson:"added_at"`
}

// InStock reports whether the line can contribute to the cart total.
func (i LineItem) InStock() bool {
	return i.Stock > 0
}

// Subtotal is quantity * unit price, or zero when the line is deselected,
// out of stock or carries a negative amount.
func (i LineItem) Subtotal() decimal.Decimal {
	if !i.Selected || !i.InStock() || i.Quantity <= 0 || i.UnitPrice.IsNegative() {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Touch stamps the cart as written at now. UpdatedAt keeps millisecond
// precision, the resolution MongoDB stores, and always moves forward so it
// can serve as the cart version.
func (c *Cart) Touch(now time.Time) {
	next := now.UTC().Truncate(time.Millisecond)
	if !next.After(c.UpdatedAt) {
		next = c.UpdatedAt.UTC().Truncate(time.Millisecond).Add(time.Millisecond)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = next
	}
	c.UpdatedAt = next
}
