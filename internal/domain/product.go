package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	PreviousPrice decimal.NullDecimal
	Stock         int
	ImageURL      string
	CreatedAt     time.Time
}

// Discount returns the percentage off the previous price, 0 when the
// product has no previous price.
func (p Product) Discount() decimal.Decimal {
	if !p.PreviousPrice.Valid {
		return decimal.Zero
	}
	return DiscountPercent(p.Price, p.PreviousPrice.Decimal)
}
