package http

import (
	"time"

	"github.com/fjod/medmarket/internal/cart"
	"github.com/fjod/medmarket/internal/domain"
	"github.com/fjod/medmarket/internal/format"
)

type CartItemView struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Stock          int    `json:"stock"`
	State          string `json:"state"`
	Selected       bool   `json:"selected"`
	UnitPrice      string `json:"unit_price"`
	UnitPriceLabel string `json:"unit_price_display"`
	Subtotal       string `json:"subtotal"`
	SubtotalLabel  string `json:"subtotal_display"`
	CanIncrement   bool   `json:"can_increment"`
	CanDecrement   bool   `json:"can_decrement"`
	AddedAt        string `json:"added_at,omitempty"`
}

type CartView struct {
	UserID         string         `json:"user_id"`
	Items          []CartItemView `json:"items"`
	Total          string         `json:"total"`
	TotalLabel     string         `json:"total_display"`
	Empty          bool           `json:"empty"`
	ItemCount      int            `json:"item_count"`
	ItemCountLabel string         `json:"item_count_display"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UpdatedLabel   string         `json:"updated_display,omitempty"`
}

type ProductCardView struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	ImageURL           string `json:"image_url,omitempty"`
	Price              string `json:"price"`
	PriceLabel         string `json:"price_display"`
	PreviousPrice      string `json:"previous_price,omitempty"`
	PreviousPriceLabel string `json:"previous_price_display,omitempty"`
	DiscountPercent    string `json:"discount_percent"`
	DiscountLabel      string `json:"discount_display,omitempty"`
	Stock              int    `json:"stock"`
	InStock            bool   `json:"in_stock"`
	StockLabel         string `json:"stock_display"`
	Listed             string `json:"listed,omitempty"`
}

func newCartView(c *domain.Cart, f *format.Formatter) CartView {
	a := cart.New(c.Items)
	items := a.Items()

	view := CartView{
		UserID:         c.UserID,
		Items:          make([]CartItemView, 0, len(items)),
		Total:          a.Total().StringFixed(2),
		TotalLabel:     f.Money(a.Total()),
		Empty:          a.IsEmpty(),
		ItemCount:      a.Len(),
		ItemCountLabel: f.Pluralize(a.Len(), "item"),
		UpdatedAt:      c.UpdatedAt,
		UpdatedLabel:   f.RelativeTime(c.UpdatedAt),
	}

	for _, item := range items {
		s := cart.NewStepper(item.Quantity, item.Stock)
		view.Items = append(view.Items, CartItemView{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			Stock:          item.Stock,
			State:          s.State().String(),
			Selected:       item.Selected,
			UnitPrice:      item.UnitPrice.StringFixed(2),
			UnitPriceLabel: f.Money(item.UnitPrice),
			Subtotal:       item.Subtotal().StringFixed(2),
			SubtotalLabel:  f.Money(item.Subtotal()),
			CanIncrement:   s.CanIncrement(),
			CanDecrement:   s.CanDecrement(),
			AddedAt:        f.Date(item.AddedAt),
		})
	}
	return view
}

func newProductCardView(p *domain.Product, f *format.Formatter) ProductCardView {
	discount := p.Discount()
	view := ProductCardView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		ImageURL:        p.ImageURL,
		Price:           p.Price.StringFixed(2),
		PriceLabel:      f.Money(p.Price),
		DiscountPercent: discount.String(),
		Stock:           p.Stock,
		InStock:         p.Stock > 0,
		Listed:          f.Date(p.CreatedAt),
	}

	if p.PreviousPrice.Valid {
		view.PreviousPrice = p.PreviousPrice.Decimal.StringFixed(2)
		view.PreviousPriceLabel = f.Money(p.PreviousPrice.Decimal)
	}
	if discount.IsPositive() {
		view.DiscountLabel = f.Percent(discount) + " off"
	}

	switch {
	case p.Stock <= 0:
		view.StockLabel = "Out of stock"
	case p.Stock <= lowStockThreshold:
		view.StockLabel = "Only " + f.Pluralize(p.Stock, "unit") + " left"
	default:
		view.StockLabel = "In stock"
	}
	return view
}

const lowStockThreshold = 5
