package cart

import (
	"errors"

	"github.com/fjod/medmarket/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrItemNotFound = errors.New("item not found in cart")

type ChangeKind string

const (
	ItemAdded    ChangeKind = "item_added"
	ItemUpdated  ChangeKind = "item_updated"
	ItemRemoved  ChangeKind = "item_removed"
	ItemSelected ChangeKind = "item_selected"
	QuantityUp   ChangeKind = "quantity_incremented"
	QuantityDown ChangeKind = "quantity_decremented"
	StockChanged ChangeKind = "stock_changed"
	CartCleared  ChangeKind = "cart_cleared"
)

// Change is delivered to observers after the total has been recomputed.
type Change struct {
	Kind      ChangeKind
	ProductID int64
	Total     decimal.Decimal
	ItemCount int
	Empty     bool
}

// Aggregator owns the line items of one cart and keeps the total equal to
// the sum of their subtotals. It is not safe for concurrent use.
type Aggregator struct {
	items     []domain.LineItem
	total     decimal.Decimal
	observers []func(Change)
}

func New(items []domain.LineItem) *Aggregator {
	a := &Aggregator{items: make([]domain.LineItem, 0, len(items))}
	for _, item := range items {
		a.items = append(a.items, normalize(item))
	}
	a.RecomputeTotal()
	return a
}

// Subscribe registers fn to be called synchronously after every mutation.
func (a *Aggregator) Subscribe(fn func(Change)) {
	a.observers = append(a.observers, fn)
}

// AddOrUpdateItem inserts item, or replaces the line with the same product.
func (a *Aggregator) AddOrUpdateItem(item domain.LineItem) {
	item = normalize(item)
	if i := a.indexOf(item.ProductID); i >= 0 {
		a.items[i] = item
		a.changed(ItemUpdated, item.ProductID)
		return
	}
	a.items = append(a.items, item)
	a.changed(ItemAdded, item.ProductID)
}

func (a *Aggregator) RemoveItem(productID int64) error {
	i := a.indexOf(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	a.items = append(a.items[:i], a.items[i+1:]...)
	a.changed(ItemRemoved, productID)
	return nil
}

func (a *Aggregator) SetSelected(productID int64, selected bool) error {
	i := a.indexOf(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	if a.items[i].Selected == selected {
		return nil
	}
	a.items[i].Selected = selected
	a.changed(ItemSelected, productID)
	return nil
}

// Increment steps the quantity up and reports whether it moved.
func (a *Aggregator) Increment(productID int64) (bool, error) {
	return a.step(productID, QuantityUp, (*Stepper).Increment)
}

// Decrement steps the quantity down and reports whether it moved.
func (a *Aggregator) Decrement(productID int64) (bool, error) {
	return a.step(productID, QuantityDown, (*Stepper).Decrement)
}

// UpdateStock replaces the stock snapshot of a line and re-clamps its
// quantity. It reports whether the line was found and changed.
func (a *Aggregator) UpdateStock(productID int64, stock int) bool {
	i := a.indexOf(productID)
	if i < 0 {
		return false
	}
	current := a.items[i]
	if current.Stock == stock && current.Quantity == ClampQuantity(current.Quantity, stock) {
		return false
	}
	current.Stock = stock
	a.items[i] = normalize(current)
	a.changed(StockChanged, productID)
	return true
}

// RecomputeTotal sums the line subtotals. A negative sum is clamped to 0.
func (a *Aggregator) RecomputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range a.items {
		total = total.Add(item.Subtotal())
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	a.total = total
	return total
}

func (a *Aggregator) Total() decimal.Decimal {
	return a.total
}

func (a *Aggregator) IsEmpty() bool {
	return len(a.items) == 0
}

func (a *Aggregator) Len() int {
	return len(a.items)
}

// Item returns a copy of the line holding productID.
func (a *Aggregator) Item(productID int64) (domain.LineItem, bool) {
	i := a.indexOf(productID)
	if i < 0 {
		return domain.LineItem{}, false
	}
	return a.items[i], true
}

// Items returns a copy of the lines in insertion order.
func (a *Aggregator) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregator) step(productID int64, kind ChangeKind, move func(*Stepper) bool) (bool, error) {
	i := a.indexOf(productID)
	if i < 0 {
		return false, ErrItemNotFound
	}
	s := Stepper{Quantity: a.items[i].Quantity, Stock: a.items[i].Stock}
	if !move(&s) {
		return false, nil
	}
	a.items[i].Quantity = s.Quantity
	a.changed(kind, productID)
	return true, nil
}

func (a *Aggregator) changed(kind ChangeKind, productID int64) {
	total := a.RecomputeTotal()
	c := Change{
		Kind:      kind,
		ProductID: productID,
		Total:     total,
		ItemCount: len(a.items),
		Empty:     len(a.items) == 0,
	}
	for _, fn := range a.observers {
		fn(c)
	}
}

func (a *Aggregator) indexOf(productID int64) int {
	for i := range a.items {
		if a.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func normalize(item domain.LineItem) domain.LineItem {
	item.Quantity = ClampQuantity(item.Quantity, item.Stock)
	if item.UnitPrice.IsNegative() {
		item.UnitPrice = decimal.Zero
	}
	return item
}
