package cart

type StepperState int

const (
	Normal StepperState = iota
	OutOfStock
)

func (s StepperState) String() string {
	switch s {
	case Normal:
		return "normal"
	case OutOfStock:
		return "out_of_stock"
	default:
		return "unknown"
	}
}

// Stepper moves a line quantity within [1, stock]. With no stock the
// quantity is display-only and neither direction moves it.
type Stepper struct {
	Quantity int
	Stock    int
}

func NewStepper(quantity, stock int) Stepper {
	return Stepper{Quantity: ClampQuantity(quantity, stock), Stock: stock}
}

func (s Stepper) State() StepperState {
	if s.Stock <= 0 {
		return OutOfStock
	}
	return Normal
}

func (s Stepper) CanIncrement() bool {
	return s.State() == Normal && s.Quantity+1 <= s.Stock
}

func (s Stepper) CanDecrement() bool {
	return s.State() == Normal && s.Quantity-1 >= 1
}

// Increment reports whether the quantity changed.
func (s *Stepper) Increment() bool {
	if !s.CanIncrement() {
		return false
	}
	s.Quantity++
	return true
}

// Decrement reports whether the quantity changed.
func (s *Stepper) Decrement() bool {
	if !s.CanDecrement() {
		return false
	}
	s.Quantity--
	return true
}

// ClampQuantity forces quantity into [1, stock] for stocked lines. Lines
// without stock keep their quantity, floored at 0.
func ClampQuantity(quantity, stock int) int {
	quantity = max(quantity, 0)
	if stock <= 0 {
		return quantity
	}
	return min(max(quantity, 1), stock)
}
