package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepper_IncrementStopsAtStock(t *testing.T) {
	s := NewStepper(2, 3)

	assert.True(t, s.Increment())
	assert.Equal(t, 3, s.Quantity)

	assert.False(t, s.Increment())
	assert.Equal(t, 3, s.Quantity)
}

func TestStepper_DecrementStopsAtOne(t *testing.T) {
	s := NewStepper(2, 3)

	assert.True(t, s.Decrement())
	assert.Equal(t, 1, s.Quantity)

	assert.False(t, s.Decrement())
	assert.Equal(t, 1, s.Quantity)
}

func TestStepper_State(t *testing.T) {
	assert.Equal(t, Normal, NewStepper(1, 1).State())
	assert.Equal(t, OutOfStock, NewStepper(1, 0).State())
	assert.Equal(t, OutOfStock, NewStepper(1, -2).State())
	assert.Equal(t, "out_of_stock", OutOfStock.String())
}

func TestStepper_OutOfStockNeverMoves(t *testing.T) {
	s := NewStepper(3, 0)

	assert.False(t, s.CanIncrement())
	assert.False(t, s.CanDecrement())
	assert.False(t, s.Increment())
	assert.False(t, s.Decrement())
	assert.Equal(t, 3, s.Quantity)
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		stock    int
		want     int
	}{
		{"within bounds", 2, 5, 2},
		{"above stock", 9, 5, 5},
		{"zero raised to one", 0, 5, 1},
		{"negative raised to one", -4, 5, 1},
		{"no stock keeps quantity", 7, 0, 7},
		{"no stock floors negative", -1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampQuantity(tt.quantity, tt.stock))
		})
	}
}
