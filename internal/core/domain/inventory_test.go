package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockStatusOf(t *testing.T) {
	cases := []struct {
		name        string
		quantity    int
		minQuantity int
		want        StockStatus
	}{
		{"zero is out of stock", 0, 10, StockOutOfStock},
		{"zero with zero min", 0, 0, StockOutOfStock},
		{"at min is low", 10, 10, StockLowStock},
		{"below min is low", 3, 10, StockLowStock},
		{"one above min is in stock", 11, 10, StockInStock},
		{"well above min is in stock", 100, 10, StockInStock},
		{"positive with zero min is in stock", 1, 0, StockInStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StockStatusOf(tc.quantity, tc.minQuantity))
		})
	}
}
