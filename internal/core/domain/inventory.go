package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// StockStatusOf derives the stock status from quantities. Status is never
// stored as source of truth; every call site goes through this function.
func StockStatusOf(quantity, minQuantity int) StockStatus {
	switch {
	case quantity == 0:
		return StockOutOfStock
	case quantity <= minQuantity:
		return StockLowStock
	default:
		return StockInStock
	}
}

type InventoryRecord struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	MinQuantity int             `json:"min_quantity"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"`
	Status      StockStatus     `json:"status"`
	LastUpdated time.Time       `json:"last_updated"`
}

type TransactionType string

const (
	TransactionIn  TransactionType = "in"
	TransactionOut TransactionType = "out"
)

// StockTransaction is the append-only audit trail: one row per inventory
// mutation.
type StockTransaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Operator    string          `json:"operator"`
	Date        time.Time       `json:"date"`
	Notes       string          `json:"notes,omitempty"`
}

type InventorySummary struct {
	Records    int             `json:"records"`
	TotalUnits int             `json:"total_units"`
	LowStock   int             `json:"low_stock"`
	OutOfStock int             `json:"out_of_stock"`
	StockValue decimal.Decimal `json:"stock_value"`
}
