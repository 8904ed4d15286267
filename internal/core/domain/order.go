package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

// Only terminal success states are ever persisted; failed payment attempts
// never produce an order.
const OrderStatusPaid OrderStatus = "paid"

type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order is immutable once appended to the ledger.
type Order struct {
	ID                 string          `json:"id"`
	UserID             int64           `json:"user_id"`
	Items              []OrderItem     `json:"items"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaymentMethod      string          `json:"payment_method"`
	Status             OrderStatus     `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	PaymentCompletedAt time.Time       `json:"payment_completed_at"`
}

// NewOrder snapshots the cart lines and computes the total at creation time,
// rounded to two decimal places.
func NewOrder(userID int64, items []CartItem, paymentMethod string, now time.Time) Order {
	snapshot := make([]OrderItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		snapshot = append(snapshot, OrderItem{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return Order{
		ID:                 NewOrderID(now),
		UserID:             userID,
		Items:              snapshot,
		TotalAmount:        total.Round(2),
		PaymentMethod:      paymentMethod,
		Status:             OrderStatusPaid,
		CreatedAt:          now,
		PaymentCompletedAt: now,
	}
}

// NewOrderID is opaque and collision chances are negligible; it is not
// guaranteed globally unique.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

type PaymentMethod struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Number string `json:"number"`
}
