package domain

// PurchaseLine joins back to inventory by product name. Purchase events carry
// display names, so deductions are routed by name; SKU is optional and unused
// by the join.
type PurchaseLine struct {
	ProductName string `json:"product_name"`
	SKU         string `json:"sku,omitempty"`
	Quantity    int    `json:"quantity"`
}

// PurchaseEvent is the payload carried over the purchase bus. Ephemeral, not
// persisted as its own entity. Seq is monotonic per publishing context;
// together with Origin it gives consumers a dedup key.
type PurchaseEvent struct {
	EventID string         `json:"event_id"`
	Origin  string         `json:"origin"`
	Seq     int64          `json:"seq"`
	OrderID string         `json:"order_id"`
	UserID  int64          `json:"user_id"`
	Items   []PurchaseLine `json:"items"`
}
