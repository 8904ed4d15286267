package domain

import "github.com/shopspring/decimal"

type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Category  string          `json:"category"`
}

// Cart holds the pending, unpurchased item selection. Items are unique per
// product id.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c *Cart) Find(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Add increments the quantity when the product is already in the cart,
// otherwise inserts a new line with quantity 1.
func (c *Cart) Add(p Product) {
	if item := c.Find(p.ID); item != nil {
		item.Quantity++
		return
	}
	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
		Category:  p.Category,
	})
}

func (c *Cart) Remove(productID int64) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// SetQuantity with qty <= 0 removes the line.
func (c *Cart) SetQuantity(productID int64, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	if item := c.Find(productID); item != nil {
		item.Quantity = qty
	}
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) TotalItems() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
