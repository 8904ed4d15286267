package collab

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

// SeedProducts is the storefront's fixed demo catalog.
func SeedProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "iPhone 15 Pro", Category: "electronics", Price: decimal.NewFromInt(8999), SKU: "IP15P-256-BLK"},
		{ID: 2, Name: "MacBook Air M2", Category: "electronics", Price: decimal.NewFromInt(12999), SKU: "MBA-M2-512-SLV"},
		{ID: 3, Name: "AirPods Pro", Category: "electronics", Price: decimal.NewFromInt(1999), SKU: "APP-2ND-GEN"},
		{ID: 4, Name: "Nike Air Max", Category: "apparel", Price: decimal.NewFromInt(899), SKU: "NAM-270-WHT"},
		{ID: 5, Name: "Mechanical Keyboard", Category: "electronics", Price: decimal.NewFromInt(299), SKU: "MK-87-RGB"},
		{ID: 6, Name: "iPad Air", Category: "electronics", Price: decimal.NewFromInt(4799), SKU: "IPA-256-SLV"},
		{ID: 7, Name: "Mi Band 8", Category: "electronics", Price: decimal.NewFromInt(199), SKU: "XMH-8-BLK"},
		{ID: 8, Name: "Bluetooth Headset", Category: "electronics", Price: decimal.NewFromInt(399), SKU: "BT-HEADSET"},
		{ID: 9, Name: "Running Shoes", Category: "apparel", Price: decimal.NewFromInt(599), SKU: "SNEAKERS-001"},
		{ID: 10, Name: "Backpack", Category: "apparel", Price: decimal.NewFromInt(299), SKU: "BACKPACK-001"},
	}
}

// StaticCatalog serves the fixed product list. It stands in for the real
// catalog collaborator, whose failures surface as empty results anyway.
type StaticCatalog struct {
	products []domain.Product
}

var _ port.ProductCatalog = (*StaticCatalog)(nil)

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{products: SeedProducts()}
}

func (c *StaticCatalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

func (c *StaticCatalog) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, port.ErrProductNotFound
}

func (c *StaticCatalog) Search(ctx context.Context, keyword string) ([]domain.Product, error) {
	keyword = strings.ToLower(keyword)
	var out []domain.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), keyword) ||
			strings.Contains(strings.ToLower(p.Description), keyword) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *StaticCatalog) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}
