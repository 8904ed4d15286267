package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

type WarningKind string

const (
	WarnOutOfStock        WarningKind = "out_of_stock"
	WarnInsufficientStock WarningKind = "insufficient_stock"
	WarnLowStock          WarningKind = "low_stock"
)

type StockWarning struct {
	ProductName string      `json:"product_name"`
	Kind        WarningKind `json:"kind"`
	Available   int         `json:"available"`
	Requested   int         `json:"requested"`
}

// Blocking reports whether the warning must stop a checkout. Low-stock is
// advisory only.
func (w StockWarning) Blocking() bool {
	return w.Kind == WarnOutOfStock || w.Kind == WarnInsufficientStock
}

// stockReader is the slice of the inventory service the cart needs for its
// advisory validation.
type stockReader interface {
	List(ctx context.Context) ([]domain.InventoryRecord, error)
}

// Cart holds the pending item selection for one context, persisted under the
// shared cart key. Stock validation re-reads the inventory ledger on every
// call; it is advisory, never authoritative.
type Cart struct {
	store port.Store
	stock stockReader
	mode  domain.WriteMode
	log   *slog.Logger
}

func NewCart(store port.Store, stock stockReader, log *slog.Logger) *Cart {
	if log == nil {
		log = slog.Default()
	}
	return &Cart{store: store, stock: stock, mode: domain.WriteFaithful, log: log}
}

func (s *Cart) SetWriteMode(mode domain.WriteMode) { s.mode = mode }

func (s *Cart) Items(ctx context.Context) ([]domain.CartItem, error) {
	var cart domain.Cart
	if _, err := loadJSON(ctx, s.store, port.KeyCart, &cart); err != nil {
		return nil, err
	}
	return cart.Items, nil
}

// Add puts one unit of the product into the cart, merging with an existing
// line. Rejected (false, nil) when the product is out of stock or the
// resulting quantity would exceed the latest locally-known stock.
func (s *Cart) Add(ctx context.Context, product domain.Product) (bool, error) {
	accepted := false
	err := updateJSON(ctx, s.store, port.KeyCart, s.mode, func(cart *domain.Cart) error {
		requested := 1
		if item := cart.Find(product.ID); item != nil {
			requested = item.Quantity + 1
		}
		ok, err := s.allows(ctx, product.Name, requested)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cart.Add(product)
		accepted = true
		return nil
	})
	return accepted, err
}

// SetQuantity rejects requests above the current stock, retaining the prior
// quantity. qty <= 0 removes the line.
func (s *Cart) SetQuantity(ctx context.Context, productID int64, qty int) (bool, error) {
	accepted := false
	err := updateJSON(ctx, s.store, port.KeyCart, s.mode, func(cart *domain.Cart) error {
		if qty <= 0 {
			cart.Remove(productID)
			accepted = true
			return nil
		}
		item := cart.Find(productID)
		if item == nil {
			return nil
		}
		ok, err := s.allows(ctx, item.Name, qty)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cart.SetQuantity(productID, qty)
		accepted = true
		return nil
	})
	return accepted, err
}

func (s *Cart) Remove(ctx context.Context, productID int64) error {
	return updateJSON(ctx, s.store, port.KeyCart, s.mode, func(cart *domain.Cart) error {
		cart.Remove(productID)
		return nil
	})
}

func (s *Cart) Clear(ctx context.Context) error {
	return updateJSON(ctx, s.store, port.KeyCart, s.mode, func(cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
}

func (s *Cart) TotalItems(ctx context.Context) (int, error) {
	var cart domain.Cart
	if _, err := loadJSON(ctx, s.store, port.KeyCart, &cart); err != nil {
		return 0, err
	}
	return cart.TotalItems(), nil
}

func (s *Cart) TotalPrice(ctx context.Context) (decimal.Decimal, error) {
	var cart domain.Cart
	if _, err := loadJSON(ctx, s.store, port.KeyCart, &cart); err != nil {
		return decimal.Zero, err
	}
	return cart.TotalPrice(), nil
}

// CheckStock re-validates every cart line against the inventory ledger. The
// result reflects the latest locally-known state and may be stale relative to
// other contexts.
func (s *Cart) CheckStock(ctx context.Context) ([]StockWarning, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.stock.List(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]domain.InventoryRecord, len(records))
	for _, rec := range records {
		byName[rec.ProductName] = rec
	}

	var warnings []StockWarning
	for _, item := range items {
		rec, ok := byName[item.Name]
		if !ok {
			continue
		}
		switch {
		case rec.Quantity == 0:
			warnings = append(warnings, StockWarning{
				ProductName: item.Name, Kind: WarnOutOfStock, Requested: item.Quantity,
			})
		case item.Quantity > rec.Quantity:
			warnings = append(warnings, StockWarning{
				ProductName: item.Name, Kind: WarnInsufficientStock,
				Available: rec.Quantity, Requested: item.Quantity,
			})
		case domain.StockStatusOf(rec.Quantity, rec.MinQuantity) == domain.StockLowStock:
			warnings = append(warnings, StockWarning{
				ProductName: item.Name, Kind: WarnLowStock,
				Available: rec.Quantity, Requested: item.Quantity,
			})
		}
	}
	return warnings, nil
}

// allows checks a single requested quantity against current stock. Products
// unknown to the ledger pass: the ledger is advisory.
func (s *Cart) allows(ctx context.Context, productName string, requested int) (bool, error) {
	records, err := s.stock.List(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.ProductName != productName {
			continue
		}
		if rec.Quantity == 0 || requested > rec.Quantity {
			s.log.Info("cart mutation rejected by stock check",
				"product_name", productName, "requested", requested, "available", rec.Quantity)
			return false, nil
		}
		return true, nil
	}
	return true, nil
}
