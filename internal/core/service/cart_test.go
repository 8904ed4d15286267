package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dumall/reconcile/internal/adapter/storage"
	"github.com/dumall/reconcile/internal/core/domain"
)

// Fixed-ledger stock reader for cart tests.
type stubStock struct {
	records []domain.InventoryRecord
}

func (s *stubStock) List(ctx context.Context) ([]domain.InventoryRecord, error) {
	return s.records, nil
}

func newTestCart(t *testing.T, stock *stubStock) *Cart {
	t.Helper()
	store := storage.NewMemoryBackend().Handle("test")
	return NewCart(store, stock, quietLogger())
}

func phoneProduct() domain.Product {
	return domain.Product{ID: 1, Name: "iPhone 15 Pro", Category: "electronics",
		Price: decimal.NewFromInt(8999), SKU: "IP15P"}
}

func TestCartAdd_MergesLines(t *testing.T) {
	stock := &stubStock{records: []domain.InventoryRecord{
		{SKU: "IP15P", ProductName: "iPhone 15 Pro", Quantity: 10, MinQuantity: 2},
	}}
	cart := newTestCart(t, stock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cart.Add(ctx, phoneProduct())
		if err != nil || !ok {
			t.Fatalf("add %d: ok=%v err=%v", i, ok, err)
		}
	}

	items, err := cart.Items(ctx)
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Errorf("expected one line with quantity 3, got %+v", items)
	}
}

func TestCartAdd_RejectsOutOfStock(t *testing.T) {
	stock := &stubStock{records: []domain.InventoryRecord{
		{SKU: "IP15P", ProductName: "iPhone 15 Pro", Quantity: 0, MinQuantity: 2},
	}}
	cart := newTestCart(t, stock)
	ctx := context.Background()

	ok, err := cart.Add(ctx, phoneProduct())
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if ok {
		t.Error("expected rejection for out-of-stock product")
	}
	if n, _ := cart.TotalItems(ctx); n != 0 {
		t.Errorf("expected empty cart, got %d items", n)
	}
}

func TestCartAdd_RejectsBeyondStock(t *testing.T) {
	stock := &stubStock{records: []domain.InventoryRecord{
		{SKU: "IP15P", ProductName: "iPhone 15 Pro", Quantity: 2, MinQuantity: 1},
	}}
	cart := newTestCart(t, stock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := cart.Add(ctx, phoneProduct()); !ok {
			t.Fatalf("add %d rejected", i)
		}
	}
	ok, err := cart.Add(ctx, phoneProduct())
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if ok {
		t.Error("expected third add to be rejected at stock 2")
	}
	if n, _ := cart.TotalItems(ctx); n != 2 {
		t.Errorf("expected quantity to stay at 2, got %d", n)
	}
}

func TestCartAdd_UnknownProductPasses(t *testing.T) {
	cart := newTestCart(t, &stubStock{})
	ctx := context.Background()

	// The ledger is advisory: products it has never heard of are accepted.
	ok, err := cart.Add(ctx, phoneProduct())
	if err != nil || !ok {
		t.Fatalf("expected add to pass, ok=%v err=%v", ok, err)
	}
}

func TestCartSetQuantity(t *testing.T) {
	stock := &stubStock{records: []domain.InventoryRecord{
		{SKU: "IP15P", ProductName: "iPhone 15 Pro", Quantity: 5, MinQuantity: 1},
	}}
	cart := newTestCart(t, stock)
	ctx := context.Background()

	if ok, _ := cart.Add(ctx, phoneProduct()); !ok {
		t.Fatal("add rejected")
	}

	if ok, err := cart.SetQuantity(ctx, 1, 4); err != nil || !ok {
		t.Fatalf("set quantity: ok=%v err=%v", ok, err)
	}
	if n, _ := cart.TotalItems(ctx); n != 4 {
		t.Errorf("expected 4 items, got %d", n)
	}

	// Above stock: rejected, prior quantity retained.
	ok, err := cart.SetQuantity(ctx, 1, 6)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if ok {
		t.Error("expected rejection above stock")
	}
	if n, _ := cart.TotalItems(ctx); n != 4 {
		t.Errorf("expected quantity to stay at 4, got %d", n)
	}

	// Zero removes the line.
	if ok, _ := cart.SetQuantity(ctx, 1, 0); !ok {
		t.Error("expected zero quantity to be accepted as removal")
	}
	if items, _ := cart.Items(ctx); len(items) != 0 {
		t.Errorf("expected empty cart, got %+v", items)
	}
}

func TestCartTotals(t *testing.T) {
	stock := &stubStock{records: []domain.InventoryRecord{
		{SKU: "IP15P", ProductName: "iPhone 15 Pro", Quantity: 10, MinQuantity: 1},
		{SKU: "APP-2ND-GEN", ProductName: "AirPods Pro", Quantity: 10, MinQuantity: 1},
	}}
	cart := newTestCart(t, stock)
	ctx := context.Background()

	airpods := domain.Product{ID: 3, Name: "AirPods Pro", Category: "electronics",
		Price: decimal.NewFromInt(1999), SKU: "APP-2ND-GEN"}

	cart.Add(ctx, phoneProduct())
	cart.Add(ctx, phoneProduct())
	cart.Add(ctx, airpods)

	total, err := cart.TotalPrice(ctx)
	if err != nil {
		t.Fatalf("total price failed: %v", err)
	}
	want := decimal.NewFromInt(8999*2 + 1999)
	if !total.Equal(want) {
		t.Errorf("expected total %s, got %s", want, total)
	}
	if n, _ := cart.TotalItems(ctx); n != 3 {
		t.Errorf("expected 3 items, got %d", n)
	}
}

func TestCheckStock_Warnings(t *testing.T) {
	stock := &stubStock{records: []domain.InventoryRecord{
		{SKU: "IP15P", ProductName: "iPhone 15 Pro", Quantity: 10, MinQuantity: 1},
	}}
	cart := newTestCart(t, stock)
	ctx := context.Background()

	cart.Add(ctx, phoneProduct())
	cart.SetQuantity(ctx, 1, 8)

	// Stock drains after the cart was filled.
	stock.records[0].Quantity = 5
	warnings, err := cart.CheckStock(ctx)
	if err != nil {
		t.Fatalf("check stock failed: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != WarnInsufficientStock {
		t.Fatalf("expected insufficient_stock warning, got %+v", warnings)
	}
	if !warnings[0].Blocking() {
		t.Error("insufficient_stock must block checkout")
	}
	if warnings[0].Available != 5 || warnings[0].Requested != 8 {
		t.Errorf("unexpected counts %+v", warnings[0])
	}

	stock.records[0].Quantity = 0
	warnings, _ = cart.CheckStock(ctx)
	if len(warnings) != 1 || warnings[0].Kind != WarnOutOfStock {
		t.Fatalf("expected out_of_stock warning, got %+v", warnings)
	}

	// Low stock is advisory only.
	stock.records[0].Quantity = 10
	stock.records[0].MinQuantity = 50
	warnings, _ = cart.CheckStock(ctx)
	if len(warnings) != 1 || warnings[0].Kind != WarnLowStock {
		t.Fatalf("expected low_stock warning, got %+v", warnings)
	}
	if warnings[0].Blocking() {
		t.Error("low_stock must not block checkout")
	}
}

func TestCartClear(t *testing.T) {
	cart := newTestCart(t, &stubStock{})
	ctx := context.Background()

	cart.Add(ctx, phoneProduct())
	if err := cart.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if items, _ := cart.Items(ctx); len(items) != 0 {
		t.Errorf("expected empty cart, got %+v", items)
	}
}
