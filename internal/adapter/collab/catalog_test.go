package collab

import (
	"context"
	"errors"
	"testing"

	"github.com/dumall/reconcile/internal/port"
)

func TestStaticCatalog_ListAll(t *testing.T) {
	catalog := NewStaticCatalog()

	products, err := catalog.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 10 {
		t.Fatalf("expected 10 products, got %d", len(products))
	}

	// Callers get a copy.
	products[0].Name = "mutated"
	again, _ := catalog.ListAll(context.Background())
	if again[0].Name == "mutated" {
		t.Error("catalog must not be externally mutable")
	}
}

func TestStaticCatalog_GetByID(t *testing.T) {
	catalog := NewStaticCatalog()

	p, err := catalog.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if p.Name != "iPhone 15 Pro" || p.SKU != "IP15P-256-BLK" {
		t.Errorf("unexpected product %+v", p)
	}

	if _, err := catalog.GetByID(context.Background(), 999); !errors.Is(err, port.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestStaticCatalog_Search(t *testing.T) {
	catalog := NewStaticCatalog()

	hits, err := catalog.Search(context.Background(), "iphone")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Errorf("expected the phone, got %+v", hits)
	}

	if none, _ := catalog.Search(context.Background(), "nonexistent"); len(none) != 0 {
		t.Errorf("expected no hits, got %+v", none)
	}
}

func TestStaticCatalog_ListByCategory(t *testing.T) {
	catalog := NewStaticCatalog()

	apparel, err := catalog.ListByCategory(context.Background(), "apparel")
	if err != nil {
		t.Fatalf("list by category failed: %v", err)
	}
	if len(apparel) != 3 {
		t.Errorf("expected 3 apparel products, got %d", len(apparel))
	}
	for _, p := range apparel {
		if p.Category != "apparel" {
			t.Errorf("wrong category in %+v", p)
		}
	}
}
