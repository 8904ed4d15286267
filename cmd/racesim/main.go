// Command racesim demonstrates the cross-context lost-update anomaly: two
// contexts share one store, each runs read-modify-write deductions, and under
// blind writes the second writer silently overwrites the first. Versioned
// writes serialize them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dumall/reconcile/internal/adapter/collab"
	"github.com/dumall/reconcile/internal/adapter/storage"
	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/core/service"
)

const (
	initialStock   = 10000
	deductionsEach = 200
	sku            = "IP15P-256-BLK"
	productName    = "iPhone 15 Pro"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	fmt.Println("========== LOST-UPDATE SIMULATION ==========")
	for _, mode := range []domain.WriteMode{domain.WriteFaithful, domain.WriteVersioned} {
		final, elapsed := run(mode, log)
		expected := initialStock - 2*deductionsEach

		name := "faithful (blind writes)"
		if mode == domain.WriteVersioned {
			name = "versioned (compare-and-swap)"
		}
		fmt.Printf("mode:            %s\n", name)
		fmt.Printf("initial stock:   %d\n", initialStock)
		fmt.Printf("deductions:      2 contexts x %d\n", deductionsEach)
		fmt.Printf("expected stock:  %d\n", expected)
		fmt.Printf("final stock:     %d\n", final)
		fmt.Printf("lost updates:    %d\n", final-expected)
		fmt.Printf("duration:        %v\n", elapsed)
		if final == expected {
			fmt.Println("result:          no anomaly")
		} else {
			fmt.Println("result:          LOST UPDATES OBSERVED")
		}
		fmt.Println("--------------------------------------------")
	}
}

func run(mode domain.WriteMode, log *slog.Logger) (finalStock int, elapsed time.Duration) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	catalog := collab.NewStaticCatalog()

	// Two handles over the same backing store model two open tabs.
	tabA := service.NewInventory(backend.Handle("tab-a"), catalog, log)
	tabB := service.NewInventory(backend.Handle("tab-b"), catalog, log)
	tabA.SetWriteMode(mode)
	tabB.SetWriteMode(mode)

	if err := tabA.Restock(ctx, sku, initialStock, "racesim", "initial stock"); err != nil {
		fmt.Fprintf(os.Stderr, "restock failed: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, tab := range []*service.Inventory{tabA, tabB} {
		wg.Add(1)
		go func(inv *service.Inventory) {
			defer wg.Done()
			for i := 0; i < deductionsEach; i++ {
				if err := inv.Deduct(ctx, productName, 1); err != nil {
					fmt.Fprintf(os.Stderr, "deduct failed: %v\n", err)
					os.Exit(1)
				}
			}
		}(tab)
	}
	wg.Wait()
	elapsed = time.Since(start)

	records, err := tabA.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
		os.Exit(1)
	}
	for _, rec := range records {
		if rec.SKU == sku {
			return rec.Quantity, elapsed
		}
	}
	return -1, elapsed
}
