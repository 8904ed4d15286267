package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

const (
	seedQuantity       = 100
	seedMinQuantity    = 10
	restockMinQuantity = 20

	// Auto-restock adds a pseudo-random quantity in [50, 150).
	autoRestockBase = 50
	autoRestockSpan = 100

	operatorSystem = "system"
)

// Inventory owns the per-SKU stock records and their append-only transaction
// trail. It is the sole consumer of purchase events.
type Inventory struct {
	store   port.Store
	catalog port.ProductCatalog
	log     *slog.Logger

	mode domain.WriteMode
	rand *rand.Rand
	now  func() time.Time

	// applied tracks the last event sequence per publishing context when
	// dedup is enabled. Default off: deduction happens once per delivery,
	// however many deliveries arrive.
	mu      sync.Mutex
	dedup   bool
	applied map[string]int64
}

func NewInventory(store port.Store, catalog port.ProductCatalog, log *slog.Logger) *Inventory {
	if log == nil {
		log = slog.Default()
	}
	return &Inventory{
		store:   store,
		catalog: catalog,
		log:     log,
		mode:    domain.WriteFaithful,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		applied: make(map[string]int64),
	}
}

func (s *Inventory) SetWriteMode(mode domain.WriteMode) { s.mode = mode }

func (s *Inventory) SetRand(r *rand.Rand) { s.rand = r }

func (s *Inventory) SetNow(now func() time.Time) { s.now = now }

// EnableDedup makes ApplyPurchase idempotent per event by tracking the last
// applied sequence per origin context.
func (s *Inventory) EnableDedup() { s.dedup = true }

func (s *Inventory) List(ctx context.Context) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord
	if _, err := loadJSON(ctx, s.store, port.KeyInventory, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Inventory) Transactions(ctx context.Context) ([]domain.StockTransaction, error) {
	var txs []domain.StockTransaction
	if _, err := loadJSON(ctx, s.store, port.KeyTransactions, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Inventory) Summary(ctx context.Context) (domain.InventorySummary, error) {
	records, err := s.List(ctx)
	if err != nil {
		return domain.InventorySummary{}, err
	}
	summary := domain.InventorySummary{Records: len(records), StockValue: decimal.Zero}
	for _, rec := range records {
		summary.TotalUnits += rec.Quantity
		switch domain.StockStatusOf(rec.Quantity, rec.MinQuantity) {
		case domain.StockLowStock:
			summary.LowStock++
		case domain.StockOutOfStock:
			summary.OutOfStock++
		}
		summary.StockValue = summary.StockValue.Add(
			rec.Price.Mul(decimal.NewFromInt(int64(rec.Quantity))))
	}
	return summary, nil
}

// Seed initializes demo stock: every catalog product at 100 units. A no-op
// when records already exist.
func (s *Inventory) Seed(ctx context.Context) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	products, err := s.catalog.ListAll(ctx)
	if err != nil {
		s.log.Warn("catalog unavailable, seeding skipped", "error", err)
		return nil
	}

	now := s.now()
	records := make([]domain.InventoryRecord, 0, len(products))
	for i, p := range products {
		records = append(records, domain.InventoryRecord{
			ID:          fmt.Sprintf("%d", i+1),
			SKU:         p.SKU,
			ProductName: p.Name,
			Category:    p.Category,
			Quantity:    seedQuantity,
			MinQuantity: seedMinQuantity,
			Location:    warehouseLocation(i),
			Price:       p.Price,
			Status:      domain.StockStatusOf(seedQuantity, seedMinQuantity),
			LastUpdated: now,
		})
	}
	return updateJSON(ctx, s.store, port.KeyInventory, s.mode, func(current *[]domain.InventoryRecord) error {
		if len(*current) == 0 {
			*current = records
		}
		return nil
	})
}

// Restock adds quantityDelta to the SKU's stock, creating the record when the
// SKU is unknown. Always additive, never a set.
func (s *Inventory) Restock(ctx context.Context, sku string, quantityDelta int, operator, note string) error {
	if quantityDelta <= 0 {
		return fmt.Errorf("restock %s: delta must be positive", sku)
	}
	now := s.now()
	var tx domain.StockTransaction

	err := updateJSON(ctx, s.store, port.KeyInventory, s.mode, func(records *[]domain.InventoryRecord) error {
		for i := range *records {
			rec := &(*records)[i]
			if rec.SKU != sku {
				continue
			}
			rec.Quantity += quantityDelta
			rec.Status = domain.StockStatusOf(rec.Quantity, rec.MinQuantity)
			rec.LastUpdated = now
			tx = s.newTransaction(domain.TransactionIn, rec.ProductName, sku, quantityDelta, operator, note, now)
			return nil
		}

		created := s.recordForSKU(ctx, sku, quantityDelta, now)
		created.ID = fmt.Sprintf("%d", len(*records)+1)
		*records = append(*records, created)
		tx = s.newTransaction(domain.TransactionIn, created.ProductName, sku, quantityDelta, operator, note, now)
		return nil
	})
	if err != nil {
		return err
	}
	return s.appendTransaction(ctx, tx)
}

// Deduct finds the record by product name, not SKU: the purchase events the
// engine consumes only carry display names, and the join inherits that key.
// Quantity is clamped at zero; a missing record is logged and skipped.
func (s *Inventory) Deduct(ctx context.Context, productName string, quantity int) error {
	now := s.now()
	var tx domain.StockTransaction
	deducted := false

	err := updateJSON(ctx, s.store, port.KeyInventory, s.mode, func(records *[]domain.InventoryRecord) error {
		deducted = false
		for i := range *records {
			rec := &(*records)[i]
			if rec.ProductName != productName {
				continue
			}
			before := rec.Quantity
			after := before - quantity
			if after < 0 {
				after = 0
			}
			rec.Quantity = after
			rec.Status = domain.StockStatusOf(after, rec.MinQuantity)
			rec.LastUpdated = now
			tx = s.newTransaction(domain.TransactionOut, rec.ProductName, rec.SKU, quantity, operatorSystem,
				fmt.Sprintf("purchase - stock %d to %d", before, after), now)
			deducted = true
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !deducted {
		s.log.Warn("no inventory record for purchased product", "product_name", productName)
		return nil
	}
	return s.appendTransaction(ctx, tx)
}

// ApplyPurchase deducts each line of the event. Without dedup enabled a
// redelivered event deducts again.
func (s *Inventory) ApplyPurchase(ctx context.Context, event domain.PurchaseEvent) error {
	if s.dedup {
		s.mu.Lock()
		if event.Seq != 0 && event.Seq <= s.applied[event.Origin] {
			s.mu.Unlock()
			s.log.Debug("duplicate purchase event skipped", "order_id", event.OrderID, "seq", event.Seq)
			return nil
		}
		s.applied[event.Origin] = event.Seq
		s.mu.Unlock()
	}

	for _, line := range event.Items {
		if err := s.Deduct(ctx, line.ProductName, line.Quantity); err != nil {
			return err
		}
	}
	s.log.Info("purchase applied to inventory", "order_id", event.OrderID, "lines", len(event.Items))
	return nil
}

// Listen wires the purchase bus to ApplyPurchase.
func (s *Inventory) Listen(bus port.PurchaseBus) func() {
	return bus.Subscribe(func(ctx context.Context, event domain.PurchaseEvent) {
		if err := s.ApplyPurchase(ctx, event); err != nil {
			s.log.Error("applying purchase event failed", "order_id", event.OrderID, "error", err)
		}
	})
}

// AutoRestock walks the catalog: known products gain a pseudo-random
// quantity, absent ones are created. Operational convenience for seeding demo
// state.
func (s *Inventory) AutoRestock(ctx context.Context, operator string) (added, increased int, err error) {
	products, err := s.catalog.ListAll(ctx)
	if err != nil {
		s.log.Warn("catalog unavailable, auto-restock skipped", "error", err)
		return 0, 0, nil
	}

	now := s.now()
	var txs []domain.StockTransaction

	err = updateJSON(ctx, s.store, port.KeyInventory, s.mode, func(records *[]domain.InventoryRecord) error {
		added, increased = 0, 0
		txs = txs[:0]
		for i, p := range products {
			idx := -1
			for j := range *records {
				if (*records)[j].ProductName == p.Name && (*records)[j].SKU == p.SKU {
					idx = j
					break
				}
			}
			qty := autoRestockBase + s.rand.Intn(autoRestockSpan)
			if idx >= 0 {
				rec := &(*records)[idx]
				rec.Quantity += qty
				rec.Status = domain.StockStatusOf(rec.Quantity, rec.MinQuantity)
				rec.LastUpdated = now
				txs = append(txs, s.newTransaction(domain.TransactionIn, rec.ProductName, rec.SKU, qty,
					operator, "auto restock - quantity increased", now))
				increased++
			} else {
				rec := domain.InventoryRecord{
					ID:          fmt.Sprintf("%d", len(*records)+1),
					SKU:         p.SKU,
					ProductName: p.Name,
					Category:    p.Category,
					Quantity:    qty,
					MinQuantity: restockMinQuantity,
					Location:    warehouseLocation(i),
					Price:       p.Price,
					Status:      domain.StockStatusOf(qty, restockMinQuantity),
					LastUpdated: now,
				}
				*records = append(*records, rec)
				txs = append(txs, s.newTransaction(domain.TransactionIn, rec.ProductName, rec.SKU, qty,
					operator, "auto restock - new product", now))
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, tx := range txs {
		if err := s.appendTransaction(ctx, tx); err != nil {
			return added, increased, err
		}
	}
	s.log.Info("auto restock complete", "added", added, "increased", increased)
	return added, increased, nil
}

// recordForSKU builds a new record, filling product details from the catalog
// when the SKU is known there.
func (s *Inventory) recordForSKU(ctx context.Context, sku string, quantity int, now time.Time) domain.InventoryRecord {
	rec := domain.InventoryRecord{
		SKU:         sku,
		ProductName: sku,
		Quantity:    quantity,
		MinQuantity: restockMinQuantity,
		Price:       decimal.Zero,
		Status:      domain.StockStatusOf(quantity, restockMinQuantity),
		LastUpdated: now,
	}
	if s.catalog == nil {
		return rec
	}
	products, err := s.catalog.ListAll(ctx)
	if err != nil {
		return rec
	}
	for i, p := range products {
		if p.SKU == sku {
			rec.ProductName = p.Name
			rec.Category = p.Category
			rec.Price = p.Price
			rec.Location = warehouseLocation(i)
			break
		}
	}
	return rec
}

func (s *Inventory) newTransaction(kind domain.TransactionType, productName, sku string, quantity int, operator, notes string, now time.Time) domain.StockTransaction {
	return domain.StockTransaction{
		ID:          uuid.NewString(),
		Type:        kind,
		ProductName: productName,
		SKU:         sku,
		Quantity:    quantity,
		Operator:    operator,
		Date:        now,
		Notes:       notes,
	}
}

// appendTransaction prepends, newest first.
func (s *Inventory) appendTransaction(ctx context.Context, tx domain.StockTransaction) error {
	return updateJSON(ctx, s.store, port.KeyTransactions, s.mode, func(txs *[]domain.StockTransaction) error {
		*txs = append([]domain.StockTransaction{tx}, *txs...)
		return nil
	})
}

// warehouseLocation assigns grid slots like "A-01-03".
func warehouseLocation(index int) string {
	return fmt.Sprintf("%c-%02d-%02d", 'A'+rune(index/5), index%5+1, index%10+1)
}
