package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

// Orders is the append-only order ledger plus the per-user total-spent
// counter. Nothing in the engine updates or deletes an appended order.
type Orders struct {
	store port.Store
	mode  domain.WriteMode
	log   *slog.Logger
}

func NewOrders(store port.Store, log *slog.Logger) *Orders {
	if log == nil {
		log = slog.Default()
	}
	return &Orders{store: store, mode: domain.WriteFaithful, log: log}
}

func (s *Orders) SetWriteMode(mode domain.WriteMode) { s.mode = mode }

func (s *Orders) Append(ctx context.Context, order domain.Order) error {
	err := updateJSON(ctx, s.store, port.KeyOrders, s.mode, func(orders *[]domain.Order) error {
		*orders = append(*orders, order)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("order appended", "order_id", order.ID, "user_id", order.UserID,
		"total", order.TotalAmount.StringFixed(2))
	return nil
}

// ListForUser returns the user's orders in original append order, which is
// chronological by construction.
func (s *Orders) ListForUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	if _, err := loadJSON(ctx, s.store, port.KeyOrders, &orders); err != nil {
		return nil, err
	}
	var matched []domain.Order
	for _, order := range orders {
		if order.UserID == userID {
			matched = append(matched, order)
		}
	}
	return matched, nil
}

func (s *Orders) TotalSpent(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	if _, err := loadJSON(ctx, s.store, port.KeyTotalSpent(userID), &total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// AddSpent bumps the running counter. The ledger append and this write are
// two separate store operations with no atomicity between them; the ledger
// invariant holds only when both run together.
func (s *Orders) AddSpent(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return updateJSON(ctx, s.store, port.KeyTotalSpent(userID), s.mode, func(total *decimal.Decimal) error {
		*total = total.Add(amount)
		return nil
	})
}
