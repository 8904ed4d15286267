package service

import (
	"context"

	"github.com/dumall/reconcile/internal/port"
)

// Reset removes the engine's persisted keys, the storefront's "clear data"
// action. Per-user total-spent counters are keyed by user id and cleared for
// the given ids.
func Reset(ctx context.Context, store port.Store, userIDs ...int64) error {
	keys := []string{
		port.KeyCart,
		port.KeyOrders,
		port.KeyInventory,
		port.KeyTransactions,
		port.KeyAuthSession,
		port.KeyPurchaseEvents,
	}
	for _, id := range userIDs {
		keys = append(keys, port.KeyTotalSpent(id))
	}
	for _, key := range keys {
		if err := store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
