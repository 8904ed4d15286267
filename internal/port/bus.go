package port

import (
	"context"

	"github.com/dumall/reconcile/internal/core/domain"
)

type PurchaseHandler func(ctx context.Context, event domain.PurchaseEvent)

// PurchaseBus propagates purchase-completed facts over two channels: a
// synchronous in-process dispatch to local subscribers and a store-level
// relay visible to other contexts. Subscribers receive events from both.
type PurchaseBus interface {
	// Publish stamps the event with an id and a monotonic sequence, then
	// delivers it.
	Publish(ctx context.Context, event domain.PurchaseEvent) error

	// Subscribe registers a handler; the returned function unsubscribes it.
	Subscribe(handler PurchaseHandler) func()
}
