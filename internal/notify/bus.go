// Package notify carries purchase-completed facts over two channels: a
// synchronous in-process dispatch and a store-level relay that only other
// contexts observe. Under this wiring each context sees each event exactly
// once; there is no delivery dedup beyond the relay's origin filtering.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

type Bus struct {
	store port.Store
	log   *slog.Logger

	mu      sync.Mutex
	seq     int64
	subs    map[int]port.PurchaseHandler
	nextSub int
	cancel  func()
}

var _ port.PurchaseBus = (*Bus)(nil)

func New(store port.Store, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		store: store,
		log:   log,
		subs:  make(map[int]port.PurchaseHandler),
	}
}

// Start begins consuming the cross-context relay. Without it the bus still
// delivers locally.
func (b *Bus) Start(ctx context.Context) error {
	changes, cancel, err := b.store.Subscribe(ctx, port.KeyPurchaseEvents)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	go func() {
		for change := range changes {
			var event domain.PurchaseEvent
			if err := json.Unmarshal(change.Value, &event); err != nil {
				b.log.Warn("discarding malformed purchase event", "error", err)
				continue
			}
			b.dispatch(ctx, event)
		}
	}()
	return nil
}

func (b *Bus) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Publish stamps the event, delivers it synchronously to local subscribers,
// then writes it through the store so other contexts pick it up.
func (b *Bus) Publish(ctx context.Context, event domain.PurchaseEvent) error {
	b.mu.Lock()
	b.seq++
	event.EventID = uuid.NewString()
	event.Origin = b.store.Origin()
	event.Seq = b.seq
	b.mu.Unlock()

	b.dispatch(ctx, event)

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, port.KeyPurchaseEvents, payload); err != nil {
		// Local consumers already ran; the cross-context channel is best
		// effort.
		b.log.Warn("cross-context relay failed", "order_id", event.OrderID, "error", err)
	}
	return nil
}

func (b *Bus) Subscribe(handler port.PurchaseHandler) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.PurchaseEvent) {
	b.mu.Lock()
	handlers := make([]port.PurchaseHandler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, event)
	}
}
