package port

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrVersionConflict = errors.New("version conflict")
)

// Logical keys shared by all execution contexts.
const (
	KeyCart           = "cart"
	KeyOrders         = "orders"
	KeyInventory      = "inventory"
	KeyTransactions   = "inventory-transactions"
	KeyAuthSession    = "auth-session"
	KeyPurchaseEvents = "purchase-events"
)

// KeyTotalSpent is the per-user running total-spent counter.
func KeyTotalSpent(userID int64) string {
	return fmt.Sprintf("user:%d:total-spent", userID)
}

type Record struct {
	Value   []byte
	Version int64
}

// KeyChange is delivered to subscribers in other contexts when a watched key
// changes. Writes made by the subscribing context itself are not delivered
// back to it.
type KeyChange struct {
	Key     string
	Value   []byte
	Version int64
	Origin  string
}

// Store is the persisted key-value store shared across execution contexts.
// There are no multi-key transactions; Set is a blind overwrite and
// CompareAndSwap is the only serialized write path.
type Store interface {
	// Get returns ErrKeyNotFound for absent keys.
	Get(ctx context.Context, key string) (Record, error)

	// Set overwrites the value unconditionally and bumps the version.
	Set(ctx context.Context, key string, value []byte) error

	// CompareAndSwap writes only when the stored version matches
	// expectVersion, returning ErrVersionConflict otherwise. An
	// expectVersion of 0 means the key must not exist yet.
	CompareAndSwap(ctx context.Context, key string, value []byte, expectVersion int64) error

	Remove(ctx context.Context, key string) error

	// Subscribe delivers changes made to key by other contexts. Delivery is
	// best effort. The cancel function releases the subscription.
	Subscribe(ctx context.Context, key string) (<-chan KeyChange, func(), error)

	// Origin identifies this execution context for change filtering.
	Origin() string
}
