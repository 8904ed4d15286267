package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

const casMaxRetries = 16

// loadJSON reads and decodes a stored value. Absent keys and malformed
// content both yield the type's zero value; corruption is never an error.
func loadJSON[T any](ctx context.Context, store port.Store, key string, out *T) (int64, error) {
	rec, err := store.Get(ctx, key)
	if errors.Is(err, port.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(rec.Value, out); err != nil {
		// Corrupt persisted data: discard and fall back to the empty
		// default, keeping the record's version so writers still serialize.
		var zero T
		*out = zero
	}
	return rec.Version, nil
}

// updateJSON applies mutate to the current value and writes it back. Under
// WriteFaithful the write is blind and concurrent writers can overwrite each
// other; under WriteVersioned it retries a bounded compare-and-swap loop.
func updateJSON[T any](ctx context.Context, store port.Store, key string, mode domain.WriteMode, mutate func(*T) error) error {
	for attempt := 0; attempt < casMaxRetries; attempt++ {
		var value T
		version, err := loadJSON(ctx, store, key, &value)
		if err != nil {
			return err
		}
		if err := mutate(&value); err != nil {
			return err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}

		if mode == domain.WriteFaithful {
			return store.Set(ctx, key, data)
		}
		err = store.CompareAndSwap(ctx, key, data, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, port.ErrVersionConflict) {
			return err
		}
	}
	return fmt.Errorf("update %s: %w", key, port.ErrVersionConflict)
}
