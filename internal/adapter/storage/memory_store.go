package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dumall/reconcile/internal/port"
)

const subscriberBuffer = 64

// MemoryBackend is a process-local stand-in for the shared persisted store.
// Handles opened against the same backend share data but carry distinct
// origins, so two handles model two browsing contexts over one shared store.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]port.Record
	subs    map[string][]*memorySub
}

type memorySub struct {
	origin string
	ch     chan port.KeyChange
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]port.Record),
		subs:    make(map[string][]*memorySub),
	}
}

// Handle opens an execution-context view of the backend. An empty origin gets
// a generated one.
func (b *MemoryBackend) Handle(origin string) *MemoryStore {
	if origin == "" {
		origin = uuid.NewString()
	}
	return &MemoryStore{backend: b, origin: origin}
}

type MemoryStore struct {
	backend *MemoryBackend
	origin  string
}

var _ port.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Origin() string { return s.origin }

func (s *MemoryStore) Get(ctx context.Context, key string) (port.Record, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[key]
	if !ok {
		return port.Record{}, port.ErrKeyNotFound
	}
	value := make([]byte, len(rec.Value))
	copy(value, rec.Value)
	return port.Record{Value: value, Version: rec.Version}, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	b := s.backend
	b.mu.Lock()
	rec := b.records[key]
	rec.Value = append([]byte(nil), value...)
	rec.Version++
	b.records[key] = rec
	b.notifyLocked(key, rec, s.origin)
	b.mu.Unlock()
	return nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, key string, value []byte, expectVersion int64) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.records[key]
	if rec.Version != expectVersion {
		return port.ErrVersionConflict
	}
	rec.Value = append([]byte(nil), value...)
	rec.Version++
	b.records[key] = rec
	b.notifyLocked(key, rec, s.origin)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	b := s.backend
	b.mu.Lock()
	delete(b.records, key)
	b.mu.Unlock()
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, key string) (<-chan port.KeyChange, func(), error) {
	b := s.backend
	sub := &memorySub{origin: s.origin, ch: make(chan port.KeyChange, subscriberBuffer)}

	b.mu.Lock()
	b.subs[key] = append(b.subs[key], sub)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		subs := b.subs[key]
		for i, candidate := range subs {
			if candidate == sub {
				b.subs[key] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel, nil
}

// notifyLocked fans a change out to subscribers in other contexts only: the
// writing context never hears its own store-level change. Delivery is best
// effort; slow subscribers drop changes.
func (b *MemoryBackend) notifyLocked(key string, rec port.Record, writerOrigin string) {
	for _, sub := range b.subs[key] {
		if sub.origin == writerOrigin {
			continue
		}
		change := port.KeyChange{
			Key:     key,
			Value:   append([]byte(nil), rec.Value...),
			Version: rec.Version,
			Origin:  writerOrigin,
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
}
