package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dumall/reconcile/internal/port"
)

const (
	valueKeyPrefix   = "kv:"
	versionKeyPrefix = "kv-ver:"
	changeChanPrefix = "kv-chg:"
)

var setScript = redis.NewScript(`
local valkey = KEYS[1]
local verkey = KEYS[2]

redis.call('SET', valkey, ARGV[1])
return redis.call('INCR', verkey)
`)

var casScript = redis.NewScript(`
local valkey = KEYS[1]
local verkey = KEYS[2]
local expect = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', verkey) or '0')
if current ~= expect then
	return -1
end

redis.call('SET', valkey, ARGV[1])
return redis.call('INCR', verkey)
`)

// RedisStore persists JSON values with an INCR version stamp per key and
// relays changes over pub/sub so that other contexts observe them.
type RedisStore struct {
	client *redis.Client
	origin string
}

var _ port.Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, origin: uuid.NewString()}
}

func (r *RedisStore) Origin() string { return r.origin }

func (r *RedisStore) Get(ctx context.Context, key string) (port.Record, error) {
	pipe := r.client.Pipeline()
	valCmd := pipe.Get(ctx, valueKeyPrefix+key)
	verCmd := pipe.Get(ctx, versionKeyPrefix+key)
	_, err := pipe.Exec(ctx)
	if err == redis.Nil {
		return port.Record{}, port.ErrKeyNotFound
	}
	if err != nil {
		return port.Record{}, fmt.Errorf("get %s: %w", key, err)
	}

	value, err := valCmd.Bytes()
	if err == redis.Nil {
		return port.Record{}, port.ErrKeyNotFound
	}
	if err != nil {
		return port.Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	version, _ := verCmd.Int64()
	return port.Record{Value: value, Version: version}, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	version, err := setScript.Run(ctx, r.client,
		[]string{valueKeyPrefix + key, versionKeyPrefix + key}, value).Int64()
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return r.publishChange(ctx, key, value, version)
}

func (r *RedisStore) CompareAndSwap(ctx context.Context, key string, value []byte, expectVersion int64) error {
	version, err := casScript.Run(ctx, r.client,
		[]string{valueKeyPrefix + key, versionKeyPrefix + key}, value, expectVersion).Int64()
	if err != nil {
		return fmt.Errorf("cas %s: %w", key, err)
	}
	if version == -1 {
		return port.ErrVersionConflict
	}
	return r.publishChange(ctx, key, value, version)
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, valueKeyPrefix+key, versionKeyPrefix+key).Err()
}

type changeMessage struct {
	Origin  string          `json:"origin"`
	Version int64           `json:"version"`
	Value   json.RawMessage `json:"value"`
}

func (r *RedisStore) publishChange(ctx context.Context, key string, value []byte, version int64) error {
	payload, err := json.Marshal(changeMessage{
		Origin:  r.origin,
		Version: version,
		Value:   json.RawMessage(value),
	})
	if err != nil {
		return fmt.Errorf("encode change %s: %w", key, err)
	}
	return r.client.Publish(ctx, changeChanPrefix+key, payload).Err()
}

func (r *RedisStore) Subscribe(ctx context.Context, key string) (<-chan port.KeyChange, func(), error) {
	pubsub := r.client.Subscribe(ctx, changeChanPrefix+key)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	out := make(chan port.KeyChange, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var change changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				continue
			}
			// Same-context writes are not delivered back to this context.
			if change.Origin == r.origin {
				continue
			}
			select {
			case out <- port.KeyChange{
				Key:     key,
				Value:   []byte(change.Value),
				Version: change.Version,
				Origin:  change.Origin,
			}:
			default:
			}
		}
	}()

	cancel := func() { pubsub.Close() }
	return out, cancel, nil
}
