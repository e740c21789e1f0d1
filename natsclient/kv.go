package natsclient

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/neurostream/errors"
)

// KVStore wraps a JetStream KV bucket with per-operation timeouts and the
// tree's error classification.
type KVStore struct {
	bucket  jetstream.KeyValue
	timeout time.Duration
}

// DefaultKVTimeout bounds each KV operation when the caller's context has no
// deadline of its own.
const DefaultKVTimeout = 5 * time.Second

// NewKVStore wraps an open bucket.
func (c *Client) NewKVStore(bucket jetstream.KeyValue) *KVStore {
	return &KVStore{bucket: bucket, timeout: DefaultKVTimeout}
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, kv.timeout)
}

// Get reads one key. A missing key is ErrKeyNotFound.
func (kv *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.Wrap(errors.ErrKeyNotFound, "KVStore", "Get", key)
		}
		return nil, errors.WrapTransient(err, "KVStore", "Get", key)
	}
	return entry.Value(), nil
}

// Put writes one key, creating or replacing it.
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if _, err := kv.bucket.Put(ctx, key, value); err != nil {
		return errors.WrapTransient(err, "KVStore", "Put", key)
	}
	return nil
}

// Delete removes one key. Deleting an absent key is not an error.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return errors.WrapTransient(err, "KVStore", "Delete", key)
	}
	return nil
}

// Keys lists the live keys. An empty bucket returns an empty slice.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "KVStore", "Keys", "list")
	}
	return keys, nil
}

// Watch streams updates matching the pattern. The caller stops the watcher.
func (kv *KVStore) Watch(ctx context.Context, pattern string) (jetstream.KeyWatcher, error) {
	watcher, err := kv.bucket.Watch(ctx, pattern)
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "Watch", pattern)
	}
	return watcher, nil
}
