package cache

import (
	"context"
	"time"

	"github.com/salestaxio/poskit/kv"
)

// Tiered layers the in-memory cache over a shared remote store, so multiple
// processes serving the same integration reuse each other's results. Reads
// check local first and backfill it on remote hits; remote read errors are
// treated as misses.
type Tiered struct {
	local  Cache
	remote kv.ExpiringStore
	ttl    time.Duration
}

func NewTiered(local Cache, remote kv.ExpiringStore, ttl time.Duration) *Tiered {
	return &Tiered{
		local:  local,
		remote: remote,
		ttl:    ttl,
	}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := t.local.Get(key); ok {
		return value, true
	}

	value, err := t.remote.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	t.local.SetTTL(key, value, t.ttl)
	return value, true
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	t.local.SetTTL(key, value, t.ttl)
	return t.remote.SetEx(ctx, key, value, t.ttl)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	t.local.Delete(key)
	return t.remote.Delete(ctx, key)
}

func (t *Tiered) Stats() Stats {
	return t.local.Stats()
}
