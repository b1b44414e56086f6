// Package cache wraps a store.MessageStore with a Redis read-through
// cache of each record's current tip, grounded on the teacher's own
// Redis client setup in db/db.go (redis.NewClient against a host:port
// address, pinged once at startup).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dwnlabs/dwn-core/store"
)

// TipCache is a store.MessageStore decorator: reads for a single
// recordId's tip are served from Redis when present, writes invalidate
// (rather than update) the cached entry so the next Get repopulates it
// from the backing store. Query always goes straight to the backing
// store, since Redis here only ever holds single-record tips.
type TipCache struct {
	backing store.MessageStore
	redis   *redis.Client
	ttl     time.Duration
}

// New wraps backing with a Redis tip cache. addr is a "host:port"
// Redis address, matching the teacher's REDIS_HOST/REDIS_PORT
// convention (db/db.go).
func New(backing store.MessageStore, addr string, ttl time.Duration) *TipCache {
	return &TipCache{
		backing: backing,
		redis:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl:     ttl,
	}
}

func (c *TipCache) Open(ctx context.Context) error {
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return c.backing.Open(ctx)
}

func (c *TipCache) Close() error {
	if err := c.redis.Close(); err != nil {
		return fmt.Errorf("cache: failed to close redis client: %w", err)
	}

	return c.backing.Close()
}

func (c *TipCache) key(tenant, recordID string) string {
	return fmt.Sprintf("dwn:tip:%s:%s", tenant, recordID)
}

func (c *TipCache) Get(ctx context.Context, tenant, recordID string) (store.Record, bool, error) {
	cached, err := c.redis.Get(ctx, c.key(tenant, recordID)).Bytes()
	if err == nil {
		var rec store.Record
		if jsonErr := json.Unmarshal(cached, &rec); jsonErr == nil {
			return rec, true, nil
		}
	}

	rec, ok, err := c.backing.Get(ctx, tenant, recordID)
	if err != nil || !ok {
		return rec, ok, err
	}

	if encoded, marshalErr := json.Marshal(rec); marshalErr == nil {
		c.redis.Set(ctx, c.key(tenant, recordID), encoded, c.ttl)
	}

	return rec, true, nil
}

func (c *TipCache) Put(ctx context.Context, tenant string, rec store.Record) error {
	if err := c.backing.Put(ctx, tenant, rec); err != nil {
		return err
	}

	c.redis.Del(ctx, c.key(tenant, rec.IndexTags.RecordID))

	return nil
}

func (c *TipCache) Query(ctx context.Context, tenant string, filter store.Filter) ([]store.Record, error) {
	return c.backing.Query(ctx, tenant, filter)
}

func (c *TipCache) Delete(ctx context.Context, tenant, recordID string) error {
	if err := c.backing.Delete(ctx, tenant, recordID); err != nil {
		return err
	}

	c.redis.Del(ctx, c.key(tenant, recordID))

	return nil
}

func (c *TipCache) Clear(ctx context.Context, tenant string) error {
	return c.backing.Clear(ctx, tenant)
}
