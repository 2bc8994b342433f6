package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/topic-chat/pkg/model"
)

// CachedStore wraps a MessageStore with a Redis cache-aside layer over the
// two history read paths. Appends write through to the inner store and
// invalidate the affected conversation's cached pages. Cache failures only
// cost the shortcut; reads fall back to the inner store.
type CachedStore struct {
	inner MessageStore
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedStore(inner MessageStore, client *redis.Client, ttl time.Duration, log *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, redis: client, ttl: ttl, log: log}
}

func (c *CachedStore) AppendGroup(ctx context.Context, msg model.GroupMessage) (model.GroupMessage, error) {
	stored, err := c.inner.AppendGroup(ctx, msg)
	if err != nil {
		return model.GroupMessage{}, err
	}
	c.invalidate(ctx, fmt.Sprintf("history:group:%s:*", stored.Room))
	return stored, nil
}

func (c *CachedStore) AppendPrivate(ctx context.Context, msg model.PrivateMessage) (model.PrivateMessage, error) {
	stored, err := c.inner.AppendPrivate(ctx, msg)
	if err != nil {
		return model.PrivateMessage{}, err
	}
	c.invalidate(ctx, fmt.Sprintf("history:private:%s:*", PairKey(stored.FromUser, stored.ToUser)))
	return stored, nil
}

func (c *CachedStore) GroupHistory(ctx context.Context, room string, limit int) ([]model.GroupMessage, error) {
	key := fmt.Sprintf("history:group:%s:%d", room, limit)

	var cached []model.GroupMessage
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	messages, err := c.inner.GroupHistory(ctx, room, limit)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, messages)
	return messages, nil
}

func (c *CachedStore) PrivateHistory(ctx context.Context, u1, u2 string, limit int) ([]model.PrivateMessage, error) {
	key := fmt.Sprintf("history:private:%s:%d", PairKey(u1, u2), limit)

	var cached []model.PrivateMessage
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	messages, err := c.inner.PrivateHistory(ctx, u1, u2, limit)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, messages)
	return messages, nil
}

func (c *CachedStore) get(ctx context.Context, key string, dest any) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("history cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("history cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedStore) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("history cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("history cache set failed", "key", key, "error", err)
	}
}

func (c *CachedStore) invalidate(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.log.Warn("history cache scan failed", "pattern", pattern, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				c.log.Warn("history cache invalidation failed", "pattern", pattern, "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
