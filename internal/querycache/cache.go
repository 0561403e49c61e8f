// internal/querycache/cache.go
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const namespace = "admin_gateway:query"

// Cache is the per-query read cache in front of the backend API. Entries are
// keyed by entity plus canonicalized request params and expire after a
// per-entity staleness window; mutations invalidate the whole entity class.
type Cache struct {
	rdb    *redis.Client
	ttl    map[string]time.Duration
	def    time.Duration
	logger *zap.Logger
}

func New(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{
		rdb: rdb,
		// Catalog data changes rarely; orders move constantly.
		ttl: map[string]time.Duration{
			"products":  5 * time.Minute,
			"orders":    30 * time.Second,
			"customers": 2 * time.Minute,
			"coupons":   2 * time.Minute,
			"packaging": 5 * time.Minute,
			"roles":     10 * time.Minute,
			"settings":  10 * time.Minute,
		},
		def:    time.Minute,
		logger: logger,
	}
}

// Key derives the cache key for a query: entity plus a hash of the sorted
// query string, so param order never splits the cache.
func Key(entity string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vs := append([]string(nil), params[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('&')
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return namespace + ":" + entity + ":" + hex.EncodeToString(sum[:8])
}

// GetOrFetch serves a fresh cached payload or falls through to fetch and
// stores the result. Cache transport errors degrade to a direct fetch.
func (c *Cache) GetOrFetch(ctx context.Context, entity string, params url.Values, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	key := Key(entity, params)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return json.RawMessage(raw), nil
	}
	if err != redis.Nil {
		c.logger.Warn("query cache read failed, fetching directly",
			zap.String("key", key), zap.Error(err))
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, []byte(payload), c.windowFor(entity)).Err(); err != nil {
		c.logger.Warn("query cache write failed",
			zap.String("key", key), zap.Error(err))
	}
	return payload, nil
}

// InvalidateEntity drops every cached query for an entity class. Called
// after any mutation of that entity.
func (c *Cache) InvalidateEntity(ctx context.Context, entity string) error {
	pattern := namespace + ":" + entity + ":*"

	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	c.logger.Debug("query cache invalidated",
		zap.String("entity", entity), zap.Int("keys", len(keys)))
	return nil
}

func (c *Cache) windowFor(entity string) time.Duration {
	if ttl, ok := c.ttl[entity]; ok {
		return ttl
	}
	return c.def
}
