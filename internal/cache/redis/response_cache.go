package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/constellate/internal/gateway"
)

// responseTTL covers the fresh window plus the stale-while-revalidate window;
// entries older than this are useless and Redis may drop them itself.
const responseTTL = 2 * time.Minute

// ResponseCache implements gateway.ResponseCache using Redis hashes. Each
// response is stored at "gw:resp:{sha256(url)}" with fields "data" and "ts"
// (Unix nanosecond timestamp).
type ResponseCache struct {
	rdb *redis.Client
}

// NewResponseCache creates a ResponseCache backed by the given Client.
func NewResponseCache(c *Client) *ResponseCache {
	return &ResponseCache{rdb: c.Underlying()}
}

func responseKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "gw:resp:" + hex.EncodeToString(sum[:])
}

// Get retrieves a cached response. Redis errors degrade to a cache miss so
// the gateway falls through to the upstream.
func (rc *ResponseCache) Get(ctx context.Context, key string) (gateway.Entry, bool) {
	vals, err := rc.rdb.HGetAll(ctx, responseKey(key)).Result()
	if err != nil || len(vals) == 0 {
		return gateway.Entry{}, false
	}

	data, ok := vals["data"]
	if !ok {
		return gateway.Entry{}, false
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return gateway.Entry{}, false
	}

	entry := gateway.Entry{Data: []byte(data), StoredAt: time.Unix(0, tsNano)}
	if !entry.Servable(time.Now()) {
		return gateway.Entry{}, false
	}
	return entry, true
}

// Set stores a response body with the current timestamp.
func (rc *ResponseCache) Set(ctx context.Context, key string, data []byte) error {
	k := responseKey(key)
	fields := map[string]interface{}{
		"data": data,
		"ts":   strconv.FormatInt(time.Now().UnixNano(), 10),
	}

	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, k, fields)
	pipe.Expire(ctx, k, responseTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: cache response: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ gateway.ResponseCache = (*ResponseCache)(nil)
