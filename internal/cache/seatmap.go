// Package cache keeps rendered seat maps in Redis so that the read-heavy
// seat map endpoint does not hit MySQL on every request.  Entries are
// dropped whenever an assignment of the event changes.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-seating/internal/config"
)

// SeatMapCache stores opaque seat map payloads per event.  A nil
// *SeatMapCache, a nil client or a disabled config all behave as a cache
// that never hits.
type SeatMapCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSeatMapCache returns a cache backed by rdb, or nil when caching is
// off.
func NewSeatMapCache(cfg config.CacheConfig, rdb *redis.Client) *SeatMapCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	ttl := cfg.TTL
	if ttl < time.Millisecond {
		ttl = 5 * time.Minute
	}
	return &SeatMapCache{rdb: rdb, ttl: ttl, prefix: cfg.Prefix}
}

// versionTTL keeps version keys well past any seat map TTL.
const versionTTL = 24 * time.Hour

func (c *SeatMapCache) key(eventID string) string {
	return c.prefix + ":event:" + eventID + ":seatmap"
}

func (c *SeatMapCache) versionKey(eventID string) string {
	return c.key(eventID) + ":version"
}

// Get returns the cached payload.  ok is false on a miss; err is set only
// for Redis failures.
func (c *SeatMapCache) Get(ctx context.Context, eventID string) (payload []byte, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	bs, err := c.rdb.Get(ctx, c.key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bs, true, nil
}

// Version returns the event's current cache version; 0 when no write has
// been recorded.
func (c *SeatMapCache) Version(ctx context.Context, eventID string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	v, err := c.rdb.Get(ctx, c.versionKey(eventID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// setIfVersionScript stores the payload only while the version key still
// holds ARGV[2].
var setIfVersionScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[2]) or '0'
	if current ~= ARGV[2] then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
	return 1
`)

// Set stores payload for the configured TTL if the event's version is
// still version.  stored is false when a write invalidated the event in
// the meantime.
func (c *SeatMapCache) Set(ctx context.Context, eventID string, payload []byte, version int64) (stored bool, err error) {
	if c == nil {
		return false, nil
	}
	keys := []string{c.key(eventID), c.versionKey(eventID)}
	n, err := setIfVersionScript.Run(ctx, c.rdb, keys, payload, strconv.FormatInt(version, 10), c.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate drops the event's entry and bumps its version.
func (c *SeatMapCache) Invalidate(ctx context.Context, eventID string) error {
	if c == nil {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey(eventID))
		pipe.Expire(ctx, c.versionKey(eventID), versionTTL)
		pipe.Del(ctx, c.key(eventID))
		return nil
	})
	return err
}
