package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/redis/go-redis/v9"
)

func encodeCachedUser(u User) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(u); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func decodeCachedUser(raw string) (User, bool) {
	var u User
	if err := gob.NewDecoder(bytes.NewReader([]byte(raw))).Decode(&u); err != nil {
		return User{}, false
	}
	return u, true
}

// CachedStore wraps a Store with a Redis-backed read-through cache in
// front of the hottest lookup on the auth hot path: resolving a player
// by id to check whether a presented token digest belongs to them.
// Every mutating call still goes straight to the wrapped Store; Redis
// only ever holds a TTL'd copy, never the system of record (spec §4.1
// names the persistent store as authoritative; caching is optional).
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedStore wraps next with a Redis client dialed against addr.
// A zero ttl defaults to 30 seconds.
func NewCachedStore(next Store, addr string, db int, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &CachedStore{Store: next, rdb: rdb, ttl: ttl}
}

func (c *CachedStore) cacheKey(playerID string) string {
	return "pref:userbyid:" + playerID
}

// UserByID checks Redis for a cached copy of the user first; on a miss
// it falls through to the wrapped store and populates the cache. The
// cached copy is the full gob-encoded User (including PasswordHash,
// AuthTokens and Games), so a cache hit serves the full record without
// touching the backing store at all.
func (c *CachedStore) UserByID(playerID string) (User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if cached, err := c.rdb.Get(ctx, c.cacheKey(playerID)).Result(); err == nil {
		if u, ok := decodeCachedUser(cached); ok {
			return u, true, nil
		}
	}

	u, ok, err := c.Store.UserByID(playerID)
	if err != nil || !ok {
		return u, ok, err
	}
	if encoded, encErr := encodeCachedUser(u); encErr == nil {
		_ = c.rdb.Set(ctx, c.cacheKey(playerID), encoded, c.ttl).Err()
	}
	return u, ok, nil
}

// invalidate drops the cached entry for playerID; called by every
// mutating path so a stale cache entry never outlives its ttl by more
// than the time it takes this call to land.
func (c *CachedStore) invalidate(playerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.rdb.Del(ctx, c.cacheKey(playerID)).Err()
}

func (c *CachedStore) AddToken(playerID, tokenDigest string) error {
	defer c.invalidate(playerID)
	return c.Store.AddToken(playerID, tokenDigest)
}

func (c *CachedStore) RevokeToken(playerID, tokenDigest string) error {
	defer c.invalidate(playerID)
	return c.Store.RevokeToken(playerID, tokenDigest)
}

func (c *CachedStore) AppendOrUpdateGame(playerID string, game Game) error {
	defer c.invalidate(playerID)
	return c.Store.AppendOrUpdateGame(playerID, game)
}

func (c *CachedStore) Close() error {
	if err := c.rdb.Close(); err != nil {
		return err
	}
	return c.Store.Close()
}
