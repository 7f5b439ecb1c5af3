package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	NASSessionKey    = "nas:session"
	ListingKeyFmt    = "nas:list:%s"
	ListingKeyPrefix = "nas:list:"
)

// ListingTTL bounds how stale a cached stage listing may be
const ListingTTL = 15 * time.Second

var client *redis.Client

// Init initializes the Redis connection. On failure the client stays nil and
// every helper below degrades to a no-op.
func Init(addr, password string, db int) error {
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// SetClient replaces the package client
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client, nil when Redis is unavailable
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Printf("[Redis] close: %v", err)
	}
	client = nil
}

// ============================================
// Generic Cache Functions
// ============================================

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// ============================================
// Stage Listing Cache
// ============================================

// ListingKey is the cache key for a storage folder listing
func ListingKey(dir string) string {
	return fmt.Sprintf(ListingKeyFmt, dir)
}

// InvalidateListings clears cached listings of the given folders
// Called when: files are moved in or out of them
func InvalidateListings(ctx context.Context, dirs ...string) {
	keys := make([]string, 0, len(dirs))
	for _, d := range dirs {
		keys = append(keys, ListingKey(d))
	}
	InvalidateKeys(ctx, keys...)
}

// InvalidateAllListings clears every cached listing
func InvalidateAllListings(ctx context.Context) {
	InvalidatePattern(ctx, ListingKeyPrefix+"*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
