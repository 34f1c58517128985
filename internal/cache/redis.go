package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/domain"
)

const (
	listPrefix     = "properties:list"
	listVersionKey = "properties:list:version"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ListingCache is a read-through cache for property list queries. Writes
// bump a version counter so stale pages are never served after a mutation.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{client: client, ttl: ttl}
}

// Key returns the cache key for filter under the current version. Resolve it
// once before the database read and reuse it for both Get and Set.
func (c *ListingCache) Key(ctx context.Context, filter domain.PropertyFilter) (string, error) {
	version, err := c.client.Get(ctx, listVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get listing cache version: %w", err)
	}
	return QueryKey(fmt.Sprintf("%s:v%d", listPrefix, version), filterParams(filter)), nil
}

// Get returns the page cached under key, if any.
func (c *ListingCache) Get(ctx context.Context, key string) ([]domain.Property, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached listings: %w", err)
	}

	var properties []domain.Property
	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, false, fmt.Errorf("decode cached listings: %w", err)
	}
	return properties, true, nil
}

// Set stores a page under key.
func (c *ListingCache) Set(ctx context.Context, key string, properties []domain.Property) error {
	data, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("encode listings: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached listings: %w", err)
	}
	return nil
}

// Invalidate retires every cached page.
func (c *ListingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, listVersionKey).Err(); err != nil {
		return fmt.Errorf("bump listing cache version: %w", err)
	}
	return nil
}

func filterParams(filter domain.PropertyFilter) map[string]string {
	params := map[string]string{
		"status": filter.Status,
		"city":   strings.ToLower(filter.City),
	}
	if filter.OwnerID != nil {
		params["owner_id"] = strconv.FormatInt(*filter.OwnerID, 10)
	}
	return params
}

// QueryKey hashes params into a stable key under prefix.
func QueryKey(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(":")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(params[k])
	}

	sum := md5.Sum([]byte(builder.String()))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
