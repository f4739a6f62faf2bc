// Package cache keeps extracted page text in Redis so repeated mining runs
// do not re-fetch the same sources.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/scrape"
)

// KeyPrefix namespaces page entries in a shared Redis.
const KeyPrefix = "recipe-miner:page:"

// ErrMiss is returned by Get when no entry exists for a URL.
var ErrMiss = errors.New("cache miss")

// PageStore reads and writes extracted pages by URL.
type PageStore interface {
	Get(ctx context.Context, url string) (*scrape.Page, error)
	Set(ctx context.Context, page *scrape.Page) error
}

// kv is the subset of the Redis client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis is a PageStore backed by Redis.
type Redis struct {
	client kv
	closer func() error
	ttl    time.Duration
}

// NewRedis connects to the Redis at rawURL (redis://host:port/db) and
// verifies the connection. Entries expire after ttl; zero keeps them
// forever.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "cache: ping redis")
	}
	return &Redis{client: client, closer: client.Close, ttl: ttl}, nil
}

func newRedis(client kv, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Key returns the Redis key for a URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

type entry struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Get returns the cached page for url or ErrMiss.
func (r *Redis) Get(ctx context.Context, url string) (*scrape.Page, error) {
	data, err := r.client.Get(ctx, Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: get")
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, eris.Wrap(err, "cache: decode entry")
	}
	return &scrape.Page{URL: e.URL, Title: e.Title, Text: e.Text, Source: e.Source}, nil
}

// Set stores a page under its URL.
func (r *Redis) Set(ctx context.Context, page *scrape.Page) error {
	data, err := json.Marshal(entry{URL: page.URL, Title: page.Title, Text: page.Text, Source: page.Source})
	if err != nil {
		return eris.Wrap(err, "cache: encode entry")
	}
	if err := r.client.Set(ctx, Key(page.URL), data, r.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: set")
	}
	return nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
