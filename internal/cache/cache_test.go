package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-miner/internal/scrape"
)

// fakeKV is an in-process stand-in for the Redis client.
type fakeKV struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

type countingFetcher struct {
	page  *scrape.Page
	err   error
	calls int
}

func (c *countingFetcher) Scrape(_ context.Context, _ string) (*scrape.Page, error) {
	c.calls++
	return c.page, c.err
}

func TestKey(t *testing.T) {
	k := Key("https://cook.example/pozole")
	assert.True(t, strings.HasPrefix(k, KeyPrefix))
	assert.Len(t, strings.TrimPrefix(k, KeyPrefix), 64)
	assert.Equal(t, k, Key("https://cook.example/pozole"))
	assert.NotEqual(t, k, Key("https://cook.example/mole"))
}

func TestRedis_SetGet(t *testing.T) {
	kv := newFakeKV()
	r := newRedis(kv, 72*time.Hour)
	ctx := context.Background()

	page := &scrape.Page{URL: "https://cook.example/pozole", Title: "Pozole", Text: "hominy", Source: "jina"}
	require.NoError(t, r.Set(ctx, page))
	assert.Equal(t, 72*time.Hour, kv.ttls[Key(page.URL)])

	got, err := r.Get(ctx, page.URL)
	require.NoError(t, err)
	assert.Equal(t, page, got)
}

func TestRedis_Miss(t *testing.T) {
	_, err := newRedis(newFakeKV(), time.Hour).Get(context.Background(), "https://cook.example/none")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedis_Errors(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("readonly")
	r := newRedis(kv, time.Hour)

	_, err := r.Get(context.Background(), "https://cook.example/a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)

	err = r.Set(context.Background(), &scrape.Page{URL: "https://cook.example/a"})
	assert.ErrorContains(t, err, "readonly")
}

func TestRedis_CorruptEntry(t *testing.T) {
	kv := newFakeKV()
	kv.data[Key("https://cook.example/a")] = "{not json"

	_, err := newRedis(kv, time.Hour).Get(context.Background(), "https://cook.example/a")
	assert.ErrorContains(t, err, "decode entry")
}

func TestCached_MissThenHit(t *testing.T) {
	kv := newFakeKV()
	next := &countingFetcher{page: &scrape.Page{URL: "https://cook.example/a", Text: "masa", Source: "local_http"}}
	f := Wrap(next, newRedis(kv, time.Hour))

	first, err := f.Scrape(context.Background(), "https://cook.example/a")
	require.NoError(t, err)
	second, err := f.Scrape(context.Background(), "https://cook.example/a")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	var stored entry
	require.NoError(t, json.Unmarshal([]byte(kv.data[Key("https://cook.example/a")]), &stored))
	assert.Equal(t, "masa", stored.Text)
}

func TestCached_StoreErrorsDoNotFailFetch(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("down")
	kv.setErr = errors.New("down")
	next := &countingFetcher{page: &scrape.Page{URL: "https://cook.example/a", Text: "masa"}}

	page, err := Wrap(next, newRedis(kv, time.Hour)).Scrape(context.Background(), "https://cook.example/a")
	require.NoError(t, err)
	assert.Equal(t, "masa", page.Text)
}

func TestCached_FetchErrorNotStored(t *testing.T) {
	kv := newFakeKV()
	next := &countingFetcher{err: errors.New("all scrapers failed")}

	_, err := Wrap(next, newRedis(kv, time.Hour)).Scrape(context.Background(), "https://cook.example/a")
	require.Error(t, err)
	assert.Empty(t, kv.data)
}

func TestWrap_NilStore(t *testing.T) {
	next := &countingFetcher{}
	assert.Same(t, next, Wrap(next, nil))
}
