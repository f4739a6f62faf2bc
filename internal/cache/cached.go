package cache

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/scrape"
)

// Fetcher extracts one page.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*scrape.Page, error)
}

// Cached consults a PageStore before delegating to the wrapped Fetcher and
// stores what it fetched. Cache errors never fail a fetch.
type Cached struct {
	next  Fetcher
	store PageStore
}

// Wrap returns next unchanged when store is nil.
func Wrap(next Fetcher, store PageStore) Fetcher {
	if store == nil {
		return next
	}
	return &Cached{next: next, store: store}
}

// Scrape implements Fetcher.
func (c *Cached) Scrape(ctx context.Context, url string) (*scrape.Page, error) {
	page, err := c.store.Get(ctx, url)
	if err == nil {
		zap.L().Debug("cache: hit", zap.String("url", url))
		return page, nil
	}
	if !errors.Is(err, ErrMiss) {
		zap.L().Warn("cache: get failed", zap.String("url", url), zap.Error(err))
	}

	page, err = c.next.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, page); err != nil {
		zap.L().Warn("cache: set failed", zap.String("url", url), zap.Error(err))
	}
	return page, nil
}
