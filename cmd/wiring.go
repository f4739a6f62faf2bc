package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/cache"
	"github.com/sells-group/recipe-miner/internal/collect"
	"github.com/sells-group/recipe-miner/internal/config"
	"github.com/sells-group/recipe-miner/internal/resilience"
	"github.com/sells-group/recipe-miner/internal/scrape"
	"github.com/sells-group/recipe-miner/internal/store"
	anthropicpkg "github.com/sells-group/recipe-miner/pkg/anthropic"
	"github.com/sells-group/recipe-miner/pkg/firecrawl"
	"github.com/sells-group/recipe-miner/pkg/jina"
)

// initStore opens the configured store. Callers must run CheckStore first.
func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Driver {
	case "supabase":
		return store.NewSupabase(c.URL, c.Key), nil
	case "postgres":
		return store.NewPostgres(ctx, c.URL)
	case "sqlite":
		return store.NewSQLite(c.URL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}

func newAnthropic(c config.AnthropicConfig) anthropicpkg.Client {
	return anthropicpkg.NewClient(c.Key)
}

// newScrapeChain builds Jina Reader, then local extraction, then Firecrawl
// when a key is configured.
func newScrapeChain(jinaClient jina.Client, filter *scrape.HostFilter) *scrape.Chain {
	scrapers := []scrape.Scraper{
		scrape.NewJinaAdapter(jinaClient),
		scrape.NewLocalScraper(),
	}
	if cfg.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fc))
	}
	return scrape.NewChain(filter, scrapers...)
}

// newPageCache connects the optional Redis page cache. A cache that cannot
// be reached is skipped, never fatal.
func newPageCache(ctx context.Context, c config.CacheConfig) (cache.PageStore, func()) {
	if c.RedisURL == "" {
		return nil, func() {}
	}
	r, err := cache.NewRedis(ctx, c.RedisURL, c.TTL())
	if err != nil {
		zap.L().Warn("page cache unavailable, continuing without it", zap.Error(err))
		return nil, func() {}
	}
	return r, func() { _ = r.Close() }
}

// newCollector wires search, scraping and caching into a Collector.
func newCollector(ctx context.Context) (*collect.Collector, func()) {
	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)
	filter := scrape.NewHostFilter(cfg.Mine.ExcludedHosts)
	chain := newScrapeChain(jinaClient, filter)
	zap.L().Debug("scrape chain configured", zap.Strings("scrapers", chain.Names()))

	pages, closeCache := newPageCache(ctx, cfg.Cache)
	fetcher := cache.Wrap(chain, pages)

	opts := collect.Options{
		SourcesPerDish: cfg.Mine.SourcesPerDish,
		MaxSourceChars: cfg.Mine.MaxSourceChars,
		FetchDelay:     cfg.Mine.FetchDelay(),
		SearchRetry:    resilience.DefaultRetryConfig().WithRetries(cfg.Mine.SearchRetries),
	}
	return collect.New(jinaClient, fetcher, filter, opts), closeCache
}
