// Package collect gathers source texts for a dish from web search results.
package collect

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/resilience"
	"github.com/sells-group/recipe-miner/internal/scrape"
	"github.com/sells-group/recipe-miner/pkg/jina"
)

// Searcher runs a web search. jina.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) (*jina.SearchResponse, error)
}

// Fetcher extracts the main text of one page. scrape.Chain and
// cache.Cached satisfy it.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*scrape.Page, error)
}

// Options tunes a Collector.
type Options struct {
	SourcesPerDish int
	MaxSourceChars int
	FetchDelay     time.Duration
	SearchRetry    resilience.RetryConfig
}

// DefaultOptions returns three sources of at most 10 000 characters, one
// second apart, with search retried twice.
func DefaultOptions() Options {
	return Options{
		SourcesPerDish: 3,
		MaxSourceChars: 10000,
		FetchDelay:     time.Second,
		SearchRetry:    resilience.DefaultRetryConfig().WithRetries(2),
	}
}

// Collector turns a dish name into a handful of source texts.
type Collector struct {
	search Searcher
	fetch  Fetcher
	filter *scrape.HostFilter
	opts   Options
}

// New creates a Collector. A nil filter excludes nothing; non-positive
// option values fall back to DefaultOptions.
func New(search Searcher, fetch Fetcher, filter *scrape.HostFilter, opts Options) *Collector {
	def := DefaultOptions()
	if opts.SourcesPerDish <= 0 {
		opts.SourcesPerDish = def.SourcesPerDish
	}
	if opts.MaxSourceChars <= 0 {
		opts.MaxSourceChars = def.MaxSourceChars
	}
	if opts.FetchDelay < 0 {
		opts.FetchDelay = 0
	}
	if filter == nil {
		filter = scrape.NewHostFilter(nil)
	}
	return &Collector{search: search, fetch: fetch, filter: filter, opts: opts}
}

// Query builds the search query for a dish.
func (c *Collector) Query(dish string) string {
	q := "authentic " + strings.TrimSpace(dish) + " recipe"
	if terms := c.filter.QueryTerms(); terms != "" {
		q += " " + terms
	}
	return q
}

// Collect searches for a dish and returns the non-empty extracted texts of
// the top results. Individual fetch failures are logged and skipped; a
// search failure or zero texts yields a collection Failure.
func (c *Collector) Collect(ctx context.Context, dish string) ([]string, error) {
	log := zap.L().With(zap.String("dish", dish))

	retry := c.opts.SearchRetry
	retry.OnRetry = resilience.RetryLogger("jina", "search")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*jina.SearchResponse, error) {
		return c.search.Search(ctx, c.Query(dish))
	})
	if err != nil {
		return nil, model.NewFailure(model.KindCollection, dish, eris.Wrap(err, "search"))
	}

	urls := c.pickURLs(resp)
	log.Debug("collect: search results", zap.Strings("urls", urls))

	var texts []string
	for i, u := range urls {
		if i > 0 {
			if err := sleep(ctx, c.opts.FetchDelay); err != nil {
				return nil, eris.Wrap(err, "collect: cancelled")
			}
		}
		page, err := c.fetch.Scrape(ctx, u)
		if err != nil {
			log.Warn("collect: source failed", zap.String("url", u), zap.Error(err))
			continue
		}
		text := Truncate(strings.TrimSpace(page.Text), c.opts.MaxSourceChars)
		if text == "" {
			continue
		}
		log.Debug("collect: source extracted",
			zap.String("url", u),
			zap.String("via", page.Source),
			zap.Int("chars", len([]rune(text))),
		)
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return nil, model.NewFailure(model.KindCollection, dish, model.ErrNoSources)
	}
	return texts, nil
}

// pickURLs takes the first SourcesPerDish distinct results on allowed hosts.
func (c *Collector) pickURLs(resp *jina.SearchResponse) []string {
	if resp == nil {
		return nil
	}
	seen := make(map[string]bool)
	var urls []string
	for _, r := range resp.Data {
		u := strings.TrimSpace(r.URL)
		if u == "" || seen[u] || c.filter.Excluded(u) {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if len(urls) == c.opts.SourcesPerDish {
			break
		}
	}
	return urls
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
