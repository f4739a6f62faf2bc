// Package scrape fetches recipe pages and reduces them to their main text,
// falling back across extractors.
package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in priority order, returning the first page with
// non-empty text.
type Chain struct {
	Filter   *HostFilter
	scrapers []Scraper
}

// NewChain creates a Chain. A nil filter excludes nothing.
func NewChain(filter *HostFilter, scrapers ...Scraper) *Chain {
	if filter == nil {
		filter = NewHostFilter(nil)
	}
	return &Chain{Filter: filter, scrapers: scrapers}
}

// Names lists the configured scrapers in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.scrapers))
	for i, s := range c.scrapers {
		names[i] = s.Name()
	}
	return names
}

// Scrape tries each scraper in order for a single URL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	if c.Filter.Excluded(targetURL) {
		return nil, eris.Errorf("scrape: excluded host: %s", targetURL)
	}

	var lastErr error
	for _, s := range c.scrapers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: cancelled")
		}
		if !s.Supports(targetURL) {
			continue
		}
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil && strings.TrimSpace(page.Text) != "" {
			return page, nil
		}
		if err == nil {
			err = eris.Errorf("%s: empty content", s.Name())
		}
		zap.L().Debug("scrape: scraper failed, trying next",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}
