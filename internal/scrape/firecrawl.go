package scrape

import (
	"context"

	"github.com/sells-group/recipe-miner/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as the last-resort Scraper.
type FirecrawlAdapter struct {
	client firecrawl.Client
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true; Firecrawl renders JavaScript and can try any URL.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches the main content of a page as markdown.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:    targetURL,
		Title:  resp.Data.Metadata.Title,
		Text:   resp.Data.Markdown,
		Source: "firecrawl",
	}, nil
}
