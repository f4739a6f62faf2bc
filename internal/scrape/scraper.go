package scrape

import "context"

// Page is the extracted main text of one web page.
type Page struct {
	URL    string
	Title  string
	Text   string
	Source string // e.g. "jina", "local_http", "firecrawl"
}

// Scraper fetches a single URL and returns its main content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}
