package scrape

import (
	"context"
	"html"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// LocalScraper fetches HTML directly and reduces it to plain text. It costs
// no API calls; blocked pages fall through to the next scraper.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// NewLocalScraper creates a LocalScraper with conservative timeouts.
func NewLocalScraper() *LocalScraper {
	return &LocalScraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "Mozilla/5.0 (compatible; RecipeMiner/1.0)",
	}
}

func (l *LocalScraper) Name() string { return "local_http" }

// Supports accepts only http and https URLs.
func (l *LocalScraper) Supports(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Scrape fetches a URL, rejects blocked pages and strips HTML to text,
// preferring the <article> or <main> element when the page has one.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	text := stripHTML(mainContent(string(body)))
	if len(text) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	return &Page{
		URL:    targetURL,
		Title:  extractTitle(body),
		Text:   text,
		Source: "local_http",
	}, nil
}

var (
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	articleRe = regexp.MustCompile(`(?is)<article[^>]*>(.*)</article>`)
	mainRe    = regexp.MustCompile(`(?is)<main[^>]*>(.*)</main>`)
	dropRe    = regexp.MustCompile(`(?is)<(script|style|noscript|nav|footer|header|aside|form|svg)\b[^>]*>.*?</(script|style|noscript|nav|footer|header|aside|form|svg)>`)
	blockRe   = regexp.MustCompile(`(?i)</?(p|div|li|h[1-6]|br|tr|section)\b[^>]*>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t\r\f\v]+`)
	nlRe      = regexp.MustCompile(`\s*\n\s*\n\s*`)
)

// extractTitle pulls the <title> from HTML.
func extractTitle(body []byte) string {
	if m := titleRe.FindSubmatch(body); len(m) > 1 {
		return html.UnescapeString(strings.TrimSpace(string(m[1])))
	}
	return ""
}

// mainContent narrows the document to its <article> or <main> element.
func mainContent(doc string) string {
	for _, re := range []*regexp.Regexp{articleRe, mainRe} {
		if m := re.FindStringSubmatch(doc); len(m) > 1 && len(strings.TrimSpace(m[1])) > 0 {
			return m[1]
		}
	}
	return doc
}

// stripHTML removes non-content blocks, turns block elements into line
// breaks, strips tags, decodes entities and collapses whitespace.
func stripHTML(doc string) string {
	doc = dropRe.ReplaceAllString(doc, "")
	doc = blockRe.ReplaceAllString(doc, "\n")
	doc = tagRe.ReplaceAllString(doc, " ")
	doc = html.UnescapeString(doc)
	doc = spaceRe.ReplaceAllString(doc, " ")
	doc = nlRe.ReplaceAllString(doc, "\n\n")
	return strings.TrimSpace(doc)
}
