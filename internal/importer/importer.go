package importer

import (
	"context"
	"net/url"
	"strings"

	"market-service/internal/util"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// maxPageHops bounds auto-pagination per import run.
const maxPageHops = 5

// Collector runs the full extraction pass over a listing page: structured
// data first, DOM heuristics second, then pagination until the candidate cap
// is reached.
type Collector struct {
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewCollector creates a collector on top of the given fetcher.
func NewCollector(fetcher *Fetcher) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  util.GetLogger(),
	}
}

// Fetcher returns the underlying fetcher, shared with image downloads.
func (c *Collector) Fetcher() *Fetcher {
	return c.fetcher
}

// Collect gathers up to max candidates from pageURL, or from pastedHTML when
// the caller supplies the page body directly (the bot-protection escape
// hatch). Returned candidates are unique by title key and image within the
// run.
func (c *Collector) Collect(ctx context.Context, pageURL, pastedHTML string, max int) ([]Candidate, error) {
	var base *url.URL
	if pageURL != "" {
		base, _ = url.Parse(pageURL)
	}

	html := pastedHTML
	if html == "" {
		var err error
		html, err = c.fetcher.FetchPage(ctx, pageURL, pageURL)
		if err != nil {
			return nil, err
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	merger := NewMerger(max)
	c.scanDocument(doc, base, merger)

	// follow "next" links only for live fetches, pasted HTML is one page
	if !merger.Full() && pastedHTML == "" && pageURL != "" {
		c.followPagination(ctx, doc, base, pageURL, merger)
	}

	c.logger.Info("Import candidates collected",
		zap.Int("cards", len(merger.Cards())),
		zap.Int("alt_used", merger.AltUsed),
		zap.Int("dup_drops", merger.DupDrops))

	return merger.Cards(), nil
}

func (c *Collector) scanDocument(doc *goquery.Document, base *url.URL, merger *Merger) {
	jsonLD := ExtractJSONLD(doc, base)
	c.logger.Debug("JSON-LD candidates", zap.Int("count", len(jsonLD)))
	merger.AddBatch(jsonLD)

	if !merger.Full() {
		appState := ExtractAppState(doc, base, merger.max)
		c.logger.Debug("App-state candidates", zap.Int("count", len(appState)))
		merger.AddBatch(appState)
	}
	if !merger.Full() {
		ScanDOM(doc, base, merger)
	}
}

func (c *Collector) followPagination(ctx context.Context, doc *goquery.Document, base *url.URL, referer string, merger *Merger) {
	nextURL := findNextURL(doc, base)
	visited := make(map[string]bool)

	for hops := 0; !merger.Full() && nextURL != "" && hops < maxPageHops; hops++ {
		if visited[nextURL] {
			break
		}
		visited[nextURL] = true

		c.logger.Info("Fetching next page", zap.String("url", nextURL))
		html, err := c.fetcher.FetchPage(ctx, nextURL, referer)
		if err != nil {
			c.logger.Warn("Next page fetch failed", zap.String("url", nextURL), zap.Error(err))
			break
		}
		nextDoc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			break
		}
		c.scanDocument(nextDoc, base, merger)
		nextURL = findNextURL(nextDoc, base)
	}
}

func findNextURL(doc *goquery.Document, base *url.URL) string {
	href := doc.Find(`link[rel="next"]`).AttrOr("href", "")
	if href == "" {
		href = doc.Find(`a[rel="next"]`).AttrOr("href", "")
	}
	if href == "" {
		href = doc.Find(`a[aria-label*="след"], a[aria-label*="След"], a[aria-label*="next"], a[title*="След"], a[title*="Next"], a[class*="next"]`).
			First().AttrOr("href", "")
	}
	if href == "" {
		return ""
	}
	return absURL(base, href)
}
