package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
)

// queriesPerNewsSource bounds how many of the catalog queries each trade
// site is searched with per run.
const queriesPerNewsSource = 3

// NewsAdapter searches the trade-press sites from the catalog and feeds
// their result listings through the pipeline. Search pages are rendered in
// the browser because most of these sites build their listings client-side.
type NewsAdapter struct {
	pipeline *Pipeline
	fetcher  fetch.Fetcher
	throttle *fetch.Throttle
	sources  []newsSource
	queries  []string
	pause    time.Duration
}

func NewNewsAdapter(p *Pipeline, fetcher fetch.Fetcher, throttle *fetch.Throttle) (*NewsAdapter, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return &NewsAdapter{
		pipeline: p,
		fetcher:  fetcher,
		throttle: throttle,
		sources:  cat.News.Sources,
		queries:  cat.News.Queries,
		pause:    2 * time.Second,
	}, nil
}

// Run searches every configured site, dedups candidates across sites, and
// processes each one. Per-site failures are collected, never fatal.
func (a *NewsAdapter) Run(ctx context.Context) model.ChannelResult {
	result := model.ChannelResult{Channel: model.ChannelNews}

	queries := a.queries
	if len(queries) > queriesPerNewsSource {
		queries = queries[:queriesPerNewsSource]
	}

	var candidates []model.CandidateItem
	seen := make(map[string]struct{})
	for _, src := range a.sources {
		for _, query := range queries {
			items, err := a.search(ctx, src, query)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s %q: %v", src.Name, query, err))
				zap.L().Warn("news search failed",
					zap.String("source", src.Name),
					zap.String("query", query),
					zap.Error(err))
				continue
			}
			for _, item := range items {
				if _, ok := seen[item.URL]; ok {
					continue
				}
				seen[item.URL] = struct{}{}
				candidates = append(candidates, item)
			}
			if err := sleep(ctx, a.pause); err != nil {
				result.Errors = append(result.Errors, err.Error())
				return result
			}
		}
	}
	result.Found = len(candidates)

	for _, item := range candidates {
		stored, err := a.pipeline.processItem(ctx, item, a.fetcher)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.URL, err))
			continue
		}
		if stored {
			result.Stored++
		}
		if err := a.throttle.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result
		}
	}
	return result
}

func (a *NewsAdapter) search(ctx context.Context, src newsSource, query string) ([]model.CandidateItem, error) {
	searchURL := fmt.Sprintf(src.SearchURL, url.QueryEscape(query))
	page, err := a.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return parseSearchResults(src, page.RawHTML), nil
}

// parseSearchResults pulls result rows out of a rendered search page using
// the source's selector set. Relative links are absolutized against the
// site's base URL.
func parseSearchResults(src newsSource, rawHTML string) []model.CandidateItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	now := time.Now().UTC()
	var items []model.CandidateItem
	doc.Find(src.ArticleSelector).Each(func(_ int, sel *goquery.Selection) {
		titleEl := sel.Find(src.TitleSelector).First()
		title := strings.TrimSpace(titleEl.Text())
		link, ok := titleEl.Attr("href")
		if !ok || link == "" {
			link, _ = sel.Find(src.LinkSelector).First().Attr("href")
		}
		if title == "" || link == "" {
			return
		}
		if strings.HasPrefix(link, "/") {
			link = src.BaseURL + link
		}

		var snippet string
		if src.SnippetSelector != "" {
			snippet = strings.TrimSpace(sel.Find(src.SnippetSelector).First().Text())
		}
		items = append(items, model.CandidateItem{
			URL:          link,
			Title:        title,
			Snippet:      snippet,
			SourceName:   src.Name,
			Channel:      model.ChannelNews,
			DiscoveredAt: now,
		})
	})
	return items
}
