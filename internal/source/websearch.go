package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/pkg/google"
)

// SearchAdapter runs the catalog's web-search queries against the Custom
// Search API. Result URLs are fetched with the lite fetcher; this channel
// was built for environments where a browser is not available.
type SearchAdapter struct {
	pipeline *Pipeline
	client   google.Client // nil when credentials are not configured
	fetcher  fetch.Fetcher
	throttle *fetch.Throttle
	queries  []string
	pause    time.Duration
}

func NewSearchAdapter(p *Pipeline, client google.Client, fetcher fetch.Fetcher, throttle *fetch.Throttle) (*SearchAdapter, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return &SearchAdapter{
		pipeline: p,
		client:   client,
		fetcher:  fetcher,
		throttle: throttle,
		queries:  cat.Search.Queries,
		pause:    time.Second,
	}, nil
}

// Run executes every query, dedups result URLs, and processes each one.
// Missing credentials are a zero-result success, not an error: the channel
// is optional.
func (a *SearchAdapter) Run(ctx context.Context) model.ChannelResult {
	result := model.ChannelResult{Channel: model.ChannelSearch}

	if a.client == nil {
		zap.L().Info("web search skipped: credentials not configured")
		return result
	}

	var candidates []model.CandidateItem
	seen := make(map[string]struct{})
	now := time.Now().UTC()
	for _, query := range a.queries {
		// Recency window keeps quota spent on fresh deal news.
		resp, err := a.client.Search(ctx, query+" when:30d")
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("query %q: %v", query, err))
			zap.L().Warn("web search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		for _, item := range resp.Items {
			if _, ok := seen[item.Link]; ok {
				continue
			}
			seen[item.Link] = struct{}{}
			sourceName := item.DisplayLink
			if sourceName == "" {
				sourceName = "Web Search"
			}
			candidates = append(candidates, model.CandidateItem{
				URL:          item.Link,
				Title:        item.Title,
				Snippet:      item.Snippet,
				SourceName:   sourceName,
				Channel:      model.ChannelSearch,
				DiscoveredAt: now,
			})
		}
		if err := sleep(ctx, a.pause); err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result
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
