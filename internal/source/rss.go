package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/store"
)

const rssUserAgent = "Mozilla/5.0 (compatible; aireshark/1.0)"

// RSSAdapter polls the catalog's feeds. Unlike the other channels it logs
// per feed: each feed gets its own ScrapeSource row, ScrapeLog entry, and
// failure counter update.
type RSSAdapter struct {
	pipeline *Pipeline
	store    store.Store
	fetcher  fetch.Fetcher
	parser   *gofeed.Parser
	throttle *fetch.Throttle
	feeds    []rssFeed
	maxItems int
	pause    time.Duration
}

func NewRSSAdapter(p *Pipeline, st store.Store, fetcher fetch.Fetcher, throttle *fetch.Throttle, maxItems int) (*RSSAdapter, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	parser := gofeed.NewParser()
	parser.UserAgent = rssUserAgent
	parser.Client = &http.Client{Timeout: 10 * time.Second}
	if maxItems <= 0 {
		maxItems = 20
	}
	return &RSSAdapter{
		pipeline: p,
		store:    st,
		fetcher:  fetcher,
		parser:   parser,
		throttle: throttle,
		feeds:    cat.RSS.Feeds,
		maxItems: maxItems,
		pause:    time.Second,
	}, nil
}

// Run polls every feed in order. A broken feed records a partial log and
// bumps its failure counter; the remaining feeds still run.
func (a *RSSAdapter) Run(ctx context.Context) model.ChannelResult {
	result := model.ChannelResult{Channel: model.ChannelRSS}

	for _, feed := range a.feeds {
		found, stored, errs := a.runFeed(ctx, feed)
		result.Found += found
		result.Stored += stored
		result.Errors = append(result.Errors, errs...)

		if err := sleep(ctx, a.pause); err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result
		}
	}
	return result
}

func (a *RSSAdapter) runFeed(ctx context.Context, feed rssFeed) (found, stored int, errs []string) {
	startedAt := time.Now().UTC()

	src, err := a.store.FindOrCreateSource(ctx, feed.Name, feed.URL, model.ChannelRSS)
	if err != nil {
		return 0, 0, []string{fmt.Sprintf("feed %s: %v", feed.Name, err)}
	}

	parsed, err := a.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("feed %s: %v", feed.Name, err))
		a.logFeedRun(ctx, src.ID, startedAt, 0, 0, errs)
		return 0, 0, errs
	}
	found = len(parsed.Items)
	zap.L().Info("rss feed fetched",
		zap.String("feed", feed.Name),
		zap.Int("items", found))

	// Feeds are newest-first; anything past the cap is old news.
	items := parsed.Items
	if len(items) > a.maxItems {
		items = items[:a.maxItems]
	}

	for _, item := range items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		snippet := item.Description
		if snippet == "" {
			snippet = item.Content
		}
		candidate := model.CandidateItem{
			URL:          item.Link,
			Title:        item.Title,
			Snippet:      snippetOf(strings.TrimSpace(snippet)),
			SourceName:   feed.Name,
			Channel:      model.ChannelRSS,
			DiscoveredAt: startedAt,
			PublishedAt:  item.PublishedParsed,
		}
		ok, err := a.pipeline.processItem(ctx, candidate, a.fetcher)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", item.Link, err))
			continue
		}
		if ok {
			stored++
		}
		if err := a.throttle.Wait(ctx); err != nil {
			errs = append(errs, err.Error())
			break
		}
	}

	a.logFeedRun(ctx, src.ID, startedAt, found, stored, errs)
	return found, stored, errs
}

func (a *RSSAdapter) logFeedRun(ctx context.Context, sourceID string, startedAt time.Time, found, stored int, errs []string) {
	status := "success"
	if len(errs) > 0 {
		status = "partial"
	}
	entry := &model.ScrapeLog{
		SourceID:     sourceID,
		StartedAt:    startedAt,
		CompletedAt:  time.Now().UTC(),
		Status:       status,
		RecordsFound: found,
		RecordsNew:   stored,
		ErrorMessage: strings.Join(errs, "; "),
	}
	if err := a.store.CreateScrapeLog(ctx, entry); err != nil {
		zap.L().Warn("scrape log write failed", zap.Error(err))
	}
	if err := a.store.RecordSourceRun(ctx, sourceID, len(errs) == 0, entry.CompletedAt); err != nil {
		zap.L().Warn("source counter update failed", zap.Error(err))
	}
}
