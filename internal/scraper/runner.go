// Package scraper orchestrates the acquisition channels: it wires the
// shared pipeline, owns the browser for the duration of a run, and
// aggregates per-channel results into a single report.
package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/config"
	"github.com/pmackar/aireshark/internal/extract"
	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/resolve"
	"github.com/pmackar/aireshark/internal/source"
	"github.com/pmackar/aireshark/internal/store"
	"github.com/pmackar/aireshark/pkg/anthropic"
	"github.com/pmackar/aireshark/pkg/gmail"
	"github.com/pmackar/aireshark/pkg/google"
)

// Runner drives scrape runs. Clients for optional channels are nil when
// their credentials are absent; the affected adapters degrade on their own.
type Runner struct {
	cfg       *config.Config
	store     store.Store
	anthropic anthropic.Client
	google    google.Client
	gmail     gmail.Client

	// newBrowser exists so tests can substitute a fake fetcher for the
	// real headless browser.
	newBrowser func(ctx context.Context) (fetch.Fetcher, func())
}

// New builds a Runner from validated configuration.
func New(ctx context.Context, cfg *config.Config, st store.Store) *Runner {
	r := &Runner{
		cfg:       cfg,
		store:     st,
		anthropic: anthropic.NewClient(cfg.Anthropic.Key),
	}
	if cfg.Google.Key != "" && cfg.Google.EngineID != "" {
		r.google = google.NewClient(cfg.Google.Key, cfg.Google.EngineID)
	}
	creds := gmail.Credentials{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
	}
	if creds.Configured() {
		r.gmail = gmail.NewClient(ctx, creds)
	}
	r.newBrowser = func(ctx context.Context) (fetch.Fetcher, func()) {
		browser := fetch.NewBrowser(ctx, fetch.BrowserConfig{
			Headless:   cfg.Browser.Headless,
			NavTimeout: time.Duration(cfg.Browser.NavTimeoutSecs) * time.Second,
			Settle:     time.Duration(cfg.Browser.SettleMillis) * time.Millisecond,
		})
		return browser, browser.Close
	}
	return r
}

// channelSet selects which channels a run executes.
type channelSet struct {
	news      bool
	search    bool
	rss       bool
	inbox     bool
	platforms bool
}

// RunAll executes every channel.
func (r *Runner) RunAll(ctx context.Context) (*model.RunReport, error) {
	return r.run(ctx, channelSet{news: true, search: true, rss: true, inbox: true, platforms: true})
}

// RunNews executes only the trade-press search channel.
func (r *Runner) RunNews(ctx context.Context) (*model.RunReport, error) {
	return r.run(ctx, channelSet{news: true})
}

// RunSearch executes only the web-search channel.
func (r *Runner) RunSearch(ctx context.Context) (*model.RunReport, error) {
	return r.run(ctx, channelSet{search: true})
}

// RunRSS executes only the RSS channel.
func (r *Runner) RunRSS(ctx context.Context) (*model.RunReport, error) {
	return r.run(ctx, channelSet{rss: true})
}

// RunInbox executes only the alerts-inbox channel.
func (r *Runner) RunInbox(ctx context.Context) (*model.RunReport, error) {
	return r.run(ctx, channelSet{inbox: true})
}

// RunPlatforms executes only the platform brands-page monitor.
func (r *Runner) RunPlatforms(ctx context.Context) (*model.RunReport, error) {
	return r.run(ctx, channelSet{platforms: true})
}

func (r *Runner) run(ctx context.Context, set channelSet) (*model.RunReport, error) {
	startedAt := time.Now()
	report := &model.RunReport{}

	extractor := extract.NewExtractor(r.anthropic, r.cfg.Anthropic.HaikuModel, r.cfg.Anthropic.SonnetModel)
	resolver := resolve.New(r.store, r.cfg.Scraper.CommitThreshold)
	pipeline := source.NewPipeline(r.store, extractor, resolver, r.cfg.Scraper.ClassifyThreshold)
	throttle := fetch.NewThrottle(
		time.Duration(r.cfg.Scraper.ThrottleMinMillis)*time.Millisecond,
		time.Duration(r.cfg.Scraper.ThrottleMaxMillis)*time.Millisecond,
	)
	lite := fetch.NewLiteFetcher(time.Duration(r.cfg.Browser.FetchTimeoutSecs) * time.Second)

	// The browser launches lazily on first use, so creating it for runs
	// that never render a page costs nothing. Close runs on every exit
	// path regardless.
	browser, closeBrowser := r.newBrowser(ctx)
	defer closeBrowser()

	collect := func(result model.ChannelResult) {
		report.Channels = append(report.Channels, result)
		report.Errors = append(report.Errors, result.Errors...)
	}

	if set.news {
		adapter, err := source.NewNewsAdapter(pipeline, browser, throttle)
		if err != nil {
			return nil, err
		}
		result := r.logged(ctx, "Trade Press Search", "aggregate://news_search", model.ChannelNews,
			func() model.ChannelResult { return adapter.Run(ctx) })
		collect(result)
	}

	if set.search {
		adapter, err := source.NewSearchAdapter(pipeline, r.google, lite, throttle)
		if err != nil {
			return nil, err
		}
		result := r.logged(ctx, "Web Search", "aggregate://web_search", model.ChannelSearch,
			func() model.ChannelResult { return adapter.Run(ctx) })
		collect(result)
	}

	if set.rss {
		adapter, err := source.NewRSSAdapter(pipeline, r.store, browser, throttle, r.cfg.Scraper.MaxItemsPerSource)
		if err != nil {
			return nil, err
		}
		collect(adapter.Run(ctx))
	}

	if set.inbox {
		adapter := source.NewInboxAdapter(pipeline, r.store, r.gmail, browser, throttle, r.cfg.Scraper.InboxLookbackDays, r.cfg.Browser.BatchSize)
		collect(adapter.Run(ctx))
	}

	if set.platforms {
		adapter := source.NewMonitorAdapter(r.store, resolver, extractor, browser)
		results := adapter.Run(ctx)
		report.Monitor = results
		for _, res := range results {
			report.Errors = append(report.Errors, res.Errors...)
		}
	}

	report.Duration = time.Since(startedAt)

	zap.L().Info("scrape run complete",
		zap.Int("found", report.Found()),
		zap.Int("stored", report.Stored()),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration))
	extractor.Usage().LogCost(r.cfg.Anthropic.SonnetModel, "scrape")

	return report, nil
}
