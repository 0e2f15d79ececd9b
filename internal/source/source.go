// Package source implements the acquisition channels: trade-press search
// pages, web search, RSS feeds, the alerts inbox, and platform brands-page
// monitoring. Each adapter lists candidate URLs for its channel and pushes
// them through the shared item pipeline.
package source

import (
	"context"
	_ "embed"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pmackar/aireshark/internal/extract"
	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/resolve"
	"github.com/pmackar/aireshark/internal/store"
)

//go:embed sources.yaml
var sourcesYAML []byte

type newsSource struct {
	Name            string `yaml:"name"`
	BaseURL         string `yaml:"base_url"`
	SearchURL       string `yaml:"search_url"`
	ArticleSelector string `yaml:"article_selector"`
	TitleSelector   string `yaml:"title_selector"`
	LinkSelector    string `yaml:"link_selector"`
	SnippetSelector string `yaml:"snippet_selector"`
}

type rssFeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type catalog struct {
	News struct {
		Sources []newsSource `yaml:"sources"`
		Queries []string     `yaml:"queries"`
	} `yaml:"news"`
	Search struct {
		Queries []string `yaml:"queries"`
	} `yaml:"search"`
	RSS struct {
		Feeds []rssFeed `yaml:"feeds"`
	} `yaml:"rss"`
}

func loadCatalog() (*catalog, error) {
	var c catalog
	if err := yaml.Unmarshal(sourcesYAML, &c); err != nil {
		return nil, eris.Wrap(err, "source: parse sources.yaml")
	}
	return &c, nil
}

// Pipeline is the shared per-item path every channel feeds into:
// existence pre-check, cheap relevance gate, full fetch, structured
// extraction, then resolution into the store.
type Pipeline struct {
	store             store.Store
	extractor         *extract.Extractor
	resolver          *resolve.Resolver
	classifyThreshold int
}

// NewPipeline wires the item pipeline. The classify threshold is the
// minimum confidence a title+snippet pair needs before the full article
// is fetched.
func NewPipeline(st store.Store, ex *extract.Extractor, rs *resolve.Resolver, classifyThreshold int) *Pipeline {
	return &Pipeline{
		store:             st,
		extractor:         ex,
		resolver:          rs,
		classifyThreshold: classifyThreshold,
	}
}

// processItem runs one candidate through the full pipeline. It returns
// true only when a new article row was written. A false return with a nil
// error means the item was filtered: already known, not relevant, or the
// extraction itself judged it irrelevant.
func (p *Pipeline) processItem(ctx context.Context, item model.CandidateItem, fetcher fetch.Fetcher) (bool, error) {
	existing, err := p.store.GetArticleByURL(ctx, item.URL)
	if err != nil {
		return false, eris.Wrap(err, "source: check article")
	}
	if existing != nil {
		return false, nil
	}

	rel := p.extractor.ClassifyRelevance(ctx, item.Title, item.Snippet)
	if !rel.IsRelevant || rel.Confidence < p.classifyThreshold {
		zap.L().Debug("candidate filtered",
			zap.String("url", item.URL),
			zap.Int("confidence", rel.Confidence))
		return false, nil
	}

	page, err := fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return false, eris.Wrap(err, "source: fetch candidate")
	}

	return p.commit(ctx, item, page)
}

// isNewURL reports whether no article exists for url yet.
func (p *Pipeline) isNewURL(ctx context.Context, url string) (bool, error) {
	existing, err := p.store.GetArticleByURL(ctx, url)
	if err != nil {
		return false, eris.Wrap(err, "source: check article")
	}
	return existing == nil, nil
}

// processAlertPage handles inbox-discovered URLs, which arrive with no
// snippet: the page has already been fetched and is classified from its own
// content.
func (p *Pipeline) processAlertPage(ctx context.Context, url, subject string, page *model.Page) (bool, error) {
	title := page.Title
	if title == "" {
		title = subject
	}
	rel := p.extractor.ClassifyRelevance(ctx, title, snippetOf(page.Text))
	if !rel.IsRelevant || rel.Confidence < p.classifyThreshold {
		return false, nil
	}

	item := model.CandidateItem{
		URL:        url,
		Title:      title,
		SourceName: "Google Alerts",
		Channel:    model.ChannelInbox,
	}
	return p.commit(ctx, item, page)
}

// commit extracts structured data from a fetched page and resolves the
// article plus any qualifying acquisitions into the store.
func (p *Pipeline) commit(ctx context.Context, item model.CandidateItem, page *model.Page) (bool, error) {
	extracted, err := p.extractor.ExtractArticle(ctx, page.Text, item.URL)
	if err != nil {
		return false, err
	}
	if !extracted.IsRelevant {
		return false, nil
	}

	match, err := p.matchMentions(ctx, extracted.FirmMentions)
	if err != nil {
		return false, err
	}

	title := extracted.Title
	if title == "" {
		title = item.Title
	}
	published := time.Now().UTC()
	if item.PublishedAt != nil {
		published = *item.PublishedAt
	}

	article := &model.Article{
		Title:         title,
		URL:           item.URL,
		Source:        item.SourceName,
		Summary:       extracted.Summary,
		PublishedDate: published,
		FirmID:        match.FirmID,
		PlatformID:    match.PlatformID,
	}
	created, err := p.resolver.CommitArticle(ctx, article)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	zap.L().Info("article stored",
		zap.String("url", item.URL),
		zap.String("channel", string(item.Channel)))

	for _, acq := range extracted.Acquisitions {
		if _, err := p.resolver.CommitAcquisition(ctx, acq, article); err != nil {
			zap.L().Warn("acquisition commit failed",
				zap.String("url", item.URL),
				zap.Error(err))
		}
	}
	return true, nil
}

// matchMentions resolves the first firm mention that matches a known
// platform or firm. Articles with no recognized mention are still stored,
// just unattributed.
func (p *Pipeline) matchMentions(ctx context.Context, mentions []string) (resolve.Match, error) {
	for _, name := range mentions {
		match, err := p.resolver.FirmFor(ctx, name)
		if err != nil {
			return resolve.Match{}, err
		}
		if match.Found() {
			return match, nil
		}
	}
	return resolve.Match{}, nil
}

// snippetOf clips text to at most 500 bytes without splitting a rune.
func snippetOf(text string) string {
	n := 500
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// sleep pauses for d but returns early when the context ends. Adapters
// use it for the fixed pauses between queries, feeds, and platforms.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
