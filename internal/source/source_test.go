package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackar/aireshark/internal/extract"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/resolve"
	"github.com/pmackar/aireshark/internal/store"
	"github.com/pmackar/aireshark/pkg/anthropic"
)

// fakeModel returns canned completions in order and records requests.
type fakeModel struct {
	responses []string
	err       error
	requests  []anthropic.MessageRequest
}

func (f *fakeModel) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	text := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}, nil
}

// fakeFetcher serves pages from a map and records every requested URL.
type fakeFetcher struct {
	pages map[string]*model.Page
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

type fixture struct {
	store    store.Store
	model    *fakeModel
	fetcher  *fakeFetcher
	pipeline *Pipeline
	resolver *resolve.Resolver
	firm     *model.Firm
	platform *model.Platform
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	firm := &model.Firm{Name: "Alpine Investors", Slug: "alpine-investors"}
	require.NoError(t, st.CreateFirm(ctx, firm))

	platform := &model.Platform{
		Name:          "Apex Service Partners",
		Slug:          "apex-service-partners",
		FirmID:        firm.ID,
		BrandsPageURL: "https://apexservicepartners.com/our-partners/",
		IsActive:      true,
	}
	require.NoError(t, st.CreatePlatform(ctx, platform))

	fake := &fakeModel{}
	extractor := extract.NewExtractor(fake, "haiku-model", "sonnet-model")
	resolver := resolve.New(st, 70)

	return &fixture{
		store:    st,
		model:    fake,
		fetcher:  &fakeFetcher{pages: map[string]*model.Page{}},
		pipeline: NewPipeline(st, extractor, resolver, 40),
		resolver: resolver,
		firm:     firm,
		platform: platform,
	}
}

const relevantClassification = `{"isRelevant": true, "confidence": 85}`

const relevantExtraction = `{
  "title": "Apex Acquires Test HVAC Co",
  "summary": "Apex Service Partners acquired Test HVAC Co.",
  "peFirmMentions": ["Apex Service Partners"],
  "brandMentions": ["Test HVAC Co"],
  "isRelevant": true,
  "acquisitions": [{
    "peFirmName": "Apex Service Partners",
    "acquiredCompanyName": "Test HVAC Co",
    "acquisitionDate": "2026-05-01",
    "dealAmount": "",
    "location": "Tampa, FL",
    "relevanceScore": 90,
    "summary": "Apex acquired Test HVAC Co"
  }]
}`

func testCandidate(url string) model.CandidateItem {
	return model.CandidateItem{
		URL:        url,
		Title:      "Apex Acquires Test HVAC Co",
		Snippet:    "Private equity platform deal",
		SourceName: "ACHR News",
		Channel:    model.ChannelNews,
	}
}

func TestLoadCatalog(t *testing.T) {
	cat, err := loadCatalog()
	require.NoError(t, err)

	assert.Len(t, cat.News.Sources, 4)
	assert.Len(t, cat.News.Queries, 9)
	assert.Len(t, cat.Search.Queries, 23)
	assert.Len(t, cat.RSS.Feeds, 4)

	for _, src := range cat.News.Sources {
		assert.NotEmpty(t, src.SearchURL, src.Name)
		assert.Contains(t, src.SearchURL, "%s", src.Name)
		assert.NotEmpty(t, src.ArticleSelector, src.Name)
	}
}

func TestProcessItem_StoresArticleAndAcquisition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url := "https://achrnews.com/apex-test-hvac"
	f.fetcher.pages[url] = &model.Page{Title: "Apex Acquires Test HVAC Co", Text: "Apex Service Partners announced..."}
	f.model.responses = []string{relevantClassification, relevantExtraction}

	stored, err := f.pipeline.processItem(ctx, testCandidate(url), f.fetcher)
	require.NoError(t, err)
	assert.True(t, stored)

	article, err := f.store.GetArticleByURL(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, f.firm.ID, article.FirmID)
	assert.Equal(t, f.platform.ID, article.PlatformID)

	brand, err := f.store.GetBrandBySlug(ctx, "test-hvac-co")
	require.NoError(t, err)
	require.NotNil(t, brand)

	acq, err := f.store.GetAcquisitionByFirmBrand(ctx, f.firm.ID, brand.ID)
	require.NoError(t, err)
	require.NotNil(t, acq)
	assert.Equal(t, "platform_acquisition", acq.DealType)
}

func TestProcessItem_DuplicateURLSkipsModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url := "https://achrnews.com/already-seen"
	require.NoError(t, f.store.CreateArticle(ctx, &model.Article{
		Title: "Old", URL: url, Source: "ACHR News", PublishedDate: time.Now().UTC(),
	}))

	stored, err := f.pipeline.processItem(ctx, testCandidate(url), f.fetcher)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Empty(t, f.model.requests)
	assert.Empty(t, f.fetcher.calls)
}

func TestProcessItem_BelowThresholdNeverFetches(t *testing.T) {
	f := newFixture(t)
	f.model.responses = []string{`{"isRelevant": true, "confidence": 39}`}

	stored, err := f.pipeline.processItem(context.Background(), testCandidate("https://example.com/x"), f.fetcher)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Empty(t, f.fetcher.calls)
}

func TestProcessItem_AtThresholdFetches(t *testing.T) {
	f := newFixture(t)
	url := "https://example.com/borderline"
	f.fetcher.pages[url] = &model.Page{Text: "some text"}
	f.model.responses = []string{
		`{"isRelevant": true, "confidence": 40}`,
		`{"title": "", "summary": "", "peFirmMentions": [], "brandMentions": [], "isRelevant": false, "acquisitions": []}`,
	}

	stored, err := f.pipeline.processItem(context.Background(), testCandidate(url), f.fetcher)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, []string{url}, f.fetcher.calls)
}

func TestProcessAlertPage_ClassifiesFromPageContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url := "https://tradepress.example.com/alert-article"
	page := &model.Page{Text: "Apex Service Partners announced..."}
	f.model.responses = []string{relevantClassification, relevantExtraction}

	isNew, err := f.pipeline.isNewURL(ctx, url)
	require.NoError(t, err)
	assert.True(t, isNew)

	stored, err := f.pipeline.processAlertPage(ctx, url, "Google Alert - HVAC acquisition", page)
	require.NoError(t, err)
	assert.True(t, stored)

	// Page has no title, so the classifier saw the alert subject.
	require.NotEmpty(t, f.model.requests)
	assert.Contains(t, f.model.requests[0].Messages[0].Content, "Google Alert - HVAC acquisition")

	article, err := f.store.GetArticleByURL(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, "Google Alerts", article.Source)

	// A second sighting of the same URL is no longer new.
	isNew, err = f.pipeline.isNewURL(ctx, url)
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestSnippetOf_NeverSplitsRune(t *testing.T) {
	assert.Equal(t, "short", snippetOf("short"))

	// A multi-byte rune straddling the 500-byte cut must be dropped whole.
	text := strings.Repeat("a", 499) + "é…"
	got := snippetOf(text)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 499), got)

	long := strings.Repeat("é", 300)
	got = snippetOf(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 500, len(got))
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sleep(ctx, time.Minute))
	assert.NoError(t, sleep(context.Background(), 0))
}
