package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackar/aireshark/internal/model"
)

var testNewsSource = newsSource{
	Name:            "Trade Press",
	BaseURL:         "https://trade.example.com",
	SearchURL:       "https://trade.example.com/search?q=%s",
	ArticleSelector: "article",
	TitleSelector:   "h2 a",
	LinkSelector:    "h2 a",
	SnippetSelector: ".excerpt",
}

const searchPageHTML = `<html><body>
<article>
  <h2><a href="/apex-deal">Apex Acquires Test HVAC Co</a></h2>
  <p class="excerpt">Platform deal in Florida.</p>
</article>
<article>
  <h2><a href="https://other.example.com/full-link">Wrench Group expands</a></h2>
  <p class="excerpt">Another roll-up.</p>
</article>
<article>
  <h2><a href="/no-title"></a></h2>
</article>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	items := parseSearchResults(testNewsSource, searchPageHTML)
	require.Len(t, items, 2)

	assert.Equal(t, "https://trade.example.com/apex-deal", items[0].URL)
	assert.Equal(t, "Apex Acquires Test HVAC Co", items[0].Title)
	assert.Equal(t, "Platform deal in Florida.", items[0].Snippet)
	assert.Equal(t, "Trade Press", items[0].SourceName)
	assert.Equal(t, model.ChannelNews, items[0].Channel)

	// Absolute links pass through untouched.
	assert.Equal(t, "https://other.example.com/full-link", items[1].URL)
}

func TestParseSearchResults_BadHTMLYieldsNothing(t *testing.T) {
	items := parseSearchResults(testNewsSource, "not html at all")
	assert.Empty(t, items)
}

func TestNewsAdapter_Run(t *testing.T) {
	f := newFixture(t)

	adapter := &NewsAdapter{
		pipeline: f.pipeline,
		fetcher:  f.fetcher,
		sources:  []newsSource{testNewsSource},
		queries:  []string{"HVAC acquisition", "plumbing acquisition"},
	}

	// Both queries return the same listing; candidates dedup by URL.
	searchPage := &model.Page{RawHTML: searchPageHTML}
	f.fetcher.pages["https://trade.example.com/search?q=HVAC+acquisition"] = searchPage
	f.fetcher.pages["https://trade.example.com/search?q=plumbing+acquisition"] = searchPage

	f.fetcher.pages["https://trade.example.com/apex-deal"] = &model.Page{
		Title: "Apex Acquires Test HVAC Co",
		Text:  "Apex Service Partners announced...",
	}

	f.model.responses = []string{
		relevantClassification,
		relevantExtraction,
		// Second candidate is not relevant.
		`{"isRelevant": false, "confidence": 10}`,
	}

	result := adapter.Run(context.Background())
	assert.Empty(t, result.Errors)
	assert.Equal(t, model.ChannelNews, result.Channel)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 1, result.Stored)

	article, err := f.store.GetArticleByURL(context.Background(), "https://trade.example.com/apex-deal")
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, "Trade Press", article.Source)
}

func TestNewsAdapter_SearchFailureIsCollected(t *testing.T) {
	f := newFixture(t)

	adapter := &NewsAdapter{
		pipeline: f.pipeline,
		fetcher:  f.fetcher, // serves nothing, every fetch fails
		sources:  []newsSource{testNewsSource},
		queries:  []string{"HVAC acquisition"},
	}

	result := adapter.Run(context.Background())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Trade Press")
	assert.Zero(t, result.Found)
}

func TestNewNewsAdapter_LoadsCatalog(t *testing.T) {
	f := newFixture(t)
	adapter, err := NewNewsAdapter(f.pipeline, f.fetcher, nil)
	require.NoError(t, err)
	assert.Len(t, adapter.sources, 4)
	assert.Len(t, adapter.queries, 9)
}
