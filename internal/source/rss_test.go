package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackar/aireshark/internal/model"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Apex Acquires Test HVAC Co</title>
      <link>https://achrnews.example.com/apex-deal</link>
      <description>Private equity platform deal</description>
      <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Already Known Story</title>
      <link>https://achrnews.example.com/old-story</link>
      <description>Previously stored</description>
    </item>
    <item>
      <title>Refrigerant Prices</title>
      <link>https://achrnews.example.com/refrigerant</link>
      <description>Commodity news</description>
    </item>
  </channel>
</rss>`

func newRSSAdapterForTest(f *fixture, feedURL string) *RSSAdapter {
	return &RSSAdapter{
		pipeline: f.pipeline,
		store:    f.store,
		fetcher:  f.fetcher,
		parser:   gofeed.NewParser(),
		feeds:    []rssFeed{{Name: "Test Feed", URL: feedURL}},
		maxItems: 20,
	}
}

func TestRSSAdapter_Run(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeedXML)) //nolint:errcheck
	}))
	defer server.Close()

	// One item is already in the store and must not be reprocessed.
	require.NoError(t, f.store.CreateArticle(ctx, &model.Article{
		Title: "Already Known Story", URL: "https://achrnews.example.com/old-story",
		Source: "Test Feed", PublishedDate: time.Now().UTC(),
	}))

	f.fetcher.pages["https://achrnews.example.com/apex-deal"] = &model.Page{
		Title: "Apex Acquires Test HVAC Co",
		Text:  "Apex Service Partners announced...",
	}
	f.model.responses = []string{
		relevantClassification,
		relevantExtraction,
		// Third item fails the relevance gate.
		`{"isRelevant": false, "confidence": 5}`,
	}

	adapter := newRSSAdapterForTest(f, server.URL)
	result := adapter.Run(ctx)

	assert.Empty(t, result.Errors)
	assert.Equal(t, model.ChannelRSS, result.Channel)
	assert.Equal(t, 3, result.Found)
	assert.Equal(t, 1, result.Stored)

	// The publish date came from the feed item.
	article, err := f.store.GetArticleByURL(ctx, "https://achrnews.example.com/apex-deal")
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, 2026, article.PublishedDate.Year())

	// A success log was written and the source counter stayed clean.
	logs, err := f.store.ListScrapeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "success", logs[0].Status)
	assert.Equal(t, 3, logs[0].RecordsFound)
	assert.Equal(t, 1, logs[0].RecordsNew)

	src, err := f.store.FindOrCreateSource(ctx, "Test Feed", server.URL, model.ChannelRSS)
	require.NoError(t, err)
	assert.Zero(t, src.ConsecutiveFailures)
	assert.NotNil(t, src.LastSuccessAt)
}

func TestRSSAdapter_MaxItemsCap(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeedXML)) //nolint:errcheck
	}))
	defer server.Close()

	f.model.responses = []string{`{"isRelevant": false, "confidence": 0}`}

	adapter := newRSSAdapterForTest(f, server.URL)
	adapter.maxItems = 1
	result := adapter.Run(context.Background())

	assert.Equal(t, 3, result.Found)
	// Only the newest item reached the classifier.
	assert.Len(t, f.model.requests, 1)
	assert.Contains(t, f.model.requests[0].Messages[0].Content, "Apex Acquires Test HVAC Co")
	assert.Zero(t, result.Stored)
}

func TestRSSAdapter_BrokenFeedRecordsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := newRSSAdapterForTest(f, server.URL)
	result := adapter.Run(ctx)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Test Feed")

	logs, err := f.store.ListScrapeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "partial", logs[0].Status)
	assert.NotEmpty(t, logs[0].ErrorMessage)

	src, err := f.store.FindOrCreateSource(ctx, "Test Feed", server.URL, model.ChannelRSS)
	require.NoError(t, err)
	assert.Equal(t, 1, src.ConsecutiveFailures)
}
