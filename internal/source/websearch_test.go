package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/pkg/google"
)

type fakeSearch struct {
	items   []google.SearchItem
	err     error
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) (*google.SearchResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &google.SearchResponse{Items: f.items}, nil
}

func TestSearchAdapter_NilClientIsZeroResultSuccess(t *testing.T) {
	f := newFixture(t)
	adapter := &SearchAdapter{pipeline: f.pipeline, fetcher: f.fetcher, queries: []string{"q"}}

	result := adapter.Run(context.Background())
	assert.Empty(t, result.Errors)
	assert.Zero(t, result.Found)
	assert.Zero(t, result.Stored)
}

func TestSearchAdapter_Run(t *testing.T) {
	f := newFixture(t)

	url := "https://news.example.com/apex-deal"
	search := &fakeSearch{items: []google.SearchItem{
		{Title: "Apex Acquires Test HVAC Co", Link: url, Snippet: "PE deal", DisplayLink: "news.example.com"},
		{Title: "Duplicate", Link: url, Snippet: "same url"},
	}}
	f.fetcher.pages[url] = &model.Page{Text: "Apex Service Partners announced..."}
	f.model.responses = []string{relevantClassification, relevantExtraction}

	adapter := &SearchAdapter{
		pipeline: f.pipeline,
		client:   search,
		fetcher:  f.fetcher,
		queries:  []string{"HVAC acquisition"},
	}

	result := adapter.Run(context.Background())
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Stored)

	// The recency window is appended to every query.
	require.Len(t, search.queries, 1)
	assert.Equal(t, "HVAC acquisition when:30d", search.queries[0])

	article, err := f.store.GetArticleByURL(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, "news.example.com", article.Source)
}

func TestSearchAdapter_QueryFailureIsCollected(t *testing.T) {
	f := newFixture(t)
	adapter := &SearchAdapter{
		pipeline: f.pipeline,
		client:   &fakeSearch{err: assert.AnError},
		fetcher:  f.fetcher,
		queries:  []string{"a", "b"},
	}

	result := adapter.Run(context.Background())
	assert.Len(t, result.Errors, 2)
	assert.Zero(t, result.Found)
}

func TestNewSearchAdapter_LoadsCatalog(t *testing.T) {
	f := newFixture(t)
	adapter, err := NewSearchAdapter(f.pipeline, nil, f.fetcher, nil)
	require.NoError(t, err)
	assert.Len(t, adapter.queries, 23)
}
