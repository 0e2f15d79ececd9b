package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/pkg/gmail"
)

type fakeGmail struct {
	messages map[string]*gmail.Message
	query    string
}

func (f *fakeGmail) ListMessages(ctx context.Context, query string, maxResults int) ([]gmail.MessageRef, error) {
	f.query = query
	var refs []gmail.MessageRef
	for id := range f.messages {
		refs = append(refs, gmail.MessageRef{ID: id})
	}
	return refs, nil
}

func (f *fakeGmail) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("no message %s", id)
	}
	return msg, nil
}

func alertMessage(id, subject, htmlBody string) *gmail.Message {
	return &gmail.Message{
		ID: id,
		Payload: gmail.MessagePart{
			MimeType: "text/html",
			Headers:  []gmail.Header{{Name: "Subject", Value: subject}},
			Body: gmail.PartBody{
				Data: base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(htmlBody)),
			},
		},
	}
}

const alertHTML = `<html><body>
<a href="https://www.google.com/url?url=https://tradepress.example.com/apex-deal&ct=ga">Apex Acquires Test HVAC Co</a>
<a href="https://other.example.com/direct-article">Direct link</a>
<a href="https://www.google.com/alerts/edit?x=1">Edit this alert</a>
<a href="https://example.com/unsubscribe?id=9">Unsubscribe</a>
</body></html>`

func TestExtractAlertURLs(t *testing.T) {
	urls := extractAlertURLs(alertHTML)

	assert.Contains(t, urls, "https://tradepress.example.com/apex-deal")
	assert.Contains(t, urls, "https://other.example.com/direct-article")
	for _, u := range urls {
		assert.NotContains(t, u, "google.com/alerts")
		assert.NotContains(t, u, "unsubscribe")
	}
}

func TestExtractAlertURLs_Dedup(t *testing.T) {
	body := `<a href="https://a.example.com/x">one</a><a href="https://a.example.com/x">again</a>`
	assert.Equal(t, []string{"https://a.example.com/x"}, extractAlertURLs(body))
}

func TestKeepAlertURL(t *testing.T) {
	cases := []struct {
		url  string
		keep bool
	}{
		{"https://tradepress.example.com/story", true},
		{"https://www.google.com/url?url=x", false},
		{"https://support.google.com/websearch", false},
		{"https://accounts.google.com/signin", false},
		{"https://example.com/unsubscribe", false},
		{"https://example.com/preferences?u=1", false},
		{"ftp://example.com/file", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.keep, keepAlertURL(tc.url), tc.url)
	}
}

func TestInboxAdapter_Run(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client := &fakeGmail{messages: map[string]*gmail.Message{
		"m1": alertMessage("m1", "Google Alert - HVAC acquisition",
			`<a href="https://tradepress.example.com/apex-deal">story</a>`),
	}}
	f.fetcher.pages["https://tradepress.example.com/apex-deal"] = &model.Page{
		Title: "Apex Acquires Test HVAC Co",
		Text:  "Apex Service Partners announced...",
	}
	f.model.responses = []string{relevantClassification, relevantExtraction}

	adapter := NewInboxAdapter(f.pipeline, f.store, client, f.fetcher, nil, 7, 1)
	result := adapter.Run(ctx)

	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, "from:googlealerts-noreply@google.com newer_than:7d", client.query)

	logs, err := f.store.ListScrapeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "success", logs[0].Status)
}

func TestInboxAdapter_MissingCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	adapter := NewInboxAdapter(f.pipeline, f.store, nil, f.fetcher, nil, 7, 1)
	result := adapter.Run(ctx)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not configured")

	// The failed run is still visible in the scrape history.
	logs, err := f.store.ListScrapeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "partial", logs[0].Status)

	src, err := f.store.FindOrCreateSource(ctx, inboxSourceName, inboxSourceURL, model.ChannelInbox)
	require.NoError(t, err)
	assert.Equal(t, 1, src.ConsecutiveFailures)
}
