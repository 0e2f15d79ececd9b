package gmail

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(context.Background(), Credentials{},
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)
}

func TestListMessages_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages", r.URL.Path)
		assert.Equal(t, "from:googlealerts-noreply@google.com newer_than:7d", r.URL.Query().Get("q"))
		assert.Equal(t, "25", r.URL.Query().Get("maxResults"))
		w.Write([]byte(`{"messages":[{"id":"m1","threadId":"t1"},{"id":"m2","threadId":"t1"}]}`))
	})

	refs, err := client.ListMessages(context.Background(), "from:googlealerts-noreply@google.com newer_than:7d", 25)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "m1", refs[0].ID)
}

func TestListMessages_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSizeEstimate":0}`))
	})

	refs, err := client.ListMessages(context.Background(), "from:nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestGetMessage_Success(t *testing.T) {
	html := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte("<p>alert body</p>"))
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		w.Write([]byte(`{
			"id": "m1",
			"snippet": "Google Alert - hvac acquisition",
			"payload": {
				"mimeType": "multipart/alternative",
				"headers": [{"name": "Subject", "value": "Google Alert - hvac"}],
				"parts": [
					{"mimeType": "text/plain", "body": {"data": "cGxhaW4"}},
					{"mimeType": "text/html", "body": {"data": "` + html + `"}}
				]
			}
		}`))
	})

	msg, err := client.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Google Alert - hvac", msg.Header("subject"))
	assert.Equal(t, "<p>alert body</p>", msg.Payload.HTMLBody())
}

func TestGetMessage_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	})

	_, err := client.GetMessage(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestHTMLBody_NoHTMLPart(t *testing.T) {
	part := MessagePart{
		MimeType: "multipart/alternative",
		Parts: []MessagePart{
			{MimeType: "text/plain", Body: PartBody{Data: "cGxhaW4"}},
		},
	}
	assert.Empty(t, part.HTMLBody())
}

func TestCredentials_Configured(t *testing.T) {
	assert.False(t, Credentials{}.Configured())
	assert.False(t, Credentials{ClientID: "id", ClientSecret: "secret"}.Configured())
	assert.True(t, Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "tok"}.Configured())
}
