// Package gmail provides a minimal Gmail REST API client for searching an
// inbox and fetching full messages, authenticated with an OAuth refresh
// token.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL  = "https://gmail.googleapis.com/gmail/v1"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// Client performs Gmail API operations on the authenticated user's inbox.
type Client interface {
	ListMessages(ctx context.Context, query string, maxResults int) ([]MessageRef, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
}

// MessageRef identifies a message returned by a list call.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Header is one RFC 2822 header on a message part.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody carries a base64url-encoded body payload.
type PartBody struct {
	Data string `json:"data"`
}

// MessagePart is one node of a message's MIME tree.
type MessagePart struct {
	MimeType string        `json:"mimeType"`
	Headers  []Header      `json:"headers"`
	Body     PartBody      `json:"body"`
	Parts    []MessagePart `json:"parts"`
}

// Message is a full message with its payload tree.
type Message struct {
	ID       string      `json:"id"`
	ThreadID string      `json:"threadId"`
	Snippet  string      `json:"snippet"`
	Payload  MessagePart `json:"payload"`
}

// Header returns the named header's value, case-insensitively, or "".
func (m *Message) Header(name string) string {
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// HTMLBody walks the MIME tree depth-first and returns the first decoded
// text/html part, or "" when the message carries none.
func (p *MessagePart) HTMLBody() string {
	if p.MimeType == "text/html" && p.Body.Data != "" {
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(p.Body.Data); err == nil {
			return string(decoded)
		}
	}
	for i := range p.Parts {
		if html := p.Parts[i].HTMLBody(); html != "" {
			return html
		}
	}
	return ""
}

// Credentials holds the OAuth client and refresh token for the inbox.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Configured reports whether all three credential fields are present.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the OAuth-wrapped http.Client. Intended for
// tests; it bypasses the token exchange entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Gmail client that refreshes access tokens as needed
// from the given credentials.
func NewClient(ctx context.Context, creds Credentials, opts ...Option) Client {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: defaultTokenURL},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    oauth2.NewClient(ctx, ts),
	}
	c.http.Timeout = 15 * time.Second
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ListMessages(ctx context.Context, query string, maxResults int) ([]MessageRef, error) {
	params := url.Values{}
	params.Set("q", query)
	if maxResults > 0 {
		params.Set("maxResults", strconv.Itoa(maxResults))
	}

	var result struct {
		Messages []MessageRef `json:"messages"`
	}
	if err := c.get(ctx, "/users/me/messages?"+params.Encode(), &result); err != nil {
		return nil, eris.Wrap(err, "gmail: list messages")
	}
	return result.Messages, nil
}

func (c *httpClient) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := c.get(ctx, "/users/me/messages/"+url.PathEscape(id)+"?format=full", &msg); err != nil {
		return nil, eris.Wrapf(err, "gmail: get message %s", id)
	}
	return &msg, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
