package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/pmackar/aireshark/internal/model"
)

// maxLiteBody caps how much of a response body the lite fetcher will read.
const maxLiteBody = 2 << 20 // 2 MiB

// mainContentSelectors are tried in order; the first match with substantial
// text wins, otherwise the whole body is used.
var mainContentSelectors = []string{
	"article", "main", "[role=main]", ".content", ".post-content", ".article-body", "#content",
}

// LiteFetcher retrieves pages with a plain HTTP GET and static HTML parsing.
// It is the cheap path for RSS article links and other server-rendered pages;
// JS-heavy pages need the Browser.
type LiteFetcher struct {
	client *http.Client
}

// NewLiteFetcher creates a LiteFetcher with the given request timeout.
func NewLiteFetcher(timeout time.Duration) *LiteFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LiteFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *LiteFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fetch: unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLiteBody))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read %s", url)
	}

	return ParseHTML(string(body))
}

// ParseHTML normalizes raw HTML into a Page: non-content nodes removed,
// main-content region preferred over the full body.
func ParseHTML(rawHTML string) (*model.Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse html")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, iframe, svg, nav, header, footer, aside").Remove()

	var text string
	for _, sel := range mainContentSelectors {
		candidate := collapseWhitespace(doc.Find(sel).First().Text())
		if len(candidate) > 200 {
			text = candidate
			break
		}
	}
	if text == "" {
		text = collapseWhitespace(doc.Find("body").Text())
	}

	return &model.Page{
		Title:   title,
		Text:    text,
		RawHTML: rawHTML,
	}, nil
}

// collapseWhitespace squeezes runs of whitespace down to single spaces while
// keeping paragraph breaks.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	lastNewline := false
	for _, r := range s {
		switch {
		case r == '\n':
			if !lastNewline {
				b.WriteByte('\n')
			}
			lastNewline = true
			lastSpace = true
		case r == ' ' || r == '\t' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		default:
			b.WriteRune(r)
			lastSpace = false
			lastNewline = false
		}
	}
	return strings.TrimSpace(b.String())
}
