package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/store"
	"github.com/pmackar/aireshark/pkg/gmail"
)

const (
	alertSender     = "googlealerts-noreply@google.com"
	inboxSourceName = "Google Alerts (Gmail)"
	inboxSourceURL  = "gmail://alerts"
	maxAlertEmails  = 50
)

// Alert emails wrap article links two ways: plain anchors and Google
// redirect URLs with the target in a url= parameter.
var (
	hrefPattern     = regexp.MustCompile(`href="(https?://[^"]+)"`)
	redirectPattern = regexp.MustCompile(`url=(https?://[^&"]+)`)
)

// InboxAdapter drains Google Alerts emails from a Gmail inbox. Every link
// in every alert email inside the lookback window is a candidate.
type InboxAdapter struct {
	pipeline     *Pipeline
	store        store.Store
	client       gmail.Client // nil when credentials are not configured
	fetcher      fetch.Fetcher
	throttle     *fetch.Throttle
	lookbackDays int
	batchSize    int
}

func NewInboxAdapter(p *Pipeline, st store.Store, client gmail.Client, fetcher fetch.Fetcher, throttle *fetch.Throttle, lookbackDays, batchSize int) *InboxAdapter {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &InboxAdapter{
		pipeline:     p,
		store:        st,
		client:       client,
		fetcher:      fetcher,
		throttle:     throttle,
		lookbackDays: lookbackDays,
		batchSize:    batchSize,
	}
}

// alertItem is one deduplicated link from an alert email, with the email
// subject kept as a title fallback for pages without one.
type alertItem struct {
	url     string
	subject string
}

// Run lists alert emails, extracts their article links, and processes each
// one. The whole run is logged against a single synthetic inbox source so
// its failure counter tracks credential or API breakage.
func (a *InboxAdapter) Run(ctx context.Context) model.ChannelResult {
	result := model.ChannelResult{Channel: model.ChannelInbox}
	startedAt := time.Now().UTC()

	src, err := a.store.FindOrCreateSource(ctx, inboxSourceName, inboxSourceURL, model.ChannelInbox)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if a.client == nil {
		result.Errors = append(result.Errors, "gmail credentials not configured")
		a.logRun(ctx, src.ID, startedAt, &result)
		return result
	}

	query := fmt.Sprintf("from:%s newer_than:%dd", alertSender, a.lookbackDays)
	refs, err := a.client.ListMessages(ctx, query, maxAlertEmails)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list alerts: %v", err))
		a.logRun(ctx, src.ID, startedAt, &result)
		return result
	}
	zap.L().Info("alert emails found", zap.Int("count", len(refs)))

	seen := make(map[string]struct{})
	var items []alertItem
	for _, ref := range refs {
		msg, err := a.client.GetMessage(ctx, ref.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("message %s: %v", ref.ID, err))
			continue
		}
		body := msg.Payload.HTMLBody()
		if body == "" {
			continue
		}
		subject := msg.Header("Subject")

		for _, link := range extractAlertURLs(body) {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			result.Found++
			items = append(items, alertItem{url: link, subject: subject})
		}
	}

	// Drop already-stored URLs before fetching anything.
	fresh := items[:0]
	for _, item := range items {
		isNew, err := a.pipeline.isNewURL(ctx, item.url)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.url, err))
			continue
		}
		if isNew {
			fresh = append(fresh, item)
		}
	}

	urls := make([]string, len(fresh))
	for i, item := range fresh {
		urls[i] = item.url
	}
	pages := fetch.FetchAll(ctx, a.fetcher, urls, a.batchSize, a.throttle)

	for _, item := range fresh {
		page, ok := pages[item.url]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("fetch %s failed", item.url))
			continue
		}
		stored, err := a.pipeline.processAlertPage(ctx, item.url, item.subject, page)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.url, err))
			continue
		}
		if stored {
			result.Stored++
		}
	}

	a.logRun(ctx, src.ID, startedAt, &result)
	return result
}

func (a *InboxAdapter) logRun(ctx context.Context, sourceID string, startedAt time.Time, result *model.ChannelResult) {
	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	entry := &model.ScrapeLog{
		SourceID:     sourceID,
		StartedAt:    startedAt,
		CompletedAt:  time.Now().UTC(),
		Status:       status,
		RecordsFound: result.Found,
		RecordsNew:   result.Stored,
		ErrorMessage: strings.Join(result.Errors, "; "),
	}
	if err := a.store.CreateScrapeLog(ctx, entry); err != nil {
		zap.L().Warn("scrape log write failed", zap.Error(err))
	}
	if err := a.store.RecordSourceRun(ctx, sourceID, len(result.Errors) == 0, entry.CompletedAt); err != nil {
		zap.L().Warn("source counter update failed", zap.Error(err))
	}
}

// extractAlertURLs pulls article links out of an alert email body,
// unwrapping Google redirects and dropping tracking and account-management
// links. Order of first appearance is preserved.
func extractAlertURLs(htmlBody string) []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, pattern := range []*regexp.Regexp{hrefPattern, redirectPattern} {
		for _, match := range pattern.FindAllStringSubmatch(htmlBody, -1) {
			link := match[1]
			if decoded, err := url.QueryUnescape(link); err == nil {
				link = decoded
			}
			if !keepAlertURL(link) {
				continue
			}
			// Unwrap the redirect target when the link is a Google
			// wrapper around the real article URL.
			if inner := redirectPattern.FindStringSubmatch(link); inner != nil {
				if decoded, err := url.QueryUnescape(inner[1]); err == nil {
					add(decoded)
				} else {
					add(inner[1])
				}
				continue
			}
			add(link)
		}
	}
	return urls
}

func keepAlertURL(u string) bool {
	if !strings.Contains(u, "http://") && !strings.Contains(u, "https://") {
		return false
	}
	for _, frag := range []string{
		"google.com/alerts",
		"google.com/url",
		"support.google.com",
		"accounts.google.com",
		"unsubscribe",
		"preferences",
	} {
		if strings.Contains(u, frag) {
			return false
		}
	}
	return true
}
