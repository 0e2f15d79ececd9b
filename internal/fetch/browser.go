package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/model"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// extractScript runs in the page after it settles: strip non-content nodes,
// then prefer a main-content region over the full body.
const extractScript = `(() => {
	for (const el of document.querySelectorAll('script, style, noscript, iframe, svg')) {
		el.remove();
	}
	const candidates = ['article', 'main', '[role="main"]', '.content', '.post-content', '.article-body', '#content'];
	let node = null;
	for (const sel of candidates) {
		node = document.querySelector(sel);
		if (node && node.innerText && node.innerText.trim().length > 200) break;
		node = null;
	}
	if (!node) node = document.body;
	return {
		title: document.title || '',
		text: node ? node.innerText : '',
		html: document.documentElement ? document.documentElement.outerHTML : ''
	};
})()`

// BrowserConfig tunes the headless browser.
type BrowserConfig struct {
	Headless   bool
	NavTimeout time.Duration // per-page navigation budget
	Settle     time.Duration // wait after load for late JS
}

// Browser is a shared headless Chrome instance. It starts lazily on first
// Fetch and must be closed by the owner once the run is over; Close is
// idempotent. The orchestrator owns exactly one Browser per run.
type Browser struct {
	cfg BrowserConfig

	mu         sync.Mutex
	parentCtx  context.Context
	browserCtx context.Context
	cancels    []context.CancelFunc
	closed     bool
}

// NewBrowser creates an unstarted browser handle.
func NewBrowser(ctx context.Context, cfg BrowserConfig) *Browser {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	return &Browser{cfg: cfg, parentCtx: ctx}
}

// start launches Chrome on first use. Callers hold b.mu.
func (b *Browser) start() error {
	if b.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.UserAgent(browserUserAgent),
		chromedp.WindowSize(1280, 800),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(b.parentCtx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Launch eagerly so a broken Chrome install fails here, not mid-batch.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return eris.Wrap(err, "fetch: launch browser")
	}

	b.browserCtx = browserCtx
	b.cancels = []context.CancelFunc{cancelBrowser, cancelAlloc}
	zap.L().Debug("browser launched", zap.Bool("headless", b.cfg.Headless))
	return nil
}

// Fetch renders url in a fresh tab and returns the settled page content.
func (b *Browser) Fetch(ctx context.Context, url string) (*model.Page, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, eris.New("fetch: browser closed")
	}
	if err := b.start(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	browserCtx := b.browserCtx
	b.mu.Unlock()

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.NavTimeout)
	defer cancelTimeout()

	// Abort the tab if the caller's context ends first.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var result struct {
		Title string `json:"title"`
		Text  string `json:"text"`
		HTML  string `json:"html"`
	}
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.cfg.Settle),
		chromedp.Evaluate(extractScript, &result),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: render %s", url)
	}

	return &model.Page{
		Title:   strings.TrimSpace(result.Title),
		Text:    strings.TrimSpace(result.Text),
		RawHTML: result.HTML,
	}, nil
}

// Close shuts the browser down. Safe to call multiple times and before the
// browser ever started.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
	b.browserCtx = nil
}
