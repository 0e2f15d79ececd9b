// Package fetch turns URLs into normalized pages. It offers two fetchers: a
// headless-browser fetcher for JS-rendered pages and a plain HTTP fetcher for
// static content, plus batched fetching with a shared politeness throttle.
package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pmackar/aireshark/internal/model"
)

// Fetcher retrieves one URL as a normalized page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Page, error)
}

// Throttle spaces requests out with a minimum interval plus random jitter, so
// a batch never hammers one host at a steady machine-gun cadence.
type Throttle struct {
	limiter *rate.Limiter
	jitter  time.Duration
}

// NewThrottle creates a throttle with the given minimum and maximum delay
// between requests.
func NewThrottle(min, max time.Duration) *Throttle {
	if max < min {
		max = min
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(min), 1),
		jitter:  max - min,
	}
}

// Wait blocks until the next request may proceed or the context is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if t.jitter > 0 {
		delay := time.Duration(rand.Int63n(int64(t.jitter)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// FetchAll fetches URLs concurrently in batches of batchSize, throttled by
// throttle when non-nil. Failed URLs are logged and omitted from the result;
// one bad page never sinks the batch.
func FetchAll(ctx context.Context, fetcher Fetcher, urls []string, batchSize int, throttle *Throttle) map[string]*model.Page {
	if batchSize < 1 {
		batchSize = 1
	}

	var mu sync.Mutex
	pages := make(map[string]*model.Page, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSize)

	for _, url := range urls {
		g.Go(func() error {
			if err := throttle.Wait(ctx); err != nil {
				return nil //nolint:nilerr // context cancelled, nothing to record
			}
			page, err := fetcher.Fetch(ctx, url)
			if err != nil {
				zap.L().Warn("fetch failed",
					zap.String("url", url),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			pages[url] = page
			mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return pages
}
