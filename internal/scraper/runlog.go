package scraper

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/model"
)

// logged wraps a channel invocation with scrape-history bookkeeping for
// channels that aggregate many upstream endpoints into a single logical
// source. Channels with per-endpoint sources (RSS feeds, the inbox,
// platform pages) write their own logs instead.
func (r *Runner) logged(ctx context.Context, name, url string, channel model.SourceChannel, fn func() model.ChannelResult) model.ChannelResult {
	startedAt := time.Now().UTC()
	result := fn()

	src, err := r.store.FindOrCreateSource(ctx, name, url, channel)
	if err != nil {
		zap.L().Warn("run log source lookup failed", zap.Error(err))
		return result
	}

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	entry := &model.ScrapeLog{
		SourceID:     src.ID,
		StartedAt:    startedAt,
		CompletedAt:  time.Now().UTC(),
		Status:       status,
		RecordsFound: result.Found,
		RecordsNew:   result.Stored,
		ErrorMessage: strings.Join(result.Errors, "; "),
	}
	if err := r.store.CreateScrapeLog(ctx, entry); err != nil {
		zap.L().Warn("scrape log write failed", zap.Error(err))
	}
	if err := r.store.RecordSourceRun(ctx, src.ID, len(result.Errors) == 0, entry.CompletedAt); err != nil {
		zap.L().Warn("source counter update failed", zap.Error(err))
	}
	return result
}
