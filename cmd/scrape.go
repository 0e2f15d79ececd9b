package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/scraper"
	"github.com/pmackar/aireshark/internal/store"
)

var scrapeChannels = []struct {
	name  string
	short string
}{
	{"news", "Scrape trade press search pages"},
	{"search", "Query the hosted web-search API"},
	{"rss", "Pull industry RSS feeds"},
	{"inbox", "Process Google Alerts emails"},
	{"platforms", "Monitor platform brand pages"},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run all scraping channels",
	RunE:  runScrape("all"),
}

func runScrape(channel string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runner := scraper.New(ctx, cfg, st)
		report, err := dispatchChannel(ctx, runner, channel)
		if err != nil {
			return eris.Wrapf(err, "scrape %s", channel)
		}

		zap.L().Info("scrape complete",
			zap.String("channel", channel),
			zap.Int("found", report.Found()),
			zap.Int("stored", report.Stored()),
			zap.Int("errors", len(report.Errors)),
			zap.Duration("duration", report.Duration),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
}

func dispatchChannel(ctx context.Context, r *scraper.Runner, channel string) (*model.RunReport, error) {
	switch channel {
	case "all":
		return r.RunAll(ctx)
	case "news":
		return r.RunNews(ctx)
	case "search":
		return r.RunSearch(ctx)
	case "rss":
		return r.RunRSS(ctx)
	case "inbox":
		return r.RunInbox(ctx)
	case "platforms":
		return r.RunPlatforms(ctx)
	default:
		return nil, eris.Errorf("unknown channel %q", channel)
	}
}

func init() {
	for _, ch := range scrapeChannels {
		scrapeCmd.AddCommand(&cobra.Command{
			Use:   ch.name,
			Short: ch.short,
			RunE:  runScrape(ch.name),
		})
	}
	rootCmd.AddCommand(scrapeCmd)
}
