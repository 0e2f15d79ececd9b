package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/scraper"
	"github.com/pmackar/aireshark/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scrape trigger and read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
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
		api := &apiServer{
			ctx: ctx,
			st:  st,
			trigger: func(ctx context.Context, channel string) (*model.RunReport, error) {
				return dispatchChannel(ctx, runner, channel)
			},
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiServer is the fire-and-forget trigger surface the admin dashboard calls.
// One run at a time; triggers while a run is in flight get a 409.
type apiServer struct {
	ctx     context.Context
	st      store.Store
	trigger func(ctx context.Context, channel string) (*model.RunReport, error)
	running atomic.Bool
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape/{channel}", s.triggerScrape)
		r.Get("/acquisitions", s.listAcquisitions)
		r.Get("/articles", s.listArticles)
		r.Get("/scrape-logs", s.listScrapeLogs)
	})

	return r
}

func (s *apiServer) triggerScrape(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if !validChannel(channel) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown channel %q", channel)})
		return
	}

	if !s.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
		return
	}

	go func() {
		defer s.running.Store(false)

		report, err := s.trigger(s.ctx, channel)
		if err != nil {
			zap.L().Error("triggered scrape failed",
				zap.String("channel", channel),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("triggered scrape complete",
			zap.String("channel", channel),
			zap.Int("found", report.Found()),
			zap.Int("stored", report.Stored()),
			zap.Int("errors", len(report.Errors)),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"channel": channel,
	})
}

func (s *apiServer) listAcquisitions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.st.ListAcquisitionRows(r.Context(), limitParam(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *apiServer) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.st.ListArticles(r.Context(), store.ArticleFilter{
		FirmID:     r.URL.Query().Get("firm_id"),
		PlatformID: r.URL.Query().Get("platform_id"),
		BrandID:    r.URL.Query().Get("brand_id"),
		Limit:      limitParam(r),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *apiServer) listScrapeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.st.ListScrapeLogs(r.Context(), limitParam(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func validChannel(channel string) bool {
	if channel == "all" {
		return true
	}
	for _, ch := range scrapeChannels {
		if ch.name == channel {
			return true
		}
	}
	return false
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeStoreError(w http.ResponseWriter, err error) {
	zap.L().Error("store query failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
