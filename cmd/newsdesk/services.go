package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pders01/newsdesk/internal/catalog"
	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/metrics"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
)

// services holds everything a command needs once the config is loaded.
type services struct {
	cfg     *config.Config
	client  *news.Client
	fetcher *news.Fetcher
	catalog *catalog.Catalog
	closers []func() error
}

func setup() (*services, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return newServices(cfg)
}

func newServices(cfg *config.Config) (*services, error) {
	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, err
	}

	client := news.NewClient(cfg)
	svc := &services{
		cfg:     cfg,
		client:  client,
		fetcher: news.NewFetcher(client),
	}

	// The catalog works without its store, so a locked or unwritable
	// file only costs the cache.
	var store *catalog.Store
	if cfg.Catalog.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o755); err != nil {
			debuglog.Warnf("creating catalog directory: %v", err)
		} else if s, err := catalog.NewStore(cfg.Catalog.Path); err != nil {
			debuglog.Warnf("catalog store unavailable: %v", err)
		} else {
			store = s
			svc.closers = append(svc.closers, s.Close)
		}
	}
	svc.catalog = catalog.New(store, client, cfg.Catalog.MaxAge)

	if cfg.Metrics.Addr != "" {
		svc.serveMetrics(cfg.Metrics.Addr)
	}

	return svc, nil
}

func (svc *services) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debuglog.Errorf("metrics server: %v", err)
		}
	}()
	debuglog.Infof("serving metrics on %s/metrics", addr)

	svc.closers = append(svc.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

func (svc *services) close() {
	for i := len(svc.closers) - 1; i >= 0; i-- {
		if err := svc.closers[i](); err != nil {
			debuglog.Warnf("shutdown: %v", err)
		}
	}
	svc.closers = nil
	_ = debuglog.Close()
}

// initialQuery is the query a session starts with, taken from the search
// section of the config.
func initialQuery(cfg *config.Config) (query.Query, error) {
	q := query.Default(time.Now())

	mode, err := query.ParseMode(cfg.Search.DefaultMode)
	if err != nil {
		return q, err
	}
	order, err := query.ParseOrderBy(cfg.Search.DefaultOrderBy)
	if err != nil {
		return q, err
	}
	q.Mode = mode
	q.OrderBy = order

	if sources := query.NewSources(cfg.Search.DefaultSources...); len(sources) > 0 {
		if err := query.ValidateSourceIDs(sources); err != nil {
			return q, fmt.Errorf("search.default_sources: %w", err)
		}
		q.Sources = sources
	}
	return q, nil
}
