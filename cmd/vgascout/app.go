package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/use-agent/vgascout/cache"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/crawler"
	"github.com/use-agent/vgascout/engine"
	"github.com/use-agent/vgascout/llm"
	"github.com/use-agent/vgascout/metrics"
	"github.com/use-agent/vgascout/scraper"
	"github.com/use-agent/vgascout/service"
	"github.com/use-agent/vgascout/store"
)

// app owns the long-lived resources of one process.
type app struct {
	cfg     *config.Config
	session io.Closer
	store   io.Closer
	metrics *metrics.Recorder
	service *service.Service
}

// newApp wires the pipeline. The browser is launched only when the fetch
// mode can use it.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}

	var engines []engine.Engine
	if cfg.Engine.Mode != config.FetchModeBrowser {
		engines = append(engines, engine.NewHTTPEngine(nil))
	}
	if cfg.Engine.Mode != config.FetchModeHTTP {
		session, err := scraper.NewSession(cfg.Browser, cfg.Site, cfg.Scraper)
		if err != nil {
			return nil, err
		}
		a.session = session
		engines = append(engines, engine.NewRodEngine(session.Fetch))
	}
	dispatcher := engine.NewDispatcher(engines, engine.NewDomainMemory(cfg.Engine.MemoryTTL))
	slog.Info("fetch engines ready", "mode", cfg.Engine.Mode, "engines", dispatcher.Engines())

	opts := service.Options{
		OutputPath: cfg.Output.Path,
		Cache:      cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL),
		Metrics:    a.metrics,
		Webhook:    cfg.Webhook,
		HTTPClient: &http.Client{Timeout: cfg.Engine.HTTPTimeout},
	}
	if cfg.Output.DBPath != "" {
		st, err := store.Open(cfg.Output.DBPath)
		if err != nil {
			return nil, errors.Join(err, a.Close())
		}
		a.store = st
		opts.Store = st
		slog.Info("run history enabled", "db", cfg.Output.DBPath)
	}

	c := crawler.New(
		crawler.NewPageFetcher(dispatcher, cfg.Site, cfg.Engine.HTTPTimeout),
		llm.NewClient(cfg.LLM),
		crawler.WithDelay(cfg.Scraper.PageDelay),
		crawler.WithObserver(a.metrics),
		crawler.WithDuplicateThreshold(cfg.Scraper.DuplicateThreshold),
	)
	a.service = service.New(c, opts)
	return a, nil
}

// Close releases the browser and the store. The browser close error is
// reported because a leaked Chromium outlives the process.
func (a *app) Close() error {
	var errs []error
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) run(ctx context.Context, maxPages int) error {
	run, err := a.service.Run(ctx, maxPages)
	if run != nil {
		printSummary(run)
	}
	return err
}

// runOnce performs one run and always releases the app, also when the run
// panics. Close errors are joined to the run error so either one fails the
// command.
func (a *app) runOnce(ctx context.Context, maxPages int) (err error) {
	defer func() { err = errors.Join(err, a.Close()) }()
	return a.run(ctx, maxPages)
}
