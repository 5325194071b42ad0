// Package service ties one scrape run together: crawl, write, record, notify.
// Both the CLI and the HTTP API drive runs through it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/vgascout/cache"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/crawler"
	"github.com/use-agent/vgascout/metrics"
	"github.com/use-agent/vgascout/models"
	"github.com/use-agent/vgascout/output"
	"github.com/use-agent/vgascout/store"
	"github.com/use-agent/vgascout/webhook"
)

// Crawler runs the page loop.
type Crawler interface {
	Run(ctx context.Context, maxPages int) *crawler.Report
}

// Store persists finished runs.
type Store interface {
	SaveRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}

// defaultListLimit caps a run listing when the caller gives no limit.
const defaultListLimit = 20

// Options wires the optional collaborators. Nil fields are skipped.
type Options struct {
	OutputPath string
	Store      Store
	Cache      *cache.Cache
	Metrics    *metrics.Recorder
	Webhook    config.WebhookConfig
	HTTPClient *http.Client
}

// Service runs at most one scrape at a time.
type Service struct {
	crawler Crawler
	opts    Options
	mu      sync.Mutex
	active  atomic.Bool
	now     func() time.Time
}

// New creates a Service.
func New(c Crawler, opts Options) *Service {
	if opts.OutputPath == "" {
		opts.OutputPath = output.DefaultPath
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Service{crawler: c, opts: opts, now: time.Now}
}

// Active reports whether a run is in progress.
func (s *Service) Active() bool {
	return s.active.Load()
}

// Run crawls up to maxPages pages and writes the result file when at least
// one record was found. A run with no records writes nothing and is not an
// error. Only a failed write is returned as an error; the run is returned
// either way.
func (s *Service) Run(ctx context.Context, maxPages int) (*models.Run, error) {
	if !s.mu.TryLock() {
		return nil, models.NewScrapeError(models.ErrCodeRunInProgress, "another run is in progress", nil)
	}
	defer s.mu.Unlock()
	s.active.Store(true)
	defer s.active.Store(false)

	run := &models.Run{ID: uuid.NewString(), StartedAt: s.now()}
	slog.Info("run started", "run_id", run.ID, "max_pages", maxPages)

	report := s.crawler.Run(ctx, maxPages)
	run.FinishedAt = s.now()
	run.Pages = report.Pages
	run.Result = models.NewScrapeResult(report.Records, run.FinishedAt)

	if len(report.Records) == 0 {
		slog.Info("no records found, nothing written",
			"run_id", run.ID,
			"pages", len(report.Pages),
			"pages_skipped", skipped(report.Pages),
		)
		s.observeRun("empty")
		s.remember(run)
		return run, nil
	}

	result, err := output.Write(report.Records, s.opts.OutputPath, run.FinishedAt)
	if err != nil {
		s.observeRun("error")
		s.remember(run)
		return run, err
	}
	run.Result = result
	run.Output = s.opts.OutputPath

	if s.opts.Store != nil {
		if err := s.opts.Store.SaveRun(ctx, run); err != nil {
			slog.Error("failed to store run history", "run_id", run.ID, "error", err)
		}
	}
	s.remember(run)
	s.notify(ctx, run)
	s.observeRun("ok")

	slog.Info("run finished",
		"run_id", run.ID,
		"total_count", result.TotalCount,
		"pages_skipped", skipped(run.Pages),
		"duration_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, nil
}

// Get returns a run from the cache or, failing that, the store.
func (s *Service) Get(ctx context.Context, id string) (*models.Run, error) {
	if s.opts.Cache != nil {
		if run, ok := s.opts.Cache.Get(id); ok {
			return run, nil
		}
	}
	if s.opts.Store != nil {
		run, err := s.opts.Store.GetRun(ctx, id)
		if err == nil {
			return run, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, models.NewScrapeError(models.ErrCodeStoreFailed, "failed to load run", err)
		}
	}
	return nil, models.NewScrapeError(models.ErrCodeNotFound, "run not found", nil)
}

// List returns recent runs, newest first. The store is the source when
// configured, the cache otherwise.
func (s *Service) List(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if s.opts.Store != nil {
		runs, err := s.opts.Store.ListRuns(ctx, limit)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeStoreFailed, "failed to list runs", err)
		}
		return runs, nil
	}

	out := []models.RunSummary{}
	if s.opts.Cache == nil {
		return out, nil
	}
	for _, run := range s.opts.Cache.Recent(limit) {
		sum := models.RunSummary{ID: run.ID, StartedAt: run.StartedAt}
		if run.Result != nil {
			sum.TotalCount = run.Result.TotalCount
		}
		out = append(out, sum)
	}
	return out, nil
}

func skipped(pages []models.PageOutcome) int {
	n := 0
	for _, p := range pages {
		if p.Skipped() {
			n++
		}
	}
	return n
}

func (s *Service) remember(run *models.Run) {
	if s.opts.Cache != nil {
		s.opts.Cache.Set(run)
	}
}

func (s *Service) observeRun(result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveRun(result)
	}
}

// notify delivers the completion webhook once. Failures are logged only.
func (s *Service) notify(ctx context.Context, run *models.Run) {
	if s.opts.Webhook.URL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	event := &webhook.Event{
		Type:      webhook.EventScrapeCompleted,
		RunID:     run.ID,
		Timestamp: run.FinishedAt.Unix(),
		Data: webhook.CompletedData{
			TotalCount: run.Result.TotalCount,
			Output:     run.Output,
		},
	}
	if err := webhook.Deliver(ctx, s.opts.HTTPClient, s.opts.Webhook.URL, s.opts.Webhook.Secret, event); err != nil {
		slog.Warn("webhook delivery failed", "url", s.opts.Webhook.URL, "run_id", run.ID, "error", err)
		return
	}
	slog.Info("webhook delivered", "url", s.opts.Webhook.URL, "run_id", run.ID)
}
