// Package crawler walks the listing pages in order and turns each one into
// product records.
package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/vgascout/engine"
	"github.com/use-agent/vgascout/models"
	"github.com/use-agent/vgascout/simhash"
)

// Fetcher returns the raw data blob for a 1-based listing page.
// A nil result or empty Data means the page had no data.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (*engine.FetchResult, error)
}

// Extractor turns a raw blob into product records.
type Extractor interface {
	Extract(ctx context.Context, raw string) ([]models.ProductRecord, error)
}

// Observer receives per-page and per-extraction measurements.
type Observer interface {
	ObservePage(models.PageOutcome)
	ObserveExtraction(time.Duration)
}

// Report is what a run produced.
type Report struct {
	// Records holds every record in page order. Never nil.
	Records []models.ProductRecord

	// Pages has one outcome per page attempted.
	Pages []models.PageOutcome
}

// Crawler runs the page loop. It is not safe for concurrent Run calls.
type Crawler struct {
	fetcher            Fetcher
	extractor          Extractor
	observer           Observer
	delay              time.Duration
	duplicateThreshold int
	sleep              func(ctx context.Context, d time.Duration) error
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelay sets the pause after each page that produced records.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) { c.delay = d }
}

// WithObserver attaches metrics.
func WithObserver(o Observer) Option {
	return func(c *Crawler) { c.observer = o }
}

// WithDuplicateThreshold sets the simhash distance at or below which two
// consecutive blobs are reported as duplicates. Negative disables the check.
func WithDuplicateThreshold(bits int) Option {
	return func(c *Crawler) { c.duplicateThreshold = bits }
}

// New creates a Crawler with a 2 second page delay.
func New(f Fetcher, e Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:            f,
		extractor:          e,
		delay:              2 * time.Second,
		duplicateThreshold: 3,
		sleep:              sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run visits pages 1..maxPages in order.
//
// A page that fails to fetch, has no data, or fails extraction is skipped.
// A page that extracts to zero records ends the run: the site returns an
// empty listing past the last page. Cancelling ctx stops the run between
// pages; records gathered so far are kept.
func (c *Crawler) Run(ctx context.Context, maxPages int) *Report {
	report := &Report{Records: []models.ProductRecord{}}
	var prevFP uint64

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("run canceled", "page", page, "error", err)
			break
		}

		outcome, records, fp := c.runPage(ctx, page)
		if c.observer != nil {
			c.observer.ObservePage(outcome)
		}
		report.Pages = append(report.Pages, outcome)

		if fp != 0 && c.duplicateThreshold >= 0 && simhash.Similar(prevFP, fp, c.duplicateThreshold) {
			slog.Warn("page data nearly identical to previous page",
				"page", page,
				"distance", simhash.Distance(prevFP, fp),
			)
		}
		if fp != 0 {
			prevFP = fp
		}

		if outcome.Status == models.PageEndOfCatalog {
			slog.Info("no records on page, stopping", "page", page)
			break
		}
		if outcome.Skipped() {
			continue
		}

		report.Records = append(report.Records, records...)
		slog.Info("page done",
			"page", page,
			"records", len(records),
			"total", len(report.Records),
		)

		if page < maxPages && c.delay > 0 {
			if err := c.sleep(ctx, c.delay); err != nil {
				slog.Warn("run canceled during page delay", "page", page, "error", err)
				break
			}
		}
	}

	return report
}

// runPage fetches and extracts a single page. It never returns an error;
// failures are folded into the outcome.
func (c *Crawler) runPage(ctx context.Context, page int) (models.PageOutcome, []models.ProductRecord, uint64) {
	outcome := models.PageOutcome{Page: page}

	slog.Info("fetching page", "page", page)
	res, err := c.fetcher.FetchPage(ctx, page)
	if err != nil {
		slog.Error("page fetch failed, skipping", "page", page, "code", models.CodeOf(err), "error", err)
		outcome.Status = models.PageFetchFailed
		outcome.Error = err.Error()
		return outcome, nil, 0
	}
	if res == nil || res.Data == "" {
		slog.Warn("page has no data, skipping", "page", page)
		outcome.Status = models.PageNoData
		return outcome, nil, 0
	}
	outcome.Engine = res.EngineName

	fp := simhash.Fingerprint(res.Data)

	start := time.Now()
	records, err := c.extractor.Extract(ctx, res.Data)
	if c.observer != nil {
		c.observer.ObserveExtraction(time.Since(start))
	}
	if err != nil {
		slog.Error("extraction failed, skipping", "page", page, "code", models.CodeOf(err), "error", err)
		outcome.Status = models.PageExtractFailed
		outcome.Error = err.Error()
		return outcome, nil, fp
	}

	if len(records) == 0 {
		outcome.Status = models.PageEndOfCatalog
		return outcome, nil, fp
	}

	outcome.Status = models.PageRecords
	outcome.Records = len(records)
	return outcome, records, fp
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
