package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/vgascout/models"
	"github.com/ysmood/gson"
)

// Fetch navigates the shared tab to url and returns the text content of the
// data element.
//
// Steps:
//
//  1. Register the lifecycle waiter BEFORE Navigate, otherwise the idle
//     event can fire before we listen and the wait never returns.
//  2. Navigate and wait for NetworkAlmostIdle (at most 2 open connections),
//     bounded by NavigationTimeout.
//  3. Wait for the data selector, bounded by ElementTimeout.
//  4. Read textContent verbatim.
//
// An element that exists but has no text yields ("", nil).
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	// ── 1-2. Navigate and wait for a quiet network ──────────────────
	navCtx, navCancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer navCancel()

	nav := s.page.Context(navCtx)
	waitIdle := nav.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)

	if err := nav.Navigate(url); err != nil {
		return "", categorizeError(err, models.ErrCodeNavigationTimeout, "navigation to listing page failed")
	}
	waitIdle()
	if err := navCtx.Err(); err != nil {
		return "", categorizeError(err, models.ErrCodeNavigationTimeout, "listing page did not settle in time")
	}
	navMs := time.Since(start).Milliseconds()

	// ── 3. Wait for the data element ────────────────────────────────
	elCtx, elCancel := context.WithTimeout(ctx, s.scraperCfg.ElementTimeout)
	defer elCancel()

	el, err := s.page.Context(elCtx).Element(s.site.DataSelector)
	if err != nil {
		return "", categorizeError(err, models.ErrCodeElementNotFound, "data element did not appear")
	}

	// ── 4. Read text content ────────────────────────────────────────
	res, err := el.Eval(`() => this.textContent`)
	if err != nil {
		return "", categorizeError(err, models.ErrCodeElementNotFound, "failed to read data element")
	}
	text := res.Value.Str()

	slog.Debug("listing page fetched",
		"url", url,
		"navigation_ms", navMs,
		"total_ms", time.Since(start).Milliseconds(),
		"bytes", len(text),
	)
	return text, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw browser errors into typed ScrapeErrors.
// A deadline maps to timeoutCode; everything else is a navigation failure
// unless timeoutCode is the element code, in which case it stays there.
func categorizeError(err error, timeoutCode, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(timeoutCode, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeNavigation, "fetch canceled", err)
	case timeoutCode == models.ErrCodeElementNotFound:
		return models.NewScrapeError(timeoutCode, msg, err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
