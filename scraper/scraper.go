package scraper

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/models"
)

// Session owns one browser and one tab for the lifetime of a run.
// Headers, cookies and the resource filter are installed once, before
// the first navigation, and every Fetch reuses the same tab.
//
// A Session serialises Fetch calls; it is not meant for parallel pages.
type Session struct {
	mu         sync.Mutex
	browser    *rod.Browser
	page       *rod.Page
	router     *rod.HijackRouter
	site       config.SiteConfig
	scraperCfg config.ScraperConfig
	closeOnce  sync.Once
	closeErr   error
}

// NewSession launches a headless browser and prepares the shared tab.
// Any failure here is an initialisation error and the browser is torn down.
func NewSession(browserCfg config.BrowserConfig, site config.SiteConfig, scraperCfg config.ScraperConfig) (*Session, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-accelerated-2d-canvas"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-zygote"))
	l.Set(flags.Flag("disable-extensions"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserInit, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeBrowserInit, "failed to connect to browser", err)
	}

	s := &Session{
		browser:    browser,
		site:       site,
		scraperCfg: scraperCfg,
	}
	if err := s.preparePage(browserCfg); err != nil {
		_ = browser.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserInit, "failed to prepare page", err)
	}

	slog.Info("browser session ready",
		"viewport", fmt.Sprintf("%dx%d", browserCfg.ViewportWidth, browserCfg.ViewportHeight),
		"headers", len(site.Headers),
		"blocked", scraperCfg.BlockedResourceTypes,
	)
	return s, nil
}

// preparePage creates the tab and installs viewport, identity, cookies and
// the resource filter. All of it must happen before the first Navigate.
func (s *Session) preparePage(browserCfg config.BrowserConfig) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             browserCfg.ViewportWidth,
		Height:            browserCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if s.site.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.site.UserAgent,
			AcceptLanguage: s.site.Headers["Accept-Language"],
		}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("enable network domain: %w", err)
	}

	if len(s.site.Headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(s.site.Headers),
		}).Call(page); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
	}

	if cookies := ParseCookies(s.site.Cookies, s.site.CookieDomain); len(cookies) > 0 {
		if err := page.SetCookies(cookies); err != nil {
			return fmt.Errorf("set cookies: %w", err)
		}
		slog.Debug("cookies installed", "count", len(cookies), "domain", s.site.CookieDomain)
	}

	s.router = setupHijack(page, s.scraperCfg.BlockedResourceTypes)
	return nil
}

// Close stops the resource filter and kills the browser process.
// It is safe to call more than once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		slog.Info("browser session shutting down")
		if s.router != nil {
			if err := s.router.Stop(); err != nil {
				slog.Warn("failed to stop request filter", "error", err)
			}
		}
		if err := s.browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("close browser: %w", err)
			return
		}
		slog.Info("browser session closed")
	})
	return s.closeErr
}
