package crawler

import (
	"context"
	"net/http"
	"time"

	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/engine"
	"github.com/use-agent/vgascout/scraper"
)

// Dispatcher is the part of engine.Dispatcher the fetcher uses.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// PageFetcher renders listing URLs from the site profile and hands them to
// the engine dispatcher.
type PageFetcher struct {
	dispatcher Dispatcher
	site       config.SiteConfig
	cookies    []http.Cookie
	timeout    time.Duration
}

// NewPageFetcher creates a PageFetcher. timeout bounds engines that do not
// carry their own (the browser engine uses its navigation and element bounds).
func NewPageFetcher(d Dispatcher, site config.SiteConfig, timeout time.Duration) *PageFetcher {
	params := scraper.ParseCookies(site.Cookies, site.CookieDomain)
	cookies := make([]http.Cookie, 0, len(params))
	for _, p := range params {
		cookies = append(cookies, http.Cookie{Name: p.Name, Value: p.Value, Domain: p.Domain, Path: p.Path})
	}
	return &PageFetcher{dispatcher: d, site: site, cookies: cookies, timeout: timeout}
}

// FetchPage fetches the data blob for page.
func (f *PageFetcher) FetchPage(ctx context.Context, page int) (*engine.FetchResult, error) {
	headers := make(map[string]string, len(f.site.Headers)+1)
	for k, v := range f.site.Headers {
		headers[k] = v
	}
	if f.site.UserAgent != "" {
		headers["User-Agent"] = f.site.UserAgent
	}

	return f.dispatcher.Dispatch(ctx, &engine.FetchRequest{
		URL:      f.site.PageURL(page),
		Headers:  headers,
		Cookies:  f.cookies,
		Selector: f.site.DataSelector,
		Timeout:  f.timeout,
	})
}
