package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/vgascout/cleaner"
	"github.com/use-agent/vgascout/models"
)

// HTTPEngine fetches the listing with a plain GET and selects the data
// element from the server-rendered HTML. It works when the site serves
// the embedded blob without JavaScript, which Next.js pages usually do.
type HTTPEngine struct {
	client *http.Client
}

// NewHTTPEngine creates an HTTPEngine. Pass nil to use a default client.
func NewHTTPEngine(client *http.Client) *HTTPEngine {
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	return &HTTPEngine{client: client}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http_engine: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	for i := range req.Cookies {
		httpReq.AddCookie(&req.Cookies[i])
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "http_engine: request failed", err)
	}
	defer resp.Body.Close()

	// 10 MB is far above any listing page.
	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "http_engine: read body failed", err)
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, models.NewScrapeError(models.ErrCodeNavigation,
			fmt.Sprintf("http_engine: non-html or error status %d (content-type: %s)", resp.StatusCode, ct), nil)
	}

	data, found, err := cleaner.SelectText(string(body), req.Selector)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeElementNotFound, "http_engine: parse html failed", err)
	}
	if !found {
		return nil, models.NewScrapeError(models.ErrCodeElementNotFound,
			fmt.Sprintf("http_engine: %q not in response (%d ms)", req.Selector, time.Since(start).Milliseconds()), nil)
	}

	return &FetchResult{Data: data, EngineName: e.Name()}, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
