package engine

import (
	"context"
	"net/http"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "rod").
	Name() string

	// Fetch retrieves the text of the data element for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch one listing page.
type FetchRequest struct {
	URL      string
	Headers  map[string]string
	Cookies  []http.Cookie
	Selector string
	Timeout  time.Duration
}

// FetchResult is the output of a successful engine fetch.
// Data is empty when the element exists but carries no text.
type FetchResult struct {
	Data       string
	EngineName string
}
