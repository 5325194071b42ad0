package engine

import (
	"context"
	"fmt"
)

// RodFetchFunc navigates the shared browser tab and returns the element text.
// It is injected from main to keep engine/ free of the scraper import.
type RodFetchFunc func(ctx context.Context, url string) (string, error)

// RodEngine is the browser-backed engine. Headers, cookies and the selector
// were installed on the session up front, so only the URL is forwarded.
type RodEngine struct {
	fetchFunc RodFetchFunc
}

// NewRodEngine creates a RodEngine around a session's Fetch method.
func NewRodEngine(fetchFunc RodFetchFunc) *RodEngine {
	return &RodEngine{fetchFunc: fetchFunc}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("rod: fetchFunc not configured")
	}

	data, err := e.fetchFunc(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("rod: %w", err)
	}
	return &FetchResult{Data: data, EngineName: e.Name()}, nil
}
