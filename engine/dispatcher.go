package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher tries its engines one after another until one succeeds.
// The engine that last worked for a domain is tried first next time.
//
// Engines run strictly in sequence; a listing page is never fetched by two
// engines at once.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher. engines are tried in the given order.
// memory may be nil to disable the per-domain preference.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{engines: engines, memory: memory}
}

// Engines returns the configured engine names in order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Dispatch returns the first successful result. If every engine fails it
// returns the last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}

	domain := extractDomain(req.URL)

	var lastErr error
	for _, eng := range d.ordered(domain) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := eng.Fetch(ctx, req)
		if err != nil {
			slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			if d.memory != nil && d.memory.Get(domain) == eng.Name() {
				d.memory.Delete(domain)
			}
			lastErr = err
			continue
		}

		if d.memory != nil {
			d.memory.Set(domain, eng.Name())
		}
		result.EngineName = eng.Name()
		return result, nil
	}

	return nil, lastErr
}

// ordered puts the remembered engine for domain first.
func (d *Dispatcher) ordered(domain string) []Engine {
	if d.memory == nil {
		return d.engines
	}
	remembered := d.memory.Get(domain)
	if remembered == "" {
		return d.engines
	}

	out := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		if e.Name() == remembered {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return d.engines
	}
	slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
	for _, e := range d.engines {
		if e.Name() != remembered {
			out = append(out, e)
		}
	}
	return out
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
