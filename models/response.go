package models

import "time"

// Run is one orchestrator execution as exposed by the API and the store.
type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Result     *ScrapeResult `json:"result"`
	Pages      []PageOutcome `json:"pages,omitempty"`

	// Output is the file the result was written to, empty when nothing was written.
	Output string `json:"output,omitempty"`
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	TotalCount int       `json:"total_count"`
}

// RunListResponse is the response for GET /api/v1/runs.
type RunListResponse struct {
	Success bool         `json:"success"`
	Runs    []RunSummary `json:"runs"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// RunResponse is the response for POST /api/v1/scrape and GET /api/v1/runs/:id.
type RunResponse struct {
	Success bool         `json:"success"`
	Run     *Run         `json:"run,omitempty"`
	Timing  *TimingInfo  `json:"timing,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo provides duration breakdowns for a run.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	RunActive bool   `json:"run_active"`
	Version   string `json:"version"`
}
