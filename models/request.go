package models

// RunRequest is the request body for POST /api/v1/scrape.
type RunRequest struct {
	// MaxPages caps the listing pages visited. Zero means the configured default.
	MaxPages int `json:"max_pages" binding:"omitempty,min=0,max=50"`
}

// Defaults fills in zero values from the server configuration.
func (r *RunRequest) Defaults(maxPages int) {
	if r.MaxPages == 0 {
		r.MaxPages = maxPages
	}
}

// RunListQuery is the query string of GET /api/v1/runs.
type RunListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=0,max=100"`
}
