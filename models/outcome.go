package models

// PageStatus classifies what happened to a single listing page.
type PageStatus string

const (
	PageRecords       PageStatus = "records"
	PageNoData        PageStatus = "no_data"
	PageFetchFailed   PageStatus = "fetch_failed"
	PageExtractFailed PageStatus = "extract_failed"
	PageEndOfCatalog  PageStatus = "end_of_catalog"
)

// PageOutcome is the result of fetching and extracting one page.
type PageOutcome struct {
	Page    int        `json:"page"`
	Status  PageStatus `json:"status"`
	Records int        `json:"records"`
	Engine  string     `json:"engine,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Skipped reports whether the page was dropped without stopping the run.
func (o PageOutcome) Skipped() bool {
	switch o.Status {
	case PageNoData, PageFetchFailed, PageExtractFailed:
		return true
	}
	return false
}
