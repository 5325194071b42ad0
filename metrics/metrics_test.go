package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vgascout/models"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.ObservePage(models.PageOutcome{Page: 1, Status: models.PageRecords, Records: 5})
	r.ObservePage(models.PageOutcome{Page: 2, Status: models.PageRecords, Records: 3})
	r.ObservePage(models.PageOutcome{Page: 3, Status: models.PageExtractFailed})
	r.ObserveExtraction(1500 * time.Millisecond)
	r.ObserveRun("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.pages.WithLabelValues("records")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pages.WithLabelValues("extract_failed")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.records))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.extraction))
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObservePage(models.PageOutcome{Status: models.PageEndOfCatalog})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vgascout_pages_total{status="end_of_catalog"} 1`)
}
