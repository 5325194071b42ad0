// Package metrics exposes Prometheus instrumentation for scrape runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/vgascout/models"
)

// Recorder holds the collectors for one registry.
type Recorder struct {
	registry   *prometheus.Registry
	pages      *prometheus.CounterVec
	records    prometheus.Counter
	extraction prometheus.Histogram
	runs       *prometheus.CounterVec
}

// New creates a Recorder with its own registry so tests and multiple
// servers in one process do not collide on global registration.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vgascout",
			Name:      "pages_total",
			Help:      "Listing pages processed, by outcome.",
		}, []string{"status"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vgascout",
			Name:      "records_total",
			Help:      "Product records extracted.",
		}),
		extraction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vgascout",
			Name:      "extraction_duration_seconds",
			Help:      "Latency of extraction service calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vgascout",
			Name:      "runs_total",
			Help:      "Completed scrape runs, by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.pages, r.records, r.extraction, r.runs)
	return r
}

// ObservePage counts one page outcome.
func (r *Recorder) ObservePage(o models.PageOutcome) {
	r.pages.WithLabelValues(string(o.Status)).Inc()
	if o.Status == models.PageRecords {
		r.records.Add(float64(o.Records))
	}
}

// ObserveExtraction records how long an extraction call took.
func (r *Recorder) ObserveExtraction(d time.Duration) {
	r.extraction.Observe(d.Seconds())
}

// ObserveRun counts a finished run; result is "ok", "empty" or "error".
func (r *Recorder) ObserveRun(result string) {
	r.runs.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
