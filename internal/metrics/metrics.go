// Package metrics holds the Prometheus collectors for the matching pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RowsTotal        *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	MatchScore       *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	ExternalCalls    *prometheus.CounterVec
	BatchesTotal     *prometheus.CounterVec
	RunsTotal        *prometheus.CounterVec
	RunSeconds       *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmatch_rows_total",
				Help: "Rows classified per tier",
			},
			[]string{"tier"},
		),
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmatch_resolutions_total",
				Help: "Resolution attempts by tier, path and outcome",
			},
			[]string{"tier", "path", "outcome"},
		),
		MatchScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postmatch_match_score",
				Help:    "Similarity scores of matched candidates",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.9, 1.0},
			},
			[]string{"tier"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmatch_handle_cache_lookups_total",
				Help: "Handle cache lookups by result",
			},
			[]string{"result"},
		),
		ExternalCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmatch_external_calls_total",
				Help: "Calls to external collaborators by status",
			},
			[]string{"service", "status"},
		),
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmatch_upload_batches_total",
				Help: "Upload batches by status",
			},
			[]string{"status"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmatch_runs_total",
				Help: "Pipeline runs by mode and status",
			},
			[]string{"mode", "status"},
		),
		RunSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postmatch_run_seconds",
				Help:    "Pipeline run duration",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"mode"},
		),
	}
}

func (m *Metrics) Row(tier string) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(tier).Inc()
}

// Resolution records one resolution outcome and, for matches, its score.
func (m *Metrics) Resolution(tier, path string, matched bool, score float64) {
	if m == nil {
		return
	}
	outcome := "unmatched"
	if matched {
		outcome = "matched"
		m.MatchScore.WithLabelValues(tier).Observe(score)
	}
	m.ResolutionsTotal.WithLabelValues(tier, path, outcome).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ExternalCall(service string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExternalCalls.WithLabelValues(service, status).Inc()
}

func (m *Metrics) Batch(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BatchesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Run(mode, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode, status).Inc()
	m.RunSeconds.WithLabelValues(mode).Observe(seconds)
}
