package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal tracks load sessions by terminal outcome.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_load_sessions_total",
			Help: "Total load sessions by terminal outcome",
		},
		[]string{"outcome"}, // "complete", "errored", "discarded"
	)

	// PagesTotal tracks pages fetched across all sessions.
	PagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_load_pages_total",
			Help: "Total pages fetched across all load sessions",
		},
	)

	// PausesTotal tracks pause requests honored.
	PausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_load_pauses_total",
			Help: "Total load session pauses",
		},
	)

	// PageDuration tracks single page fetch duration.
	PageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admin_load_page_duration_seconds",
			Help:    "Single page fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
)
