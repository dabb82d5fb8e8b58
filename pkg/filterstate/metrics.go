package filterstate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsTotal tracks filter commits by action.
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_filter_commits_total",
			Help: "Total filter state commits by action",
		},
		[]string{"action"}, // "apply", "clear"
	)

	// ResolutionFailuresTotal tracks failed option resolutions during
	// initialization from URL parameters.
	ResolutionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_filter_resolution_failures_total",
			Help: "Total failed filter option resolutions during initialization",
		},
	)
)
