package selector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal tracks issued search requests.
	SearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_selector_searches_total",
			Help: "Total selector search requests issued",
		},
	)

	// StaleResponsesTotal tracks search responses discarded because a newer
	// search had already been issued.
	StaleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_selector_stale_responses_total",
			Help: "Total selector search responses discarded as stale",
		},
	)

	// EnsureFetchesTotal tracks by-ID lookups for values missing from search
	// results, by outcome.
	EnsureFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_selector_ensure_fetches_total",
			Help: "Total selector by-ID ensure-included fetches by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)
)
