// Package metrics provides the central Prometheus registry reference for the
// admin data core. All metrics are defined in their respective packages
// (adminapi, cache, ratelimit, loader, filterstate, selector) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the admin data core.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - admin_rate_budget_remaining (Gauge): Requests remaining in the backend rate window
//   - admin_rate_limit_blocks_total (Counter): Requests blocked due to critical budget
//   - admin_rate_limit_throttles_total (Counter): Requests throttled due to low budget
//
// Cache Metrics (pkg/cache):
//   - admin_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - admin_cache_misses_total (Counter): Cache misses
//   - admin_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - admin_304_responses_total (Counter): 304 Not Modified responses
//   - admin_conditional_requests_total (Counter): Conditional requests sent
//   - admin_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/adminapi):
//   - admin_requests_total{endpoint, status} (Counter): Requests by endpoint and status
//   - admin_request_duration_seconds{endpoint} (Histogram): Request duration
//   - admin_errors_total{class} (Counter): Errors by class
//     (client, server, rate_limit, network, conflict)
//
// Retry Metrics (pkg/adminapi):
//   - admin_retries_total{error_class} (Counter): Retry attempts by error class
//   - admin_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - admin_retry_exhausted_total{error_class} (Counter): Exhausted retry budgets
//
// Loader Metrics (pkg/loader):
//   - admin_load_sessions_total{outcome} (Counter): Load sessions by terminal outcome
//     (complete, errored, discarded)
//   - admin_load_pages_total (Counter): Pages fetched across all sessions
//   - admin_load_pauses_total (Counter): Pause requests honored
//   - admin_load_page_duration_seconds (Histogram): Single page fetch duration
//
// Filter State Metrics (pkg/filterstate):
//   - admin_filter_commits_total{action} (Counter): Commits by action (apply, clear)
//   - admin_filter_resolution_failures_total (Counter): Failed option resolutions
//     during initialization
//
// Selector Metrics (pkg/selector):
//   - admin_selector_searches_total (Counter): Search requests issued
//   - admin_selector_stale_responses_total (Counter): Responses dropped as stale
//   - admin_selector_ensure_fetches_total{outcome} (Counter): Ensure-included
//     by-id fetches (hit, miss)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(admin_cache_hits_total[5m])) /
//   (sum(rate(admin_cache_hits_total[5m])) + sum(rate(admin_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(admin_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(admin_request_duration_seconds_bucket[5m]))
//
//   # Share of load sessions abandoned before completion
//   rate(admin_load_sessions_total{outcome="discarded"}[1h]) /
//   sum(rate(admin_load_sessions_total[1h]))
