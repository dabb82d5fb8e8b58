package cache

import (
	"net/http"
	"time"
)

// CacheEntry is a stored admin API response: the body, the headers needed to
// replay it as a live 200, and the validators for conditional revalidation.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// Expires is when the entry goes stale (from the Expires header, or the
	// package default when absent)
	Expires time.Time `json:"expires"`

	// LastModified backs If-Modified-Since when no ETag is available
	LastModified time.Time `json:"last_modified"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// CachedAt is when the entry was stored or last refreshed by a 304
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the entry has gone stale.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until the entry goes stale, or 0 when already stale.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// HasValidators reports whether the entry carries an ETag or Last-Modified
// timestamp, meaning a conditional revalidation can produce a 304.
func (e *CacheEntry) HasValidators() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// Age returns how long ago the entry was stored or last refreshed.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
