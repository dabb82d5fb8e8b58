// Package cache provides redis-backed response caching for the admin API
// client, with ETag support for conditional requests.
//
// The cache manager implements the following features:
//
// - TTL derived from the backend's Expires header (with a sane default)
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Per-principal key scoping for authenticated reads
// - Endpoint-wide invalidation after mutations
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.CacheKey{
//		Endpoint:    "/v1/participants",
//		QueryParams: url.Values{"page": []string{"1"}},
//		Principal:   "user-42",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from backend
//	}
//
// # HTTP Response Caching
//
//	// Convert HTTP response to cache entry
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//
//	// Store in cache
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	// Check if we should make a conditional request
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// Make request - backend returns 304 if not modified
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - admin_cache_hits_total{layer="redis"} - Cache hits
//   - admin_cache_misses_total - Cache misses
//   - admin_cache_size_bytes{layer="redis"} - Cache size
//   - admin_304_responses_total - Conditional request successes
//   - admin_cache_errors_total{operation} - Cache operation errors
//
// Mutating requests are never cached; the client only consults the cache for
// GET reads, and a successful mutation invalidates every cached response at
// or under the mutated endpoint via InvalidateEndpoint.
package cache
