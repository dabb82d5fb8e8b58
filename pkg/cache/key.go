package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached admin API response.
type CacheKey struct {
	// Endpoint is the API endpoint path (e.g., "/v1/participants")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "1", "limit": "50"})
	QueryParams url.Values

	// Principal is the authenticated user the response was produced for.
	// Empty for unauthenticated reads. Responses are scoped per principal
	// because geographic authorization rules filter what each user sees.
	Principal string
}

// String generates a deterministic cache key string.
// Format: admin:endpoint:query1=val1:query2=val2:principal=user-42
//
// Example:
//
//	admin:v1/participants:limit=50:page=1:principal=user-42
func (k CacheKey) String() string {
	parts := []string{"admin"}

	// Add endpoint (normalize path)
	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	if k.Principal != "" {
		parts = append(parts, fmt.Sprintf("principal=%s", k.Principal))
	}

	return strings.Join(parts, ":")
}

// EndpointPattern returns the redis MATCH pattern covering every cached
// response at or under an endpoint, across query parameters and principals.
// Mutation-driven invalidation scans with this pattern.
func EndpointPattern(endpoint string) string {
	endpoint = strings.Trim(endpoint, "/")
	if endpoint == "" {
		return "admin:*"
	}
	return "admin:" + endpoint + "*"
}
