// Command admin-proxy exposes the admin backend through the caching client,
// so local tooling and dashboards share one rate budget and one redis cache.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sinanour/cultivate-admin/pkg/adminapi"
	"github.com/sinanour/cultivate-admin/pkg/logging"
)

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	backendURL := getEnv("ADMIN_API_URL", "http://localhost:3000")
	authToken := getEnv("ADMIN_API_TOKEN", "")
	principal := getEnv("ADMIN_PRINCIPAL", "admin-proxy")

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Output: os.Stderr,
	})

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("redis", redisURL).Msg("Connected to Redis")

	// Create admin API client
	cfg := adminapi.DefaultConfig(redisClient, backendURL)
	cfg.AuthToken = authToken
	cfg.Principal = principal
	apiClient, err := adminapi.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin API client")
	}
	defer apiClient.Close()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/api/", proxyHandler(apiClient))

	addr := ":" + port
	log.Info().
		Str("addr", addr).
		Str("backend", backendURL).
		Msg("Starting admin proxy server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness: the proxy is ready once redis answers.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, fmt.Sprintf("redis unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func proxyHandler(apiClient *adminapi.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract backend endpoint from request path
		// Example: /api/v1/participants -> /v1/participants
		endpoint := r.URL.Path[4:] // Remove "/api" prefix

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp, err := apiClient.Get(ctx, endpoint, r.URL.Query())
		if err != nil {
			http.Error(w, fmt.Sprintf("admin API request failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		// Copy response headers
		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to write proxied response")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
