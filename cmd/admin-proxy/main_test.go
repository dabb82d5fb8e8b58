package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sinanour/cultivate-admin/internal/testutil"
	"github.com/sinanour/cultivate-admin/pkg/adminapi"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		redisC.Terminate(ctx)
	}

	return redisClient, cleanup
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	handler := readyHandler(redisClient)

	t.Run("ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}

		if string(body) != "OK" {
			t.Errorf("Expected body 'OK', got %s", string(body))
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		// Close Redis to simulate failure
		redisClient.Close()

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	// Create a client so all metric families are registered
	_, err := adminapi.New(adminapi.DefaultConfig(redisClient, "http://localhost:3000"))
	if err != nil {
		t.Fatalf("Failed to create admin API client: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler := promhttp.Handler()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)

	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}

	if !strings.Contains(bodyStr, "admin_rate_budget_remaining") {
		t.Error("Expected metrics output to contain admin_rate_budget_remaining")
	}
}

func TestProxyHandler(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	backend := testutil.NewMockAdminAPI()
	defer backend.Close()
	if err := backend.SetCollection("/v1/venues",
		map[string]interface{}{"id": "v1", "name": "Main Hall"},
	); err != nil {
		t.Fatalf("Failed to set collection: %v", err)
	}

	apiClient, err := adminapi.New(adminapi.DefaultConfig(redisClient, backend.URL()))
	if err != nil {
		t.Fatalf("Failed to create admin API client: %v", err)
	}
	defer apiClient.Close()

	handler := proxyHandler(apiClient)

	t.Run("proxies_list", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/venues?page=1&limit=10", nil)
		w := httptest.NewRecorder()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req = req.WithContext(ctx)

		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), `"id":"v1"`) {
			t.Errorf("Expected proxied body to contain the venue, got %s", body)
		}
	})

	t.Run("backend_unreachable", func(t *testing.T) {
		badClient, err := adminapi.New(adminapi.DefaultConfig(redisClient, "http://127.0.0.1:1"))
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}

		req := httptest.NewRequest("GET", "/api/v1/venues", nil)
		w := httptest.NewRecorder()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req = req.WithContext(ctx)

		proxyHandler(badClient)(w, req)

		if w.Result().StatusCode != http.StatusBadGateway {
			t.Errorf("Expected status 502, got %d", w.Result().StatusCode)
		}
	})
}
