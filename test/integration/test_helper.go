//go:build integration

package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

// BaseURL points at a running API, e.g. started with docker compose.
var BaseURL = baseURL()

func baseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080/api/v1"
}

func TestMain(m *testing.M) {
	waitForHealth(30 * time.Second)
	os.Exit(m.Run())
}

// waitForHealth polls /health until the service answers or timeout passes.
func waitForHealth(timeout time.Duration) {
	health := os.Getenv("API_HEALTH_URL")
	if health == "" {
		health = "http://localhost:8080/health"
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(health)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(time.Second)
	}
}
