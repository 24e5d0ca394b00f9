package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/noteku/internal/app/features/health"
	"github.com/dalemusser/noteku/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func serve(t *testing.T, h *health.Handler) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	code, resp := serve(t, health.NewHandler(db.Client(), nil, zap.NewNop()))

	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Errorf("got %+v", resp)
	}
	if resp.Redis != "" {
		t.Errorf("redis should be omitted when not configured, got %q", resp.Redis)
	}
}

func TestServe_WithRedis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb := testutil.SetupTestRedis(t)
	code, resp := serve(t, health.NewHandler(db.Client(), rdb, zap.NewNop()))

	if code != http.StatusOK || resp.Redis != "connected" {
		t.Errorf("code=%d resp=%+v", code, resp)
	}
}

func TestServe_RedisDown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer dead.Close()

	code, resp := serve(t, health.NewHandler(db.Client(), dead, zap.NewNop()))
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if resp.Redis != "disconnected" || resp.Database != "connected" {
		t.Errorf("got %+v", resp)
	}
}
