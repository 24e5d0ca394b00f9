package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/dalemusser/noteku/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "noteku_test",
		PresenceBackend:    presenceMemory,
		RedisChannel:       "noteku:test",
		RedisPrefix:        "noteku-test:presence",
		AccessTokenSecret:  strings.Repeat("a", 40),
		RefreshTokenSecret: strings.Repeat("r", 40),
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		TokenIssuer:        "noteku-test",
		CookieKey:          strings.Repeat("k", 40),
		CookieName:         "noteku-refresh",
		MailFromName:       "Noteku",
		BaseURL:            "http://localhost:8080",
		ResetTokenExpiry:   time.Hour,
		LoginIPLimit:       20,
		LoginIPWindow:      time.Minute,
		LoginEmailLimit:    5,
		LoginEmailWindow:   time.Minute,
		AuditLogAuth:       "log",
		AuditLogGroup:      "log",
		TimeoutEdit:        3 * time.Second,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", dev, func(*AppConfig) {}, ""},
		{"bad mongo uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://x" }, "MongoDB URI"},
		{"relative base url", dev, func(c *AppConfig) { c.BaseURL = "/reset" }, "base_url"},
		{"unknown backend", dev, func(c *AppConfig) { c.PresenceBackend = "etcd" }, "presence_backend"},
		{"redis without addr", dev, func(c *AppConfig) { c.PresenceBackend = presenceRedis }, "redis_addr"},
		{"redis with addr", dev, func(c *AppConfig) { c.PresenceBackend = presenceRedis; c.RedisAddr = "localhost:6379" }, ""},
		{"same secrets", dev, func(c *AppConfig) { c.RefreshTokenSecret = c.AccessTokenSecret }, "must differ"},
		{"weak secret in dev", dev, func(c *AppConfig) { c.CookieKey = "short" }, ""},
		{"weak secret in prod", prod, func(c *AppConfig) { c.CookieKey = "short" }, "cookie_key"},
		{"dev cookie key in prod", prod, func(c *AppConfig) { c.CookieKey = "dev-only-cookie-key-change-me-0123456789ABCDEF" }, "cookie_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com , ,https://b.example.com")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("unexpected split: %q", got)
	}
	if splitList("") != nil {
		t.Error("empty input should yield nil")
	}
}

func TestBuildHandler_RequiresStartup(t *testing.T) {
	svcMu.Lock()
	svc = nil
	svcMu.Unlock()

	if _, err := BuildHandler(nil, validConfig(), DBDeps{}, testLogger()); err == nil {
		t.Fatal("expected error before Startup")
	}
}

func TestLifecycle_ServesRoutes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	t.Cleanup(timeouts.Reset)

	core := &config.CoreConfig{Env: "dev"}
	cfg := validConfig()
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	if err := EnsureSchema(ctx, core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := Startup(ctx, core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if got := timeouts.Edit(); got != cfg.TimeoutEdit {
		t.Errorf("edit timeout not applied: %v", got)
	}

	h, err := BuildHandler(core, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	cases := []struct {
		method, path string
		body         string
		want         int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/no/such/route", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/note/dapatsemua", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/group/dapat", "", http.StatusUnauthorized},
		{http.MethodGet, "/socket", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/register", `{"username":"alice","email":"alice@example.com","password":"secret123","role":"female"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/auth/login", `{"email":"alice@example.com","password":"secret123"}`, http.StatusOK},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.StatusCode)
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	// The test database owns the Mongo client; leave it connected.
	if err := Shutdown(sctx, core, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := current(); err == nil {
		t.Error("services should be cleared after Shutdown")
	}
}
