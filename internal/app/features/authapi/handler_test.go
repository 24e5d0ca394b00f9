package authapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/app/features/authapi"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/mailer"
	"github.com/dalemusser/noteku/internal/app/system/ratelimit"
	"github.com/dalemusser/noteku/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (m *captureMailer) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

type testServer struct {
	router  http.Handler
	handler *authapi.Handler
	mail    *captureMailer
	db      *mongo.Database
}

func newTestServer(t *testing.T, limiter *ratelimit.AuthLimiter) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	tokens := auth.NewTokenManager("access-secret-0123456789abcdef0123", "refresh-secret-0123456789abcdef012", "noteku", 15*time.Minute, 7*24*time.Hour)
	cookies, err := auth.NewCookieManager("cookie-key-0123456789abcdef0123456789", "noteku-refresh", "", false, 15*time.Minute, 7*24*time.Hour, logger)
	if err != nil {
		t.Fatalf("NewCookieManager: %v", err)
	}
	mail := &captureMailer{}
	h := authapi.NewHandler(db, tokens, cookies, limiter, mail, nil,
		authapi.Options{BaseURL: "https://notes.example.com/", ResetTTL: time.Hour}, logger)

	r := chi.NewRouter()
	r.Mount("/api/v1/auth", authapi.Routes(h, auth.NewMiddleware(tokens, userstore.NewFetcher(db), logger)))
	return &testServer{router: r, handler: h, mail: mail, db: db}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *testutil.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := testutil.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) (string, []*http.Cookie) {
	t.Helper()
	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	rec.DecodeJSON(t, &body)
	return body.AccessToken, rec.Result().Cookies()
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, nil)
	body := map[string]string{"username": "Alice", "email": "Alice@Test.com", "password": "secret12", "role": "female"}

	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/register", body))
	rec.AssertStatus(t, http.StatusCreated)

	rec = s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/register", body))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "already in use")
}

func TestRegister_MissingFields(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "x"}))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": "x", "email": "x@test.com", "password": "secret12", "role": "robot"}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, s.db).CreateUser(ctx, "Bob")

	token, cookies := s.login(t, u.Email, "password123")
	if token == "" {
		t.Fatal("expected access token")
	}

	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
		if c.Name == "noteku-refresh" && !c.HttpOnly {
			t.Error("refresh cookie must be HttpOnly")
		}
	}
	if !names["noteku-refresh"] || !names[auth.AccessCookieName] {
		t.Errorf("cookies = %v", names)
	}

	stored, err := userstore.New(s.db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.RefreshTokenHash == "" {
		t.Error("refresh token hash should be stored")
	}
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, s.db).CreateUser(ctx, "Carol")

	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": u.Email, "password": "nope"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "wrong password")

	rec = s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ghost@test.com", "password": "x"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "user not found")

	rec = s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewAuthLimiter(1, time.Minute, 10, time.Minute)
	defer limiter.Stop()
	s := newTestServer(t, limiter)

	body := map[string]string{"email": "ghost@test.com", "password": "x"}
	s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/login", body))
	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/login", body))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, s.db).CreateUser(ctx, "Dora")
	_, cookies := s.login(t, u.Email, "password123")

	rec := s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh"), cookies...)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "accessToken")

	rec = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	// A revoked refresh token is rejected even though its cookie is intact.
	if err := userstore.New(s.db).ClearRefreshToken(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	rec = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh"), cookies...)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestLogoutAndName(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, s.db).CreateUser(ctx, "Eve")
	token, cookies := s.login(t, u.Email, "password123")

	rec := s.do(bearer(testutil.NewRequest(http.MethodGet, "/api/v1/auth/name"), token))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Eve"`)
	rec.AssertContains(t, `"role":"female"`)

	rec = s.do(testutil.NewRequest(http.MethodGet, "/api/v1/auth/name"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = s.do(bearer(testutil.NewRequest(http.MethodPost, "/api/v1/auth/logout"), token), cookies...)
	rec.AssertStatus(t, http.StatusOK)

	stored, _ := userstore.New(s.db).GetByID(ctx, u.ID)
	if stored.RefreshTokenHash != "" {
		t.Error("logout should revoke the refresh token")
	}
	rec = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh"), cookies...)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, s.db).CreateUser(ctx, "Finn")
	_, cookies := s.login(t, u.Email, "password123")

	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": u.Email}))
	rec.AssertStatus(t, http.StatusOK)

	if len(s.mail.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(s.mail.sent))
	}
	msg := s.mail.sent[0]
	if msg.To != u.Email {
		t.Errorf("To = %q", msg.To)
	}
	const prefix = "https://notes.example.com/api/v1/auth/reset/"
	i := strings.Index(msg.TextBody, prefix)
	if i < 0 {
		t.Fatalf("reset link missing from %q", msg.TextBody)
	}
	token := strings.Fields(msg.TextBody[i+len(prefix):])[0]

	resetBody := map[string]string{"newPassword": "brand-new-pw"}
	rec = s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/reset/"+token, resetBody))
	rec.AssertStatus(t, http.StatusOK)

	rec = s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/reset/"+token, resetBody))
	rec.AssertStatus(t, http.StatusBadRequest)

	s.login(t, u.Email, "brand-new-pw")

	// The reset revoked the session that existed before it.
	rec = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh"), cookies...)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(testutil.NewJSONRequest(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "ghost@test.com"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	if len(s.mail.sent) != 0 {
		t.Error("no email should be sent")
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, s.db).CreateUser(ctx, "Gus")
	user := testutil.UserFromModel(u.ID, u.Username, u.Email)

	rec := testutil.NewRecorder()
	s.handler.UpdateStatus(rec, testutil.NewAuthenticatedRequest(http.MethodPut, "/status", map[string]string{"status": "online"}, user))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	s.handler.UpdateStatus(rec, testutil.NewAuthenticatedRequest(http.MethodPut, "/status", map[string]string{"status": "away"}, user))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	s.handler.GetStatus(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/status", nil, user))
	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Username string     `json:"username"`
		Status   string     `json:"status"`
		LastSeen *time.Time `json:"lastSeen"`
	}
	rec.DecodeJSON(t, &got)
	if got.Username != "Gus" || got.Status != "online" || got.LastSeen == nil {
		t.Errorf("got %+v", got)
	}

	rec = testutil.NewRecorder()
	s.handler.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
