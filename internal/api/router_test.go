package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/config"
	tkdb "github.com/trailkeeper/trailkeeper/internal/db"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/middleware"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv(auth.JWTSecretEnv, "router-test-secret-that-is-32-chars!")
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type shipped struct{ entries []*audit.LogEntry }

func (s *shipped) Ship(_ context.Context, e *audit.LogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}
func (s *shipped) Close() error { return nil }

// denyLimiter rejects every request
type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (middleware.LimitResult, error) {
	return middleware.LimitResult{Allowed: false, RetryAfter: 30 * time.Second}, nil
}
func (denyLimiter) Limit() int { return 1 }

func testConfig() *config.Config {
	return &config.Config{Telemetry: config.TelemetryConfig{ServiceName: "trailkeeper"}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type routerEnv struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	router  *gin.Engine
	shipped *shipped
}

func newRouterEnv(t *testing.T, limiter middleware.Limiter) *routerEnv {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sh := &shipped{}
	writer := audit.NewWriter(nil, audit.NewRepositoryTransactor(repositories.NewTxManager(tkdb.Extend(db))))
	writer.SetShipper(sh)

	router := NewRouter(testConfig(), db, Dependencies{
		Writer:  writer,
		Limiter: limiter,
		Logger:  quietLogger(),
	})
	return &routerEnv{db: db, mock: mock, router: router, shipped: sh}
}

func (e *routerEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, "alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func (e *routerEnv) expectUser(id string) {
	e.mock.ExpectQuery("FROM users").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "name", "is_superuser", "date_joined"}).
			AddRow(id, "alice", "alice@example.com", "Alice", false, time.Now()))
}

// ---------------------------------------------------------------------------
// Probes
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		e := newRouterEnv(t, nil)
		e.mock.ExpectPing()

		w := e.do(http.MethodGet, "/health", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var body map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "healthy" {
			t.Errorf("status = %v", body["status"])
		}
	})

	t.Run("database down", func(t *testing.T) {
		e := newRouterEnv(t, nil)
		e.mock.ExpectPing().WillReturnError(sql.ErrConnDone)

		if w := e.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestReady_DatabaseDown(t *testing.T) {
	e := newRouterEnv(t, nil)
	e.mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	w := e.do(http.MethodGet, "/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Ready || body.Checks["database"] != "unhealthy" {
		t.Errorf("body = %+v", body)
	}
}

func TestVersion(t *testing.T) {
	e := newRouterEnv(t, nil)

	w := e.do(http.MethodGet, "/version", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["version"] != Version || body["service"] != "trailkeeper" {
		t.Errorf("body = %v", body)
	}
}

// ---------------------------------------------------------------------------
// Global middleware
// ---------------------------------------------------------------------------

func TestRouter_GlobalHeaders(t *testing.T) {
	e := newRouterEnv(t, nil)
	e.mock.ExpectPing()

	w := e.do(http.MethodGet, "/health", "", nil)
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRouter_APIRequiresAuthentication(t *testing.T) {
	e := newRouterEnv(t, nil)

	paths := []struct{ method, path string }{
		{http.MethodDelete, "/api/0/organizations/acme/"},
		{http.MethodGet, "/api/0/organizations/acme/audit-logs/"},
		{http.MethodDelete, "/api/0/teams/acme/backend/"},
		{http.MethodPut, "/api/0/projects/acme/web/"},
		{http.MethodGet, "/api/0/sentry-app-installations/abc/"},
	}
	for _, p := range paths {
		if w := e.do(p.method, p.path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestRouter_RateLimitedAfterAuthentication(t *testing.T) {
	e := newRouterEnv(t, denyLimiter{})
	e.expectUser("user-1")

	w := e.do(http.MethodGet, "/api/0/organizations/acme/audit-logs/", sessionToken(t, "user-1"), nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
}

// ---------------------------------------------------------------------------
// End to end
// ---------------------------------------------------------------------------

func TestRouter_OrganizationRemovalWritesAuditEntry(t *testing.T) {
	e := newRouterEnv(t, nil)
	e.expectUser("user-1")
	e.mock.ExpectQuery("FROM organizations WHERE slug").WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "status", "default_role", "date_added"}).
			AddRow("org-1", "acme", "Acme", int(models.OrganizationStatusVisible), "member", time.Now()))
	e.mock.ExpectQuery("FROM organization_members").WithArgs("org-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "user_id", "email", "role", "date_added"}).
			AddRow("m-1", "org-1", "user-1", nil, "owner", time.Now()))
	e.mock.ExpectBegin()
	e.mock.ExpectExec("UPDATE organizations SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectExec("INSERT INTO audit_log_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectExec("INSERT INTO deleted_organizations").WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectCommit()

	w := e.do(http.MethodDelete, "/api/0/organizations/acme/", sessionToken(t, "user-1"), nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
	if len(e.shipped.entries) != 1 {
		t.Fatalf("shipped %d entries, want 1", len(e.shipped.entries))
	}
	entry := e.shipped.entries[0]
	if entry.Event != "ORG_REMOVE" || entry.ActorID != "user-1" || entry.ActorLabel != "alice" {
		t.Errorf("entry = %+v", entry)
	}
}
