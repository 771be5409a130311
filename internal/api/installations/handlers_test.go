package installations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/trailkeeper/trailkeeper/internal/analytics"
	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/middleware"
	"github.com/trailkeeper/trailkeeper/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const installUUID = "4b5f8a2e-1111-2222-3333-444455556666"

var (
	installCols = []string{"id", "uuid", "sentry_app_id", "organization_id", "status", "grant_code",
		"date_added", "date_deleted", "app_uuid", "app_slug", "organization_slug"}
	memberCols = []string{"id", "organization_id", "user_id", "email", "role", "date_added"}
	orgCols    = []string{"id", "slug", "name", "status", "default_role", "date_added"}
)

func installRow() *sqlmock.Rows {
	return sqlmock.NewRows(installCols).AddRow("inst-2", installUUID, "app-2", "org-1",
		int(models.InstallationStatusPending), "grant-abc", time.Now(), nil, "app-uuid-2", "testin", "boop-org")
}

type shipped struct{ entries []*audit.LogEntry }

func (s *shipped) Ship(_ context.Context, e *audit.LogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}
func (s *shipped) Close() error { return nil }

type recorder struct{ names []string }

func (r *recorder) Record(_ context.Context, name string, _ analytics.Attrs) {
	r.names = append(r.names, name)
}

type notifier struct{ actions []string }

func (n *notifier) Notify(_ context.Context, _ *models.SentryAppInstallation, _ *models.User, action string) error {
	n.actions = append(n.actions, action)
	return nil
}

type env struct {
	mock     sqlmock.Sqlmock
	router   *gin.Engine
	shipped  *shipped
	recorder *recorder
	notifier *notifier
}

// newEnv mounts the installation routes behind identity, which stands in for AuthMiddleware
func newEnv(t *testing.T, identity gin.HandlerFunc) *env {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	appRepo := repositories.NewSentryAppRepository(sqlxDB)
	orgRepo := repositories.NewOrganizationRepository(db)

	e := &env{mock: mock, shipped: &shipped{}, recorder: &recorder{}, notifier: &notifier{}}
	txm := repositories.NewTxManager(sqlxDB)
	writer := audit.NewWriter(nil, audit.NewRepositoryTransactor(txm))
	writer.SetShipper(e.shipped)
	svc := services.NewInstallationService(appRepo, services.NewRepositoryTransactor(txm), orgRepo, writer, e.notifier, e.recorder)
	h := NewHandlers(appRepo, orgRepo, svc)

	r := gin.New()
	r.Use(identity)
	h.RegisterRoutes(r.Group("/api/0"))
	e.router = r
	return e
}

func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUser, &models.User{ID: id, Username: "boop@example.com"})
	}
}

func withToken(appID, installID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyAPIToken, &models.APIToken{
			ID:                      "tok-1",
			SentryAppID:             &appID,
			SentryAppInstallationID: &installID,
		})
	}
}

func noAuth(*gin.Context) {}

func (e *env) do(method string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, "/api/0/sentry-app-installations/"+installUUID+"/", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) expectMember(role string) {
	rows := sqlmock.NewRows(memberCols)
	if role != "" {
		rows.AddRow("m-1", "org-1", "user-1", nil, role, time.Now())
	}
	e.mock.ExpectQuery("FROM organization_members").WithArgs("org-1", "user-1").WillReturnRows(rows)
}

// ---------------------------------------------------------------------------
// GET
// ---------------------------------------------------------------------------

func TestGet_WithinInstallOrganization(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WithArgs(installUUID).WillReturnRows(installRow())
	e.expectMember("owner")

	w := e.do(http.MethodGet, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var got map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"app":          map[string]interface{}{"uuid": "app-uuid-2", "slug": "testin"},
		"organization": map[string]interface{}{"slug": "boop-org"},
		"uuid":         installUUID,
		"code":         "grant-abc",
		"status":       "pending",
	}
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if !bytes.Equal(gotJSON, wantJSON) {
		t.Errorf("body = %s, want %s", gotJSON, wantJSON)
	}
}

func TestGet_OutsideInstallOrganization(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())
	e.expectMember("")

	if w := e.do(http.MethodGet, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGet_UnknownInstallation(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(sqlmock.NewRows(installCols))

	if w := e.do(http.MethodGet, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGet_OwnInstallationToken(t *testing.T) {
	e := newEnv(t, withToken("app-2", "inst-2"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())

	if w := e.do(http.MethodGet, nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// ---------------------------------------------------------------------------
// DELETE
// ---------------------------------------------------------------------------

func TestDelete_Install(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WithArgs(installUUID).WillReturnRows(installRow())
	e.expectMember("owner")
	e.mock.ExpectQuery("FROM organizations WHERE id").WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow("org-1", "boop-org", "Boop", 0, "member", time.Now()))
	e.mock.ExpectBegin()
	e.mock.ExpectExec("UPDATE sentry_app_installations SET date_deleted").
		WithArgs("inst-2", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectExec("INSERT INTO audit_log_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectCommit()

	w := e.do(http.MethodDelete, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", w.Code, w.Body.String())
	}
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	if len(e.shipped.entries) != 1 {
		t.Fatalf("shipped %d entries, want 1", len(e.shipped.entries))
	}
	entry := e.shipped.entries[0]
	if entry.Event != "SENTRY_APP_UNINSTALL" || entry.Message != "uninstalled sentry app testin" {
		t.Errorf("entry = %s / %q", entry.Event, entry.Message)
	}
	if len(e.notifier.actions) != 1 || e.notifier.actions[0] != "deleted" {
		t.Errorf("notifier actions = %v", e.notifier.actions)
	}
	if len(e.recorder.names) != 1 || e.recorder.names[0] != "sentry_app.uninstalled" {
		t.Errorf("analytics = %v", e.recorder.names)
	}
}

func TestDelete_MemberCannotDelete(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())
	e.expectMember("member")

	if w := e.do(http.MethodDelete, nil); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if len(e.shipped.entries) != 0 {
		t.Error("audit entry written for a forbidden uninstall")
	}
}

func TestDelete_SoftDeleteError(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())
	e.expectMember("admin")
	e.mock.ExpectQuery("FROM organizations WHERE id").
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow("org-1", "boop-org", "Boop", 0, "member", time.Now()))
	e.mock.ExpectBegin()
	e.mock.ExpectExec("UPDATE sentry_app_installations").WillReturnError(context.DeadlineExceeded)
	e.mock.ExpectRollback()

	if w := e.do(http.MethodDelete, nil); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDelete_AuditFailureRollsBackUninstall(t *testing.T) {
	e := newEnv(t, asUser("user-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())
	e.expectMember("owner")
	e.mock.ExpectQuery("FROM organizations WHERE id").
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow("org-1", "boop-org", "Boop", 0, "member", time.Now()))
	e.mock.ExpectBegin()
	e.mock.ExpectExec("UPDATE sentry_app_installations SET date_deleted").WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectExec("INSERT INTO audit_log_entries").WillReturnError(context.DeadlineExceeded)
	e.mock.ExpectRollback()

	if w := e.do(http.MethodDelete, nil); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
	if len(e.shipped.entries) != 0 || len(e.notifier.actions) != 0 {
		t.Errorf("rolled back uninstall shipped %d entries and sent %v", len(e.shipped.entries), e.notifier.actions)
	}
}

// ---------------------------------------------------------------------------
// PUT
// ---------------------------------------------------------------------------

func TestUpdate_MarkInstalled(t *testing.T) {
	e := newEnv(t, withToken("app-2", "inst-2"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())
	e.mock.ExpectExec("UPDATE sentry_app_installations SET status").
		WithArgs("inst-2", int64(models.InstallationStatusInstalled)).WillReturnResult(sqlmock.NewResult(0, 1))

	w := e.do(http.MethodPut, gin.H{"status": "installed"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["status"] != "installed" {
		t.Errorf("status field = %v, want installed", got["status"])
	}
	if len(e.recorder.names) != 1 || e.recorder.names[0] != "sentry_app_installation.updated" {
		t.Errorf("analytics = %v", e.recorder.names)
	}
}

func TestUpdate_MarkPending(t *testing.T) {
	e := newEnv(t, withToken("app-2", "inst-2"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())

	w := e.do(http.MethodPut, gin.H{"status": "pending"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	want := `{"status":["Invalid value 'pending' for status. Valid values: 'installed'"]}`
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}
}

func TestUpdate_WrongApp(t *testing.T) {
	e := newEnv(t, withToken("app-1", "inst-1"))
	e.mock.ExpectQuery("FROM sentry_app_installations").WillReturnRows(installRow())

	if w := e.do(http.MethodPut, gin.H{"status": "installed"}); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestUpdate_NoToken(t *testing.T) {
	e := newEnv(t, noAuth)

	if w := e.do(http.MethodPut, gin.H{"status": "installed"}); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
