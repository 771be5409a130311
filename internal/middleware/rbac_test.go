package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

var errDB = errors.New("db error")

// newOrgRouter mounts OrganizationMiddleware and RequireOrgScope on /orgs/:slug with the
// caller identity injected ahead of them
func newOrgRouter(r *repos, identity gin.HandlerFunc, scopes ...auth.Scope) *gin.Engine {
	router := gin.New()
	router.GET("/orgs/:slug", identity, OrganizationMiddleware(r.orgs, "slug"), RequireOrgScope(r.orgs, scopes...),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"org": OrganizationFromContext(c).Slug, "scopes": c.GetStringSlice(ContextKeyScopes)})
		})
	return router
}

func asUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyUser, u)
		c.Set(ContextKeyUserID, u.ID)
	}
}

func asAPIKey(k *models.APIKey) gin.HandlerFunc {
	return func(c *gin.Context) { c.Set(ContextKeyAPIKey, k) }
}

func anonymous(c *gin.Context) {}

func expectOrg(r *repos) {
	r.mock.ExpectQuery("FROM organizations WHERE slug").WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow("org-1", "acme", "Acme", 0, "member", time.Now()))
}

func getOrg(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/acme", nil))
	return w
}

// ---------------------------------------------------------------------------
// OrganizationMiddleware
// ---------------------------------------------------------------------------

func TestOrganizationMiddleware_NotFound(t *testing.T) {
	r := newRepos(t)
	r.mock.ExpectQuery("FROM organizations WHERE slug").WillReturnRows(sqlmock.NewRows(orgCols))

	if w := getOrg(newOrgRouter(r, anonymous, auth.ScopeOrgRead)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestOrganizationMiddleware_DBError(t *testing.T) {
	r := newRepos(t)
	r.mock.ExpectQuery("FROM organizations").WillReturnError(errDB)

	if w := getOrg(newOrgRouter(r, anonymous, auth.ScopeOrgRead)); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// RequireOrgScope
// ---------------------------------------------------------------------------

func TestRequireOrgScope_MemberRoles(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{"member", http.StatusForbidden},
		{"admin", http.StatusOK},
		{"owner", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := newRepos(t)
			expectOrg(r)
			r.mock.ExpectQuery("FROM organization_members").WithArgs("org-1", "user-1").
				WillReturnRows(sqlmock.NewRows(memberCols).AddRow("m-1", "org-1", "user-1", nil, tt.role, time.Now()))

			router := newOrgRouter(r, asUser(&models.User{ID: "user-1"}), auth.ScopeOrgIntegrations)
			if w := getOrg(router); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireOrgScope_NonMember(t *testing.T) {
	r := newRepos(t)
	expectOrg(r)
	r.mock.ExpectQuery("FROM organization_members").WillReturnRows(sqlmock.NewRows(memberCols))

	if w := getOrg(newOrgRouter(r, asUser(&models.User{ID: "user-2"}), auth.ScopeOrgRead)); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireOrgScope_MembershipError(t *testing.T) {
	r := newRepos(t)
	expectOrg(r)
	r.mock.ExpectQuery("FROM organization_members").WillReturnError(errDB)

	if w := getOrg(newOrgRouter(r, asUser(&models.User{ID: "user-1"}), auth.ScopeOrgRead)); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRequireOrgScope_SuperuserSkipsMembership(t *testing.T) {
	r := newRepos(t)
	expectOrg(r)

	router := newOrgRouter(r, asUser(&models.User{ID: "root", IsSuperuser: true}), auth.ScopeOrgAdmin)
	if w := getOrg(router); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if err := r.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRequireOrgScope_APIKey(t *testing.T) {
	tests := []struct {
		name string
		key  *models.APIKey
		want int
	}{
		{"own org with scope", &models.APIKey{ID: "k", OrganizationID: "org-1", Scopes: []string{"org:write"}}, http.StatusOK},
		{"own org without scope", &models.APIKey{ID: "k", OrganizationID: "org-1", Scopes: []string{"org:read"}}, http.StatusForbidden},
		{"other org", &models.APIKey{ID: "k", OrganizationID: "org-2", Scopes: []string{"org:write"}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRepos(t)
			expectOrg(r)
			if w := getOrg(newOrgRouter(r, asAPIKey(tt.key), auth.ScopeOrgWrite)); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireOrgScope_AnyOf(t *testing.T) {
	r := newRepos(t)
	expectOrg(r)
	key := &models.APIKey{ID: "k", OrganizationID: "org-1", Scopes: []string{"team:write"}}

	router := newOrgRouter(r, asAPIKey(key), auth.ScopeOrgAdmin, auth.ScopeTeamWrite)
	if w := getOrg(router); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireOrgScope_InstallationTokenHasNoOrgScopes(t *testing.T) {
	r := newRepos(t)
	expectOrg(r)
	withToken := func(c *gin.Context) { c.Set(ContextKeyAPIToken, &models.APIToken{ID: "tok"}) }

	if w := getOrg(newOrgRouter(r, withToken, auth.ScopeOrgRead)); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireOrgScope_WithoutOrganization(t *testing.T) {
	r := newRepos(t)
	router := gin.New()
	router.GET("/", RequireOrgScope(r.orgs, auth.ScopeOrgRead), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
