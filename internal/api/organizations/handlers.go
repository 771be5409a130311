// Package organizations implements the organization, team and project endpoints that change
// audited state, and the organization audit log listing.
package organizations

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/middleware"
)

// Handlers serves the organization-scoped endpoints. Every route is mounted behind
// middleware.OrganizationMiddleware and middleware.RequireOrgScope.
type Handlers struct {
	orgRepo     *repositories.OrganizationRepository
	teamRepo    *repositories.TeamRepository
	projectRepo *repositories.ProjectRepository
	auditRepo   *repositories.AuditRepository
	txm         *repositories.TxManager
	writer      *audit.Writer
}

// NewHandlers creates a new Handlers instance
func NewHandlers(orgRepo *repositories.OrganizationRepository, teamRepo *repositories.TeamRepository, projectRepo *repositories.ProjectRepository, auditRepo *repositories.AuditRepository, txm *repositories.TxManager, writer *audit.Writer) *Handlers {
	return &Handlers{
		orgRepo:     orgRepo,
		teamRepo:    teamRepo,
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		txm:         txm,
		writer:      writer,
	}
}

// RegisterRoutes mounts the endpoints on group (the /api/0 group) with their scope checks
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	org := group.Group("/organizations/:slug", middleware.OrganizationMiddleware(h.orgRepo, "slug"))
	org.PUT("/", middleware.RequireOrgScope(h.orgRepo, auth.ScopeOrgWrite, auth.ScopeOrgAdmin), h.UpdateOrganizationHandler())
	org.DELETE("/", middleware.RequireOrgScope(h.orgRepo, auth.ScopeOrgAdmin), h.DeleteOrganizationHandler())
	org.GET("/audit-logs/", middleware.RequireOrgScope(h.orgRepo, auth.ScopeOrgWrite), h.ListAuditLogsHandler())

	teams := group.Group("/teams/:org", middleware.OrganizationMiddleware(h.orgRepo, "org"))
	teams.DELETE("/:team/", middleware.RequireOrgScope(h.orgRepo, auth.ScopeTeamAdmin), h.DeleteTeamHandler())

	projects := group.Group("/projects/:org", middleware.OrganizationMiddleware(h.orgRepo, "org"))
	projects.PUT("/:project/", middleware.RequireOrgScope(h.orgRepo, auth.ScopeProjectWrite, auth.ScopeProjectAdmin), h.UpdateProjectHandler())
	projects.DELETE("/:project/", middleware.RequireOrgScope(h.orgRepo, auth.ScopeProjectAdmin), h.DeleteProjectHandler())
}

var notFound = gin.H{"detail": "The requested resource does not exist"}

// change runs mutate and writes the audit entry of the current request in one transaction, so
// the audited change and its entry (and tombstone) commit or roll back together. The entry is
// published after commit. mutate may be nil.
func (h *Handlers) change(c *gin.Context, org *models.Organization, target, eventName string, data map[string]interface{}, mutate func(ctx context.Context, tx *repositories.Tx) error) error {
	ctx := c.Request.Context()
	event := h.writer.Registry().MustGetEventID(eventName)

	var entry *models.AuditLogEntry
	err := h.txm.RunInTx(ctx, func(tx *repositories.Tx) error {
		if mutate != nil {
			if err := mutate(ctx, tx); err != nil {
				return err
			}
		}
		var err error
		entry, err = h.writer.CreateAuditEntryTx(ctx, audit.StoresFromTx(tx), audit.RequestFromGin(c), org, target, event, data)
		return err
	})
	if err != nil {
		return err
	}
	h.writer.Publish(ctx, entry)
	return nil
}

func serializeOrganization(org *models.Organization) gin.H {
	return gin.H{
		"id":          org.ID,
		"slug":        org.Slug,
		"name":        org.Name,
		"defaultRole": org.DefaultRole,
		"status":      gin.H{"id": org.Status.String()},
		"dateCreated": org.DateAdded,
	}
}

func serializeProject(p *models.Project) gin.H {
	return gin.H{
		"id":          p.ID,
		"slug":        p.Slug,
		"name":        p.Name,
		"platform":    p.Platform,
		"isPublic":    p.Public,
		"dateCreated": p.DateAdded,
	}
}

// currentOrganization returns the organization loaded by OrganizationMiddleware
func currentOrganization(c *gin.Context) *models.Organization {
	return middleware.OrganizationFromContext(c)
}
