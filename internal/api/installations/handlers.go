// Package installations implements the integration installation detail endpoints:
// read, uninstall, and the installed-status update made by the integration itself.
package installations

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/middleware"
	"github.com/trailkeeper/trailkeeper/internal/services"
)

// Handlers serves /api/0/sentry-app-installations/:uuid/
type Handlers struct {
	appRepo *repositories.SentryAppRepository
	orgRepo *repositories.OrganizationRepository
	service *services.InstallationService
}

// NewHandlers creates a new Handlers instance
func NewHandlers(appRepo *repositories.SentryAppRepository, orgRepo *repositories.OrganizationRepository, service *services.InstallationService) *Handlers {
	return &Handlers{appRepo: appRepo, orgRepo: orgRepo, service: service}
}

// RegisterRoutes mounts the installation detail endpoints on group (the /api/0 group)
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	inst := group.Group("/sentry-app-installations/:uuid")
	inst.GET("/", h.GetHandler())
	inst.DELETE("/", h.DeleteHandler())
	inst.PUT("/", h.UpdateHandler())
}

// UpdateRequest is the body of PUT /api/0/sentry-app-installations/:uuid/
type UpdateRequest struct {
	Status string `json:"status"`
}

// Serialize renders an installation for API responses
func Serialize(inst *models.SentryAppInstallation) gin.H {
	var code interface{}
	if inst.GrantCode != nil {
		code = *inst.GrantCode
	}
	return gin.H{
		"app":          gin.H{"uuid": inst.AppUUID, "slug": inst.AppSlug},
		"organization": gin.H{"slug": inst.OrganizationSlug},
		"uuid":         inst.UUID,
		"code":         code,
		"status":       inst.Status.String(),
	}
}

var notFound = gin.H{"detail": "The requested resource does not exist"}

// loadInstallation fetches the installation named in the URL, writing 404/500 itself
func (h *Handlers) loadInstallation(c *gin.Context) (*models.SentryAppInstallation, bool) {
	inst, err := h.appRepo.GetInstallationByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		slog.Error("failed to load installation", "uuid", c.Param("uuid"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load installation"})
		return nil, false
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, notFound)
		return nil, false
	}
	return inst, true
}

// orgAccess resolves the caller's scopes in the installation's organization. Callers outside
// the organization get 404 so installations of other organizations are not disclosed.
func (h *Handlers) orgAccess(c *gin.Context, inst *models.SentryAppInstallation) ([]string, bool) {
	scopes, isMember, err := middleware.OrgScopes(c, h.orgRepo, inst.OrganizationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to check organization membership"})
		return nil, false
	}
	if !isMember {
		c.JSON(http.StatusNotFound, notFound)
		return nil, false
	}
	return scopes, true
}

// GetHandler returns an installation to members of its organization
// GET /api/0/sentry-app-installations/:uuid/
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, ok := h.loadInstallation(c)
		if !ok {
			return
		}

		if token := middleware.APITokenFromContext(c); token != nil {
			if token.SentryAppInstallationID == nil || *token.SentryAppInstallationID != inst.ID {
				c.JSON(http.StatusNotFound, notFound)
				return
			}
			c.JSON(http.StatusOK, Serialize(inst))
			return
		}

		if _, ok := h.orgAccess(c, inst); !ok {
			return
		}
		c.JSON(http.StatusOK, Serialize(inst))
	}
}

// DeleteHandler uninstalls an integration; requires org:integrations
// DELETE /api/0/sentry-app-installations/:uuid/
func (h *Handlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, ok := h.loadInstallation(c)
		if !ok {
			return
		}

		scopes, ok := h.orgAccess(c, inst)
		if !ok {
			return
		}
		if !auth.HasScope(scopes, auth.ScopeOrgIntegrations) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}

		if err := h.service.Uninstall(c.Request.Context(), audit.RequestFromGin(c), inst); err != nil {
			slog.Error("failed to uninstall", "uuid", inst.UUID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to uninstall"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// UpdateHandler lets an integration mark its own installation as installed. Only the
// installation's API token is accepted.
// PUT /api/0/sentry-app-installations/:uuid/
func (h *Handlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.APITokenFromContext(c)
		if token == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		inst, ok := h.loadInstallation(c)
		if !ok {
			return
		}
		if token.SentryAppID == nil || *token.SentryAppID != inst.SentryAppID {
			c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}

		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
			return
		}

		if err := h.service.UpdateStatus(c.Request.Context(), inst, req.Status); err != nil {
			if errors.Is(err, services.ErrInvalidStatus) {
				c.JSON(http.StatusBadRequest, gin.H{
					"status": []string{fmt.Sprintf("Invalid value '%s' for status. Valid values: 'installed'", req.Status)},
				})
				return
			}
			slog.Error("failed to update installation", "uuid", inst.UUID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update installation"})
			return
		}
		c.JSON(http.StatusOK, Serialize(inst))
	}
}
