package organizations

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
)

// UpdateProjectRequest is the body of PUT /api/0/projects/:org/:project/
type UpdateProjectRequest struct {
	Slug     *string `json:"slug"`
	Name     *string `json:"name"`
	Platform *string `json:"platform"`
	IsPublic *bool   `json:"isPublic"`
}

// loadProject fetches the project named in the URL, writing 404/500 itself
func (h *Handlers) loadProject(c *gin.Context, org *models.Organization) (*models.Project, bool) {
	project, err := h.projectRepo.GetBySlug(c.Request.Context(), org.ID, c.Param("project"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load project"})
		return nil, false
	}
	if project == nil {
		c.JSON(http.StatusNotFound, notFound)
		return nil, false
	}
	return project, true
}

// UpdateProjectHandler edits project settings. A slug change is recorded with both the old
// and the new slug; other edits record the changed settings.
// PUT /api/0/projects/:org/:project/
func (h *Handlers) UpdateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := currentOrganization(c)
		project, ok := h.loadProject(c, org)
		if !ok {
			return
		}

		var req UpdateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
			return
		}

		changes := map[string]interface{}{}
		if req.Slug != nil && *req.Slug != project.Slug {
			changes["old_slug"] = project.Slug
			changes["new_slug"] = *req.Slug
			project.Slug = *req.Slug
		}
		if req.Name != nil && *req.Name != project.Name {
			project.Name = *req.Name
			changes["name"] = project.Name
		}
		if req.Platform != nil && (project.Platform == nil || *req.Platform != *project.Platform) {
			project.Platform = req.Platform
			changes["platform"] = *req.Platform
		}
		if req.IsPublic != nil && *req.IsPublic != project.Public {
			project.Public = *req.IsPublic
			changes["public"] = project.Public
		}

		if len(changes) == 0 {
			c.JSON(http.StatusOK, serializeProject(project))
			return
		}

		err := h.change(c, org, project.ID, "PROJECT_EDIT", changes, func(ctx context.Context, tx *repositories.Tx) error {
			return tx.Projects.Update(ctx, project)
		})
		if err != nil {
			slog.Error("failed to update project", "project", project.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update project"})
			return
		}
		c.JSON(http.StatusOK, serializeProject(project))
	}
}

// DeleteProjectHandler removes a project. The row, its PROJECT_REMOVE entry and its tombstone
// are written in one transaction.
// DELETE /api/0/projects/:org/:project/
func (h *Handlers) DeleteProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := currentOrganization(c)
		project, ok := h.loadProject(c, org)
		if !ok {
			return
		}

		err := h.change(c, org, project.ID, "PROJECT_REMOVE", project.GetAuditLogData(), func(ctx context.Context, tx *repositories.Tx) error {
			return tx.Projects.Delete(ctx, project.ID)
		})
		if err != nil {
			slog.Error("failed to delete project", "project", project.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete project"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
