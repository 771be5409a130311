package organizations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
)

// UpdateOrganizationRequest is the body of PUT /api/0/organizations/:slug/
type UpdateOrganizationRequest struct {
	Name           *string `json:"name"`
	Slug           *string `json:"slug"`
	DefaultRole    *string `json:"defaultRole"`
	CancelDeletion bool    `json:"cancelDeletion"`
}

// errStatusChanged aborts a status move when the organization left the expected status
// between loading and updating it
var errStatusChanged = errors.New("organization status changed concurrently")

// moveStatus returns a mutation moving org from its loaded status to status to
func moveStatus(org *models.Organization, to models.OrganizationStatus) func(context.Context, *repositories.Tx) error {
	from := org.Status
	return func(ctx context.Context, tx *repositories.Tx) error {
		updated, err := tx.Organizations.UpdateStatus(ctx, org.ID, from, to)
		if err != nil {
			return err
		}
		if !updated {
			return errStatusChanged
		}
		return nil
	}
}

// respondCurrent answers with the organization as it is stored now, after a concurrent request
// changed its status
func (h *Handlers) respondCurrent(c *gin.Context, org *models.Organization, code int) {
	current, err := h.orgRepo.GetByID(c.Request.Context(), org.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load organization"})
		return
	}
	if current == nil {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	c.JSON(code, serializeOrganization(current))
}

// DeleteOrganizationHandler schedules an organization for deletion. Only the request that moves
// the organization out of the visible status records ORG_REMOVE.
// DELETE /api/0/organizations/:slug/
func (h *Handlers) DeleteOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := currentOrganization(c)

		if org.Status.IsDeletionScheduled() {
			c.JSON(http.StatusAccepted, serializeOrganization(org))
			return
		}

		mutate := moveStatus(org, models.OrganizationStatusPendingDeletion)
		org.Status = models.OrganizationStatusPendingDeletion

		err := h.change(c, org, org.ID, "ORG_REMOVE", org.GetAuditLogData(), mutate)
		switch {
		case errors.Is(err, errStatusChanged):
			h.respondCurrent(c, org, http.StatusAccepted)
		case err != nil:
			slog.Error("failed to schedule organization deletion", "organization", org.Slug, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete organization"})
		default:
			c.JSON(http.StatusAccepted, serializeOrganization(org))
		}
	}
}

// UpdateOrganizationHandler edits organization settings, or cancels a scheduled deletion
// when cancelDeletion is set. Cancelling is recorded as ORG_RESTORE only when a deletion was
// actually pending; otherwise it is an ordinary ORG_EDIT.
// PUT /api/0/organizations/:slug/
func (h *Handlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := currentOrganization(c)

		var req UpdateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
			return
		}

		if req.CancelDeletion {
			previous := org.Status
			var mutate func(context.Context, *repositories.Tx) error
			if previous.IsDeletionScheduled() {
				mutate = moveStatus(org, models.OrganizationStatusVisible)
				org.Status = models.OrganizationStatusVisible
			}

			err := h.change(c, org, org.ID, audit.OrganizationRestoreEvent(previous), org.GetAuditLogData(), mutate)
			switch {
			case errors.Is(err, errStatusChanged):
				h.respondCurrent(c, org, http.StatusOK)
			case err != nil:
				slog.Error("failed to restore organization", "organization", org.Slug, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to restore organization"})
			default:
				c.JSON(http.StatusOK, serializeOrganization(org))
			}
			return
		}

		changes := map[string]interface{}{}
		if req.Name != nil && *req.Name != org.Name {
			org.Name = *req.Name
			changes["name"] = org.Name
		}
		if req.Slug != nil && *req.Slug != org.Slug {
			org.Slug = *req.Slug
			changes["slug"] = org.Slug
		}
		if req.DefaultRole != nil && *req.DefaultRole != org.DefaultRole {
			org.DefaultRole = *req.DefaultRole
			changes["default_role"] = org.DefaultRole
		}

		if len(changes) == 0 {
			c.JSON(http.StatusOK, serializeOrganization(org))
			return
		}

		err := h.change(c, org, org.ID, "ORG_EDIT", changes, func(ctx context.Context, tx *repositories.Tx) error {
			return tx.Organizations.Update(ctx, org)
		})
		if err != nil {
			slog.Error("failed to update organization", "organization", org.Slug, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update organization"})
			return
		}
		c.JSON(http.StatusOK, serializeOrganization(org))
	}
}
