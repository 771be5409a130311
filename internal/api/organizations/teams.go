package organizations

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
)

// DeleteTeamHandler removes a team. The row, its TEAM_REMOVE entry and its tombstone are
// written in one transaction.
// DELETE /api/0/teams/:org/:team/
func (h *Handlers) DeleteTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := currentOrganization(c)

		team, err := h.teamRepo.GetBySlug(c.Request.Context(), org.ID, c.Param("team"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load team"})
			return
		}
		if team == nil {
			c.JSON(http.StatusNotFound, notFound)
			return
		}

		err = h.change(c, org, team.ID, "TEAM_REMOVE", team.GetAuditLogData(), func(ctx context.Context, tx *repositories.Tx) error {
			return tx.Teams.Delete(ctx, team.ID)
		})
		if err != nil {
			slog.Error("failed to delete team", "team", team.Slug, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete team"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
