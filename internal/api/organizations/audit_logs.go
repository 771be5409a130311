package organizations

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trailkeeper/trailkeeper/internal/auditlog"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
)

// ListAuditLogsHandler returns a page of the organization's audit log, newest first, each row
// rendered through the event registry.
// GET /api/0/organizations/:slug/audit-logs/?event=project.edit&actor=<user id>&page=1&per_page=50
func (h *Handlers) ListAuditLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := currentOrganization(c)
		registry := h.writer.Registry()

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 50
		}

		filters := repositories.AuditFilters{OrganizationID: org.ID}
		if apiName := c.Query("event"); apiName != "" {
			ev, err := registry.GetByAPIName(apiName)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"event": []string{"Invalid audit log event: " + apiName}})
				return
			}
			filters.Event = &ev.ID
		}
		if actor := c.Query("actor"); actor != "" {
			actorID, err := uuid.Parse(actor)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"actor": []string{"Invalid actor id: " + actor}})
				return
			}
			id := actorID.String()
			filters.ActorID = &id
		}

		entries, total, err := h.auditRepo.ListEntries(c.Request.Context(), filters, perPage, (page-1)*perPage)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list audit logs"})
			return
		}

		rows := make([]gin.H, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, serializeEntry(entry, registry))
		}

		options := make([]string, 0)
		for _, ev := range registry.Events() {
			options = append(options, ev.APIName)
		}
		sort.Strings(options)

		c.JSON(http.StatusOK, gin.H{
			"rows":    rows,
			"options": options,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

func serializeEntry(entry *models.AuditLogEntry, registry *auditlog.Registry) gin.H {
	row := gin.H{
		"id":           entry.ID,
		"actor":        gin.H{"id": entry.ActorID, "name": entry.ActorLabel},
		"event":        nil,
		"note":         "",
		"ipAddress":    entry.IPAddress,
		"targetObject": entry.TargetObject,
		"targetUser":   entry.TargetUserID,
		"data":         entry.Data,
		"dateCreated":  entry.DateAdded.UTC().Format(time.RFC3339),
	}
	// Entries of events no longer registered are still listed, without a rendered note.
	if ev, err := registry.Get(entry.Event); err == nil {
		row["event"] = ev.APIName
		row["note"] = ev.Render(entry)
	}
	return row
}
