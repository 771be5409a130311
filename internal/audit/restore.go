package audit

import "github.com/trailkeeper/trailkeeper/internal/db/models"

// OrganizationRestoreEvent names the event to write when a user cancels an organization's
// deletion. The action is only a restore when deletion was actually scheduled; for a visible
// organization it is recorded as a plain edit.
func OrganizationRestoreEvent(previous models.OrganizationStatus) string {
	if previous.IsDeletionScheduled() {
		return "ORG_RESTORE"
	}
	return "ORG_EDIT"
}
