package models

import "time"

// Team represents a group of members inside an organization
type Team struct {
	ID             string
	OrganizationID string
	Slug           string
	Name           string
	Status         int
	DateAdded      time.Time
}

// GetAuditLogData returns the snapshot recorded with team audit entries
func (t *Team) GetAuditLogData() map[string]interface{} {
	return map[string]interface{}{
		"id":              t.ID,
		"slug":            t.Slug,
		"name":            t.Name,
		"organization_id": t.OrganizationID,
		"status":          t.Status,
		"date_added":      t.DateAdded.UTC().Format(time.RFC3339Nano),
	}
}
