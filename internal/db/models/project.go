package models

import "time"

// Project represents a project owned by an organization
type Project struct {
	ID             string
	OrganizationID string
	Slug           string
	Name           string
	Platform       *string
	Public         bool
	Status         int
	DateAdded      time.Time
}

// GetAuditLogData returns the snapshot recorded with project audit entries
func (p *Project) GetAuditLogData() map[string]interface{} {
	data := map[string]interface{}{
		"id":              p.ID,
		"slug":            p.Slug,
		"name":            p.Name,
		"organization_id": p.OrganizationID,
		"status":          p.Status,
		"public":          p.Public,
		"date_added":      p.DateAdded.UTC().Format(time.RFC3339Nano),
	}
	if p.Platform != nil {
		data["platform"] = *p.Platform
	}
	return data
}
