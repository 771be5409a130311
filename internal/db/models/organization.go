// Package models - organization.go defines the Organization model and its lifecycle status.
package models

import "time"

// OrganizationStatus tracks where an organization is in its deletion lifecycle
type OrganizationStatus int

const (
	OrganizationStatusVisible            OrganizationStatus = 0
	OrganizationStatusPendingDeletion    OrganizationStatus = 1
	OrganizationStatusDeletionInProgress OrganizationStatus = 2
)

// String returns the API representation of the status
func (s OrganizationStatus) String() string {
	switch s {
	case OrganizationStatusVisible:
		return "active"
	case OrganizationStatusPendingDeletion:
		return "pending_deletion"
	case OrganizationStatusDeletionInProgress:
		return "deletion_in_progress"
	default:
		return "unknown"
	}
}

// IsDeletionScheduled reports whether the organization is pending or undergoing deletion
func (s OrganizationStatus) IsDeletionScheduled() bool {
	return s == OrganizationStatusPendingDeletion || s == OrganizationStatusDeletionInProgress
}

// Organization represents a tenant
type Organization struct {
	ID          string
	Slug        string // URL-safe identifier
	Name        string // Human-readable name
	Status      OrganizationStatus
	DefaultRole string
	DateAdded   time.Time
}

// GetAuditLogData returns the snapshot recorded with organization audit entries
func (o *Organization) GetAuditLogData() map[string]interface{} {
	return map[string]interface{}{
		"id":           o.ID,
		"slug":         o.Slug,
		"name":         o.Name,
		"status":       int(o.Status),
		"default_role": o.DefaultRole,
		"date_added":   o.DateAdded.UTC().Format(time.RFC3339Nano),
	}
}
