// Package models - audit_log.go defines the AuditLogEntry model: an immutable record of a
// security-relevant action, scoped to an organization and rendered through the event registry.
package models

import "time"

// AuditLogEntry represents a single persisted audit fact
type AuditLogEntry struct {
	ID             string
	OrganizationID string
	ActorID        *string // Set for user sessions; nil for API keys and system actions
	ActorKeyID     *string // Set when the request was authenticated with an API key
	ActorLabel     string  // Display name of the actor, at most 64 characters
	TargetObject   *string // ID of the organization, team, project, installation, ...
	TargetUserID   *string
	Event          int                    // Registry event ID
	IPAddress      *string                // Client IP, nil for system actions
	Data           map[string]interface{} // JSONB: template parameters for rendering
	DateAdded      time.Time
}

// ActorLabelMaxLength bounds AuditLogEntry.ActorLabel
const ActorLabelMaxLength = 64
