// Package models defines the database model types for the audit service.
// Each type corresponds to a database table. Models are pure data types: business logic
// belongs in the service layer, query logic belongs in the repositories layer.
package models

import "time"

// APIKey represents an organization-scoped API credential
type APIKey struct {
	ID             string
	OrganizationID string
	Label          string   // Friendly name (e.g., "CI deploy key")
	KeyHash        string   // Bcrypt hash of the full key
	KeyPrefix      string   // First 10 chars for lookup and display
	Scopes         []string // JSONB array: ["org:read", "project:write"]
	AllowedOrigins string
	Status         int
	DateAdded      time.Time
}

// DisplayLabel returns the label recorded as the actor of audit entries
func (k *APIKey) DisplayLabel() string {
	if k.Label != "" {
		return k.Label
	}
	return k.KeyPrefix
}
