// Package models - organization_member.go defines the user-to-organization membership.
package models

import "time"

// OrganizationMember represents a user's membership in an organization
type OrganizationMember struct {
	ID             string
	OrganizationID string
	UserID         *string // nil while the invite is pending
	Email          *string
	Role           string // member, admin, manager, owner
	DateAdded      time.Time
}
