// Package models - deleted.go defines tombstone records written when an organization, team or
// project is removed, so the identifying attributes survive the live row.
package models

import "time"

// DeletedEntry holds the fields shared by every tombstone
type DeletedEntry struct {
	ID          string     `db:"id"`
	ActorLabel  string     `db:"actor_label"`
	ActorID     *string    `db:"actor_id"`
	ActorKeyID  *string    `db:"actor_key_id"`
	IPAddress   *string    `db:"ip_address"`
	DateDeleted time.Time  `db:"date_deleted"`
	DateCreated *time.Time `db:"date_created"`
	Reason      *string    `db:"reason"`
}

// DeletedOrganization is the tombstone of an organization
type DeletedOrganization struct {
	DeletedEntry
	Name string `db:"name"`
	Slug string `db:"slug"`
}

// DeletedTeam is the tombstone of a team
type DeletedTeam struct {
	DeletedEntry
	Name             string  `db:"name"`
	Slug             string  `db:"slug"`
	OrganizationID   *string `db:"organization_id"`
	OrganizationName *string `db:"organization_name"`
	OrganizationSlug *string `db:"organization_slug"`
}

// DeletedProject is the tombstone of a project
type DeletedProject struct {
	DeletedEntry
	Name             string  `db:"name"`
	Slug             string  `db:"slug"`
	Platform         *string `db:"platform"`
	OrganizationID   *string `db:"organization_id"`
	OrganizationName *string `db:"organization_name"`
	OrganizationSlug *string `db:"organization_slug"`
}
