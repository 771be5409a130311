// Package models - sentry_app.go defines third-party app integrations, their per-organization
// installations, and the bearer tokens those installations authenticate with.
package models

import "time"

// InstallationStatus is the lifecycle status of an installation
type InstallationStatus int

const (
	InstallationStatusPending   InstallationStatus = 0
	InstallationStatusInstalled InstallationStatus = 1
)

// String returns the API representation of the status
func (s InstallationStatus) String() string {
	switch s {
	case InstallationStatusInstalled:
		return "installed"
	default:
		return "pending"
	}
}

// ParseInstallationStatus maps an API status string to its value
func ParseInstallationStatus(s string) (InstallationStatus, bool) {
	switch s {
	case "pending":
		return InstallationStatusPending, true
	case "installed":
		return InstallationStatusInstalled, true
	default:
		return 0, false
	}
}

// SentryApp is a third-party integration that organizations can install
type SentryApp struct {
	ID             string   `db:"id"`
	UUID           string   `db:"uuid"`
	Slug           string   `db:"slug"`
	Name           string   `db:"name"`
	OrganizationID string   `db:"organization_id"` // Owner of the app
	Published      bool     `db:"published"`
	ProxyUserID    *string  `db:"proxy_user_id"`
	Scopes         []string `db:"-"`
}

// SentryAppInstallation binds a SentryApp to an organization
type SentryAppInstallation struct {
	ID             string             `db:"id"`
	UUID           string             `db:"uuid"`
	SentryAppID    string             `db:"sentry_app_id"`
	OrganizationID string             `db:"organization_id"`
	Status         InstallationStatus `db:"status"`
	GrantCode      *string            `db:"grant_code"`
	DateAdded      time.Time          `db:"date_added"`
	DateDeleted    *time.Time         `db:"date_deleted"`

	// Joined fields (not stored in the installations table)
	AppUUID          string `db:"app_uuid"`
	AppSlug          string `db:"app_slug"`
	OrganizationSlug string `db:"organization_slug"`
}

// APIToken is a bearer token issued to an installation by the grant exchange
type APIToken struct {
	ID                      string     `db:"id"`
	Token                   string     `db:"token"`
	UserID                  *string    `db:"user_id"`
	SentryAppInstallationID *string    `db:"sentry_app_installation_id"`
	SentryAppID             *string    `db:"sentry_app_id"`
	ExpiresAt               *time.Time `db:"expires_at"`
	DateAdded               time.Time  `db:"date_added"`
}

// IsExpired reports whether the token is past its expiry
func (t *APIToken) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}
