package models

import (
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// OrganizationStatus
// ---------------------------------------------------------------------------

func TestOrganizationStatus_IsDeletionScheduled(t *testing.T) {
	tests := []struct {
		status OrganizationStatus
		want   bool
	}{
		{OrganizationStatusVisible, false},
		{OrganizationStatusPendingDeletion, true},
		{OrganizationStatusDeletionInProgress, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsDeletionScheduled(); got != tt.want {
			t.Errorf("%s.IsDeletionScheduled() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestOrganizationStatus_String(t *testing.T) {
	if got := OrganizationStatus(42).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
	if got := OrganizationStatusPendingDeletion.String(); got != "pending_deletion" {
		t.Errorf("String() = %q, want pending_deletion", got)
	}
}

// ---------------------------------------------------------------------------
// GetAuditLogData
// ---------------------------------------------------------------------------

func TestOrganization_GetAuditLogData(t *testing.T) {
	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	org := &Organization{ID: "org-1", Slug: "acme", Name: "Acme", DateAdded: added}

	data := org.GetAuditLogData()
	if data["slug"] != "acme" {
		t.Errorf("slug = %v, want acme", data["slug"])
	}
	if data["date_added"] != "2024-03-01T12:00:00Z" {
		t.Errorf("date_added = %v", data["date_added"])
	}
	if data["status"] != 0 {
		t.Errorf("status = %v, want 0", data["status"])
	}
}

func TestProject_GetAuditLogData_Platform(t *testing.T) {
	platform := "java"
	p := &Project{ID: "p-1", Slug: "backend", Platform: &platform}
	if got := p.GetAuditLogData()["platform"]; got != "java" {
		t.Errorf("platform = %v, want java", got)
	}

	p.Platform = nil
	if _, ok := p.GetAuditLogData()["platform"]; ok {
		t.Error("platform key should be absent when Platform is nil")
	}
}

func TestTeam_GetAuditLogData_OrganizationID(t *testing.T) {
	team := &Team{ID: "t-1", OrganizationID: "org-1", Slug: "core"}
	if got := team.GetAuditLogData()["organization_id"]; got != "org-1" {
		t.Errorf("organization_id = %v, want org-1", got)
	}
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

func TestDisplayLabels(t *testing.T) {
	if got := (&User{Username: "jane", Email: "j@example.com"}).DisplayLabel(); got != "jane" {
		t.Errorf("user label = %q, want jane", got)
	}
	if got := (&User{Email: "j@example.com"}).DisplayLabel(); got != "j@example.com" {
		t.Errorf("user label = %q, want email fallback", got)
	}
	if got := (&APIKey{KeyPrefix: "tk_abc1234"}).DisplayLabel(); got != "tk_abc1234" {
		t.Errorf("api key label = %q, want prefix fallback", got)
	}
}

// ---------------------------------------------------------------------------
// Installations and tokens
// ---------------------------------------------------------------------------

func TestParseInstallationStatus(t *testing.T) {
	if s, ok := ParseInstallationStatus("installed"); !ok || s != InstallationStatusInstalled {
		t.Errorf("ParseInstallationStatus(installed) = %v, %v", s, ok)
	}
	if _, ok := ParseInstallationStatus("bogus"); ok {
		t.Error("ParseInstallationStatus(bogus) should fail")
	}
	if InstallationStatusPending.String() != "pending" {
		t.Errorf("pending String() = %q", InstallationStatusPending.String())
	}
}

func TestAPIToken_IsExpired(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	if (&APIToken{}).IsExpired() {
		t.Error("token without expiry should not be expired")
	}
	if !(&APIToken{ExpiresAt: &past}).IsExpired() {
		t.Error("token with past expiry should be expired")
	}
	if (&APIToken{ExpiresAt: &future}).IsExpired() {
		t.Error("token with future expiry should not be expired")
	}
}
