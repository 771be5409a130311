// Package services coordinates operations that span several repositories and side channels:
// persisting a change, writing its audit entry, notifying the integration, and recording
// analytics.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trailkeeper/trailkeeper/internal/analytics"
	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/auditlog"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/telemetry"
)

// ErrInvalidStatus is returned when an installation is moved to a status other than installed
var ErrInvalidStatus = errors.New("invalid installation status")

// InstallationStore persists installation changes
type InstallationStore interface {
	SoftDeleteInstallation(ctx context.Context, id string, at time.Time) error
	UpdateInstallationStatus(ctx context.Context, id string, status models.InstallationStatus) error
}

// OrganizationGetter loads the organization an installation belongs to
type OrganizationGetter interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
}

// AuditWriter writes audit entries on behalf of a request inside the caller's transaction
type AuditWriter interface {
	CreateAuditEntryTx(ctx context.Context, s audit.Stores, req *audit.Request, org *models.Organization, targetObject string, event int, data map[string]interface{}) (*models.AuditLogEntry, error)
	Publish(ctx context.Context, entry *models.AuditLogEntry)
}

// InstallationTx is what an uninstall writes through inside one transaction
type InstallationTx struct {
	Installs InstallationStore
	Audit    audit.Stores
}

// Transactor runs fn inside one database transaction, committing when fn returns nil
type Transactor interface {
	RunInTx(ctx context.Context, fn func(InstallationTx) error) error
}

type repositoryTransactor struct {
	txm *repositories.TxManager
}

// NewRepositoryTransactor runs uninstalls in transactions of txm
func NewRepositoryTransactor(txm *repositories.TxManager) Transactor {
	return repositoryTransactor{txm: txm}
}

func (t repositoryTransactor) RunInTx(ctx context.Context, fn func(InstallationTx) error) error {
	return t.txm.RunInTx(ctx, func(tx *repositories.Tx) error {
		return fn(InstallationTx{Installs: tx.Installations, Audit: audit.StoresFromTx(tx)})
	})
}

// InstallationService implements uninstalling and status updates of integration installations
type InstallationService struct {
	installs  InstallationStore
	tx        Transactor
	orgs      OrganizationGetter
	audit     AuditWriter
	notifier  InstallationNotifier
	analytics analytics.Recorder
	now       func() time.Time
}

// NewInstallationService creates a new InstallationService
func NewInstallationService(installs InstallationStore, tx Transactor, orgs OrganizationGetter, auditWriter AuditWriter, notifier InstallationNotifier, recorder analytics.Recorder) *InstallationService {
	if recorder == nil {
		recorder = analytics.Nop{}
	}
	return &InstallationService{
		installs:  installs,
		tx:        tx,
		orgs:      orgs,
		audit:     auditWriter,
		notifier:  notifier,
		analytics: recorder,
		now:       time.Now,
	}
}

// Uninstall removes an installation on behalf of req: soft delete, SENTRY_APP_UNINSTALL audit
// entry, integration notification, and the sentry_app.uninstalled analytics event.
// The soft delete and the entry commit together; a failed notification is logged and does not
// undo the uninstall.
func (s *InstallationService) Uninstall(ctx context.Context, req *audit.Request, install *models.SentryAppInstallation) error {
	org, err := s.orgs.GetByID(ctx, install.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to load organization: %w", err)
	}

	var entry *models.AuditLogEntry
	err = s.tx.RunInTx(ctx, func(tx InstallationTx) error {
		if err := tx.Installs.SoftDeleteInstallation(ctx, install.ID, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to delete installation: %w", err)
		}
		var err error
		entry, err = s.audit.CreateAuditEntryTx(ctx, tx.Audit, req, org, install.ID,
			auditlog.Default.MustGetEventID("SENTRY_APP_UNINSTALL"),
			map[string]interface{}{"sentry_app": install.AppSlug})
		return err
	})
	if err != nil {
		return err
	}
	s.audit.Publish(ctx, entry)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, install, req.User, InstallationActionDeleted); err != nil {
			slog.Warn("installation notification failed", "installation", install.UUID, "error", err)
		}
	}

	attrs := analytics.Attrs{
		"organization_id": install.OrganizationID,
		"sentry_app":      install.AppSlug,
	}
	if req.User != nil {
		attrs["user_id"] = req.User.ID
	}
	s.analytics.Record(ctx, "sentry_app.uninstalled", attrs)
	telemetry.InstallationChangesTotal.WithLabelValues(InstallationActionDeleted).Inc()
	return nil
}

// UpdateStatus moves a pending installation to installed. Any other target status returns
// ErrInvalidStatus.
func (s *InstallationService) UpdateStatus(ctx context.Context, install *models.SentryAppInstallation, status string) error {
	parsed, ok := models.ParseInstallationStatus(status)
	if !ok || parsed != models.InstallationStatusInstalled {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.installs.UpdateInstallationStatus(ctx, install.ID, parsed); err != nil {
		return fmt.Errorf("failed to update installation: %w", err)
	}
	install.Status = parsed

	s.analytics.Record(ctx, "sentry_app_installation.updated", analytics.Attrs{
		"sentry_app_installation_id": install.ID,
		"sentry_app_id":              install.SentryAppID,
		"organization_id":            install.OrganizationID,
	})
	telemetry.InstallationChangesTotal.WithLabelValues(InstallationActionUpdated).Inc()
	return nil
}
