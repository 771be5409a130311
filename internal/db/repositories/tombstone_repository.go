// tombstone_repository.go implements TombstoneRepository: the deleted_* tables that keep an
// organization's, team's or project's identifying attributes after the live row is gone.
package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// TombstoneRepository persists deletion tombstones
type TombstoneRepository struct {
	db sqlx.ExtContext
}

// NewTombstoneRepository creates a new TombstoneRepository
func NewTombstoneRepository(db *sqlx.DB) *TombstoneRepository {
	return &TombstoneRepository{db: db}
}

const deletedEntryColumns = `id, actor_label, actor_id, actor_key_id, ip_address, date_deleted, date_created, reason`
const deletedEntryValues = `:id, :actor_label, :actor_id, :actor_key_id, :ip_address, :date_deleted, :date_created, :reason`

// CreateDeletedOrganization inserts an organization tombstone
func (r *TombstoneRepository) CreateDeletedOrganization(ctx context.Context, t *models.DeletedOrganization) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO deleted_organizations (`+deletedEntryColumns+`, name, slug)
		VALUES (`+deletedEntryValues+`, :name, :slug)
	`, t)
	return err
}

// CreateDeletedTeam inserts a team tombstone
func (r *TombstoneRepository) CreateDeletedTeam(ctx context.Context, t *models.DeletedTeam) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO deleted_teams (`+deletedEntryColumns+`, name, slug, organization_id, organization_name, organization_slug)
		VALUES (`+deletedEntryValues+`, :name, :slug, :organization_id, :organization_name, :organization_slug)
	`, t)
	return err
}

// CreateDeletedProject inserts a project tombstone
func (r *TombstoneRepository) CreateDeletedProject(ctx context.Context, t *models.DeletedProject) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO deleted_projects (`+deletedEntryColumns+`, name, slug, platform, organization_id, organization_name, organization_slug)
		VALUES (`+deletedEntryValues+`, :name, :slug, :platform, :organization_id, :organization_name, :organization_slug)
	`, t)
	return err
}

// GetDeletedOrganizationBySlug returns the most recent tombstone for slug; nil when none exists
func (r *TombstoneRepository) GetDeletedOrganizationBySlug(ctx context.Context, slug string) (*models.DeletedOrganization, error) {
	var t models.DeletedOrganization
	err := sqlx.GetContext(ctx, r.db, &t, `
		SELECT `+deletedEntryColumns+`, name, slug
		FROM deleted_organizations
		WHERE slug = $1
		ORDER BY date_deleted DESC
		LIMIT 1
	`, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListDeletedProjects returns the project tombstones of an organization, newest first
func (r *TombstoneRepository) ListDeletedProjects(ctx context.Context, orgID string) ([]*models.DeletedProject, error) {
	projects := make([]*models.DeletedProject, 0)
	err := sqlx.SelectContext(ctx, r.db, &projects, `
		SELECT `+deletedEntryColumns+`, name, slug, platform, organization_id, organization_name, organization_slug
		FROM deleted_projects
		WHERE organization_id = $1
		ORDER BY date_deleted DESC
	`, orgID)
	if err != nil {
		return nil, err
	}
	return projects, nil
}
