package repositories

import (
	"context"
	"database/sql"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db DBTX
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetBySlug retrieves a project of orgID by slug; nil when it does not exist
func (r *ProjectRepository) GetBySlug(ctx context.Context, orgID, slug string) (*models.Project, error) {
	p := &models.Project{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, slug, name, platform, public, status, date_added
		FROM projects
		WHERE organization_id = $1 AND slug = $2
	`, orgID, slug).Scan(&p.ID, &p.OrganizationID, &p.Slug, &p.Name, &p.Platform, &p.Public, &p.Status, &p.DateAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update saves the editable settings of p
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET slug = $2, name = $3, platform = $4, public = $5 WHERE id = $1
	`, p.ID, p.Slug, p.Name, p.Platform, p.Public)
	return err
}

// Delete removes a project. Its tombstone is written by the audit writer.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}
