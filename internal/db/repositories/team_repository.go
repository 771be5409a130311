package repositories

import (
	"context"
	"database/sql"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db DBTX
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// GetBySlug retrieves a team of orgID by slug; nil when it does not exist
func (r *TeamRepository) GetBySlug(ctx context.Context, orgID, slug string) (*models.Team, error) {
	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, slug, name, status, date_added
		FROM teams
		WHERE organization_id = $1 AND slug = $2
	`, orgID, slug).Scan(&t.ID, &t.OrganizationID, &t.Slug, &t.Name, &t.Status, &t.DateAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a team. Its tombstone is written by the audit writer.
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	return err
}
