// organization_repository.go implements OrganizationRepository: organization lookup, status and
// settings updates, and membership role lookups used for per-organization scope checks.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	db DBTX
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

const organizationColumns = `id, slug, name, status, default_role, date_added`

func scanOrganization(row rowScanner) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(&org.ID, &org.Slug, &org.Name, &org.Status, &org.DefaultRole, &org.DateAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// GetBySlug retrieves an organization by slug; nil when it does not exist
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return scanOrganization(r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE slug = $1`, slug))
}

// GetByID retrieves an organization by ID; nil when it does not exist
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return scanOrganization(r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id))
}

// Create inserts org, assigning its ID and DateAdded
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	org.ID = uuid.New().String()
	org.DateAdded = time.Now().UTC()
	if org.DefaultRole == "" {
		org.DefaultRole = "member"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (`+organizationColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Slug, org.Name, org.Status, org.DefaultRole, org.DateAdded)
	return err
}

// Update saves the editable settings of org
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET slug = $2, name = $3, default_role = $4 WHERE id = $1`,
		org.ID, org.Slug, org.Name, org.DefaultRole)
	return err
}

// UpdateStatus moves an organization from status from to status to. It reports false when the
// organization was no longer in status from, e.g. because a concurrent request moved it first.
func (r *OrganizationRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrganizationStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetMember returns the membership of userID in orgID; nil when the user is not a member
func (r *OrganizationRepository) GetMember(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error) {
	m := &models.OrganizationMember{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, email, role, date_added
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`, orgID, userID).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Email, &m.Role, &m.DateAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// AddMember inserts a membership, assigning its ID and DateAdded
func (r *OrganizationRepository) AddMember(ctx context.Context, m *models.OrganizationMember) error {
	m.ID = uuid.New().String()
	m.DateAdded = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organization_members (id, organization_id, user_id, email, role, date_added)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.OrganizationID, m.UserID, m.Email, m.Role, m.DateAdded)
	return err
}
