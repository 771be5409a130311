// sentry_app_repository.go implements SentryAppRepository: integration apps, their installations
// into organizations, and the API tokens issued to installations.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// SentryAppRepository handles integration app database operations
type SentryAppRepository struct {
	db sqlx.ExtContext
}

// NewSentryAppRepository creates a new SentryAppRepository
func NewSentryAppRepository(db *sqlx.DB) *SentryAppRepository {
	return &SentryAppRepository{db: db}
}

type sentryAppRow struct {
	models.SentryApp
	ScopesJSON []byte `db:"scopes"`
}

// GetApp retrieves an app by ID; nil when it does not exist
func (r *SentryAppRepository) GetApp(ctx context.Context, id string) (*models.SentryApp, error) {
	var row sentryAppRow
	err := sqlx.GetContext(ctx, r.db, &row, `
		SELECT id, uuid, slug, name, organization_id, published, proxy_user_id, scopes
		FROM sentry_apps
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	app := row.SentryApp
	if len(row.ScopesJSON) > 0 {
		if err := json.Unmarshal(row.ScopesJSON, &app.Scopes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal app scopes: %w", err)
		}
	}
	return &app, nil
}

// GetInstallationByUUID retrieves a live installation with its app and organization slugs; nil
// when it does not exist or was uninstalled
func (r *SentryAppRepository) GetInstallationByUUID(ctx context.Context, uuid string) (*models.SentryAppInstallation, error) {
	var inst models.SentryAppInstallation
	err := sqlx.GetContext(ctx, r.db, &inst, `
		SELECT i.id, i.uuid, i.sentry_app_id, i.organization_id, i.status, i.grant_code,
		       i.date_added, i.date_deleted,
		       a.uuid AS app_uuid, a.slug AS app_slug, o.slug AS organization_slug
		FROM sentry_app_installations i
		JOIN sentry_apps a ON a.id = i.sentry_app_id
		JOIN organizations o ON o.id = i.organization_id
		WHERE i.uuid = $1 AND i.date_deleted IS NULL
	`, uuid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// SoftDeleteInstallation marks an installation as uninstalled at the given time
func (r *SentryAppRepository) SoftDeleteInstallation(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sentry_app_installations SET date_deleted = $2 WHERE id = $1 AND date_deleted IS NULL`, id, at)
	return err
}

// UpdateInstallationStatus sets an installation's status
func (r *SentryAppRepository) UpdateInstallationStatus(ctx context.Context, id string, status models.InstallationStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sentry_app_installations SET status = $2 WHERE id = $1`, id, status)
	return err
}

// GetAPIToken retrieves a token with the app of the installation it was issued to; nil when the
// token does not exist
func (r *SentryAppRepository) GetAPIToken(ctx context.Context, token string) (*models.APIToken, error) {
	var t models.APIToken
	err := sqlx.GetContext(ctx, r.db, &t, `
		SELECT t.id, t.token, t.user_id, t.sentry_app_installation_id,
		       i.sentry_app_id AS sentry_app_id, t.expires_at, t.date_added
		FROM api_tokens t
		LEFT JOIN sentry_app_installations i ON i.id = t.sentry_app_installation_id
		WHERE t.token = $1
	`, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
