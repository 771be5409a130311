// api_key_repository.go implements APIKeyRepository: organization API keys looked up by their
// display prefix during authentication.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `id, organization_id, label, key_hash, key_prefix, scopes, allowed_origins, status, date_added`

// CreateAPIKey inserts key, assigning its ID and DateAdded
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	key.ID = uuid.New().String()
	key.DateAdded = time.Now().UTC()

	scopes := key.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		key.ID, key.OrganizationID, key.Label, key.KeyHash, key.KeyPrefix, scopesJSON,
		key.AllowedOrigins, key.Status, key.DateAdded)
	return err
}

// GetAPIKeysByPrefix returns the active keys sharing keyPrefix; the caller verifies the hash
func (r *APIKeyRepository) GetAPIKeysByPrefix(ctx context.Context, keyPrefix string) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND status = 0`, keyPrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetAPIKeyByID retrieves a key; nil when it does not exist
func (r *APIKeyRepository) GetAPIKeyByID(ctx context.Context, keyID string) (*models.APIKey, error) {
	key, err := scanAPIKey(r.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, keyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	key := &models.APIKey{}
	var scopesJSON []byte
	err := row.Scan(&key.ID, &key.OrganizationID, &key.Label, &key.KeyHash, &key.KeyPrefix,
		&scopesJSON, &key.AllowedOrigins, &key.Status, &key.DateAdded)
	if err != nil {
		return nil, err
	}
	if len(scopesJSON) > 0 {
		if err := json.Unmarshal(scopesJSON, &key.Scopes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal api key scopes: %w", err)
		}
	}
	return key, nil
}
