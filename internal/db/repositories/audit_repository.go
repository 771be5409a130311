// audit_repository.go implements AuditRepository: writes audit log entries and lists them per
// organization for the audit log endpoint.
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

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters narrows ListEntries. OrganizationID is required.
type AuditFilters struct {
	OrganizationID string
	Event          *int
	ActorID        *string
	StartDate      *time.Time
	EndDate        *time.Time
}

const auditColumns = `id, organization_id, actor_id, actor_key_id, actor_label, target_object,
	target_user_id, event, ip_address, data, date_added`

// CreateEntry inserts entry. ID and DateAdded are assigned when empty.
func (r *AuditRepository) CreateEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.DateAdded.IsZero() {
		entry.DateAdded = time.Now().UTC()
	}

	data := entry.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit data: %w", err)
	}

	query := `
		INSERT INTO audit_log_entries (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		nullIfEmpty(entry.OrganizationID),
		entry.ActorID,
		entry.ActorKeyID,
		entry.ActorLabel,
		entry.TargetObject,
		entry.TargetUserID,
		entry.Event,
		entry.IPAddress,
		dataJSON,
		entry.DateAdded,
	)
	return err
}

// ListEntries returns a page of an organization's entries, newest first, and the total count
func (r *AuditRepository) ListEntries(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AuditLogEntry, int, error) {
	where := ` WHERE organization_id = $1`
	args := []interface{}{filters.OrganizationID}
	paramIndex := 2

	if filters.Event != nil {
		where += fmt.Sprintf(` AND event = $%d`, paramIndex)
		args = append(args, *filters.Event)
		paramIndex++
	}
	if filters.ActorID != nil {
		where += fmt.Sprintf(` AND actor_id = $%d`, paramIndex)
		args = append(args, *filters.ActorID)
		paramIndex++
	}
	if filters.StartDate != nil {
		where += fmt.Sprintf(` AND date_added >= $%d`, paramIndex)
		args = append(args, *filters.StartDate)
		paramIndex++
	}
	if filters.EndDate != nil {
		where += fmt.Sprintf(` AND date_added <= $%d`, paramIndex)
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + auditColumns + ` FROM audit_log_entries` + where +
		fmt.Sprintf(` ORDER BY date_added DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]*models.AuditLogEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// GetEntry retrieves a single entry by ID; nil when it does not exist
func (r *AuditRepository) GetEntry(ctx context.Context, id string) (*models.AuditLogEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_log_entries WHERE id = $1`, id)
	entry, err := scanAuditEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditEntry(row rowScanner) (*models.AuditLogEntry, error) {
	entry := &models.AuditLogEntry{}
	var orgID sql.NullString
	var dataJSON []byte

	err := row.Scan(
		&entry.ID,
		&orgID,
		&entry.ActorID,
		&entry.ActorKeyID,
		&entry.ActorLabel,
		&entry.TargetObject,
		&entry.TargetUserID,
		&entry.Event,
		&entry.IPAddress,
		&dataJSON,
		&entry.DateAdded,
	)
	if err != nil {
		return nil, err
	}
	entry.OrganizationID = orgID.String

	entry.Data = map[string]interface{}{}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit data: %w", err)
		}
	}
	return entry, nil
}

// nullIfEmpty maps "" to SQL NULL
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
