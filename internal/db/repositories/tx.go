package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx holds the repositories bound to one database transaction
type Tx struct {
	Organizations *OrganizationRepository
	Teams         *TeamRepository
	Projects      *ProjectRepository
	Audit         *AuditRepository
	Tombstones    *TombstoneRepository
	Installations *SentryAppRepository
}

func newTx(tx *sqlx.Tx) *Tx {
	return &Tx{
		Organizations: &OrganizationRepository{db: tx},
		Teams:         &TeamRepository{db: tx},
		Projects:      &ProjectRepository{db: tx},
		Audit:         &AuditRepository{db: tx},
		Tombstones:    &TombstoneRepository{db: tx},
		Installations: &SentryAppRepository{db: tx},
	}
}

// TxManager runs units of work in database transactions
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager creates a new TxManager
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx calls fn with repositories bound to a new transaction. The transaction commits when fn
// returns nil and is rolled back otherwise; fn's error is returned unwrapped.
func (m *TxManager) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
