package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts user, assigning its ID and DateJoined
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.DateJoined = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, name, is_superuser, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Username, user.Email, user.Name, user.IsSuperuser, user.DateJoined)
	return err
}

// GetUserByID retrieves a user; nil when it does not exist
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, name, is_superuser, date_joined
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.IsSuperuser, &u.DateJoined)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
