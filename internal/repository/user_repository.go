package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/class1/class1-admin-api/internal/models"
)

// UserRepository manages staff accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, role, created_at, updated_at`

// FindByUsername fetches a user by login name. Returns nil when absent.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM users WHERE username = ?", userColumns))
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID fetches a user by ID. Returns nil when absent.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM users WHERE id = ?", userColumns))
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Create inserts a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
        VALUES (:id, :username, :password_hash, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := r.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Count returns the number of accounts, used to decide whether the
// bootstrap admin needs seeding.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}
