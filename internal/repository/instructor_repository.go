package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/class1/class1-admin-api/internal/models"
)

// InstructorRepository manages persistence for instructors.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns all instructors ordered by creation time.
func (r *InstructorRepository) List(ctx context.Context) ([]models.Instructor, error) {
	const query = `SELECT id, name, created_at FROM instructors ORDER BY created_at ASC, id ASC`
	instructors := []models.Instructor{}
	if err := r.db.SelectContext(ctx, &instructors, query); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// FindByID fetches one instructor. Returns nil when absent.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	query := r.db.Rebind(`SELECT id, name, created_at FROM instructors WHERE id = ?`)
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find instructor: %w", err)
	}
	return &instructor, nil
}

// Create inserts a new instructor.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO instructors (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// Update renames an instructor. Returns the number of rows touched so the
// caller can distinguish a missing record.
func (r *InstructorRepository) Update(ctx context.Context, id, name string) (int64, error) {
	query := r.db.Rebind(`UPDATE instructors SET name = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return 0, fmt.Errorf("update instructor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update instructor: %w", err)
	}
	return affected, nil
}

// Delete removes an instructor and clears the reference on any student
// assigned to them, in one transaction. Students are kept.
func (r *InstructorRepository) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete instructor: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	unassign := tx.Rebind(`UPDATE students SET instructor_id = NULL WHERE instructor_id = ?`)
	if _, err := tx.ExecContext(ctx, unassign, id); err != nil {
		return 0, fmt.Errorf("unassign students: %w", err)
	}

	del := tx.Rebind(`DELETE FROM instructors WHERE id = ?`)
	res, err := tx.ExecContext(ctx, del, id)
	if err != nil {
		return 0, fmt.Errorf("delete instructor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete instructor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete instructor: %w", err)
	}
	return affected, nil
}

// Count returns the number of instructors.
func (r *InstructorRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM instructors`); err != nil {
		return 0, fmt.Errorf("count instructors: %w", err)
	}
	return total, nil
}
