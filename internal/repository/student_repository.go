package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/class1/class1-admin-api/internal/models"
)

// StudentFilter narrows student listings.
type StudentFilter struct {
	InstructorID string
	Search       string
	Page         int
	PageSize     int
}

// StudentRepository manages persistence for students and owns the
// member-number uniqueness guarantee via the UNIQUE constraint.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.name, s.instructor_id, s.member_number, s.email, s.note,
        s.registration_date, s.created_at, s.updated_at, i.name AS instructor_name`

// List returns students with their instructor's name, ordered by member
// number, which matches allocation order.
func (r *StudentRepository) List(ctx context.Context, filter StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN instructors i ON i.id = s.instructor_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.InstructorID != "" {
		conditions = append(conditions, "s.instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(LOWER(s.name) LIKE ? OR s.member_number LIKE ?)")
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.member_number ASC LIMIT %d OFFSET %d",
		studentDetailColumns, base, size, offset)

	students := []models.StudentDetail{}
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := r.db.Rebind("SELECT COUNT(*) " + base)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student with their instructor's name, ordered by
// member number. The weekly and monthly views render the full roster, so
// this query is deliberately unpaged.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s LEFT JOIN instructors i ON i.id = s.instructor_id
        ORDER BY s.member_number ASC`, studentDetailColumns)
	students := []models.StudentDetail{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches one student with instructor name. Returns nil when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := r.db.Rebind(fmt.Sprintf(
		`SELECT %s FROM students s LEFT JOIN instructors i ON i.id = s.instructor_id WHERE s.id = ?`,
		studentDetailColumns))
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &detail, nil
}

// FindByMemberNumber resolves a student by their member number. Returns nil
// when absent.
func (r *StudentRepository) FindByMemberNumber(ctx context.Context, memberNumber string) (*models.Student, error) {
	query := r.db.Rebind(`SELECT id, name, instructor_id, member_number, email, note,
        registration_date, created_at, updated_at FROM students WHERE member_number = ?`)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, memberNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student by member number: %w", err)
	}
	return &student, nil
}

// MaxMemberNumber returns the lexicographically largest assigned member
// number, or "" when no students exist. Lexicographic order equals
// allocation order for the letter+two-digit format.
func (r *StudentRepository) MaxMemberNumber(ctx context.Context) (string, error) {
	var max sql.NullString
	if err := r.db.GetContext(ctx, &max, `SELECT MAX(member_number) FROM students`); err != nil {
		return "", fmt.Errorf("max member number: %w", err)
	}
	return max.String, nil
}

// Create inserts a new student. The UNIQUE constraint on member_number is
// the last line of defense against double allocation; callers retry on
// IsUniqueViolation.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, instructor_id, member_number, email, note, registration_date, created_at, updated_at)
        VALUES (:id, :name, :instructor_id, :member_number, :email, :note, :registration_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies a student's mutable fields. The member number is never
// part of the update.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) (int64, error) {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, instructor_id = :instructor_id, email = :email,
        note = :note, registration_date = :registration_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return 0, fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update student: %w", err)
	}
	return affected, nil
}

// Delete removes a student together with their weekly and monthly ledger
// rows, in one transaction. Surveys stay; they are historical records keyed
// by member number.
func (r *StudentRepository) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM weekly_checks WHERE student_id = ?`,
		`DELETE FROM monthly_checks WHERE student_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return 0, fmt.Errorf("delete student ledgers: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}
	return affected, nil
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// IsUniqueViolation reports whether err is a unique-constraint breach from
// either supported engine.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
