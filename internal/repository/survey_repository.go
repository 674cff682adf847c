package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/class1/class1-admin-api/internal/models"
)

// SurveyFilter narrows survey listings. MonthKey filters by submission
// month, Search matches member number or student name.
type SurveyFilter struct {
	MonthKey string
	Search   string
	Page     int
	PageSize int
}

// SurveyRepository persists questionnaire responses. The table is
// append-only; responses are never edited after submission.
type SurveyRepository struct {
	db *sqlx.DB
}

// NewSurveyRepository constructs a SurveyRepository.
func NewSurveyRepository(db *sqlx.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// Insert stores a new survey response and flips the survey flag on the
// student's monthly record for the submission month, in one transaction.
// Either both rows land or neither does, so a stored response always has
// its flag. The flag upsert only touches survey and updated_at; payment
// fields on an existing record survive.
func (r *SurveyRepository) Insert(ctx context.Context, survey *models.Survey, monthKey, studentID string) error {
	if survey.ID == "" {
		survey.ID = uuid.NewString()
	}
	if survey.SubmittedAt.IsZero() {
		survey.SubmittedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `INSERT INTO surveys (id, member_number, student_name, satisfaction, nps_score,
        instructor_feedback, lesson_feedback, learning_goals, other_feedback, submitted_at)
        VALUES (:id, :member_number, :student_name, :satisfaction, :nps_score,
        :instructor_feedback, :lesson_feedback, :learning_goals, :other_feedback, :submitted_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, survey); err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}

	now := time.Now().UTC()
	flagQuery := tx.Rebind(`INSERT INTO monthly_checks (month_key, student_id, paid, last_paid, survey, created_at, updated_at)
        VALUES (?, ?, FALSE, '', TRUE, ?, ?)
        ON CONFLICT (month_key, student_id) DO UPDATE SET
            survey = TRUE,
            updated_at = excluded.updated_at`)
	if _, err := tx.ExecContext(ctx, flagQuery, monthKey, studentID, now, now); err != nil {
		return fmt.Errorf("flag survey month %s/%s: %w", monthKey, studentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

const surveyColumns = `id, member_number, student_name, satisfaction, nps_score,
        instructor_feedback, lesson_feedback, learning_goals, other_feedback, submitted_at`

// List returns surveys newest first, optionally filtered by month and a
// free-text search over member number and student name.
func (r *SurveyRepository) List(ctx context.Context, filter SurveyFilter) ([]models.Survey, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.MonthKey != "" {
		// submitted_at is stored as an ISO timestamp in both engines, so
		// the month prefix comparison works without date functions.
		conditions = append(conditions, "strftime('%Y-%m', submitted_at) = ?")
		if r.db.DriverName() == "postgres" {
			conditions[len(conditions)-1] = "to_char(submitted_at, 'YYYY-MM') = ?"
		}
		args = append(args, filter.MonthKey)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(member_number LIKE ? OR LOWER(student_name) LIKE ?)")
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM surveys WHERE %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d",
		surveyColumns, where, size, offset)
	surveys := []models.Survey{}
	if err := r.db.SelectContext(ctx, &surveys, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list surveys: %w", err)
	}

	var total int
	countQuery := r.db.Rebind("SELECT COUNT(*) FROM surveys WHERE " + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count surveys: %w", err)
	}
	return surveys, total, nil
}

// ListAll returns every survey, optionally restricted to one submission
// month, oldest first. Used by report exports which need the full set.
func (r *SurveyRepository) ListAll(ctx context.Context, monthKey string) ([]models.Survey, error) {
	query := fmt.Sprintf("SELECT %s FROM surveys", surveyColumns)
	args := []interface{}{}
	if monthKey != "" {
		expr := "strftime('%Y-%m', submitted_at)"
		if r.db.DriverName() == "postgres" {
			expr = "to_char(submitted_at, 'YYYY-MM')"
		}
		query += fmt.Sprintf(" WHERE %s = ?", expr)
		args = append(args, monthKey)
	}
	query += " ORDER BY submitted_at ASC"
	surveys := []models.Survey{}
	if err := r.db.SelectContext(ctx, &surveys, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list all surveys: %w", err)
	}
	return surveys, nil
}

// FindByID fetches one survey. Returns nil when absent.
func (r *SurveyRepository) FindByID(ctx context.Context, id string) (*models.Survey, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM surveys WHERE id = ?", surveyColumns))
	var survey models.Survey
	if err := r.db.GetContext(ctx, &survey, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find survey: %w", err)
	}
	return &survey, nil
}

// Months returns the distinct submission months present, newest first, for
// the archive month picker.
func (r *SurveyRepository) Months(ctx context.Context) ([]string, error) {
	expr := "strftime('%Y-%m', submitted_at)"
	if r.db.DriverName() == "postgres" {
		expr = "to_char(submitted_at, 'YYYY-MM')"
	}
	query := fmt.Sprintf("SELECT DISTINCT %s AS month FROM surveys ORDER BY month DESC", expr)
	months := []string{}
	if err := r.db.SelectContext(ctx, &months, query); err != nil {
		return nil, fmt.Errorf("survey months: %w", err)
	}
	return months, nil
}

// Delete removes one survey response.
func (r *SurveyRepository) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM surveys WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete survey: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete survey: %w", err)
	}
	return affected, nil
}

// Count returns the number of stored surveys.
func (r *SurveyRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM surveys`); err != nil {
		return 0, fmt.Errorf("count surveys: %w", err)
	}
	return total, nil
}
