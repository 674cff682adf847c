package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/class1/class1-admin-api/internal/models"
)

// ProgressRepository persists the weekly and monthly check ledgers. Both
// tables are keyed (periodKey, studentID); every write is an upsert so the
// key uniqueness invariant holds regardless of call ordering.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetWeek returns all weekly records for one week keyed by student ID.
// Students without a record are simply absent from the map.
func (r *ProgressRepository) GetWeek(ctx context.Context, weekKey string) (map[string]models.WeeklyRecord, error) {
	query := r.db.Rebind(`SELECT week_key, student_id, dm, dm_date, lesson, lesson_date, created_at, updated_at
        FROM weekly_checks WHERE week_key = ?`)
	var records []models.WeeklyRecord
	if err := r.db.SelectContext(ctx, &records, query, weekKey); err != nil {
		return nil, fmt.Errorf("get week %s: %w", weekKey, err)
	}
	byStudent := make(map[string]models.WeeklyRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}
	return byStudent, nil
}

// GetWeeks returns weekly records for a set of week keys, for the calendar
// month view. Result is keyed weekKey then studentID.
func (r *ProgressRepository) GetWeeks(ctx context.Context, weekKeys []string) (map[string]map[string]models.WeeklyRecord, error) {
	result := make(map[string]map[string]models.WeeklyRecord, len(weekKeys))
	if len(weekKeys) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT week_key, student_id, dm, dm_date, lesson, lesson_date, created_at, updated_at
        FROM weekly_checks WHERE week_key IN (?)`, weekKeys)
	if err != nil {
		return nil, fmt.Errorf("get weeks: %w", err)
	}
	var records []models.WeeklyRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get weeks: %w", err)
	}
	for _, rec := range records {
		week := result[rec.WeekKey]
		if week == nil {
			week = make(map[string]models.WeeklyRecord)
			result[rec.WeekKey] = week
		}
		week[rec.StudentID] = rec
	}
	return result, nil
}

// UpsertWeekly writes one weekly record, replacing any existing row for the
// same (weekKey, studentID).
func (r *ProgressRepository) UpsertWeekly(ctx context.Context, rec *models.WeeklyRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	const query = `INSERT INTO weekly_checks (week_key, student_id, dm, dm_date, lesson, lesson_date, created_at, updated_at)
        VALUES (:week_key, :student_id, :dm, :dm_date, :lesson, :lesson_date, :created_at, :updated_at)
        ON CONFLICT (week_key, student_id) DO UPDATE SET
            dm = excluded.dm,
            dm_date = excluded.dm_date,
            lesson = excluded.lesson,
            lesson_date = excluded.lesson_date,
            updated_at = excluded.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("upsert weekly %s/%s: %w", rec.WeekKey, rec.StudentID, err)
	}
	return nil
}

// GetMonth returns all monthly records for one month keyed by student ID.
func (r *ProgressRepository) GetMonth(ctx context.Context, monthKey string) (map[string]models.MonthlyRecord, error) {
	query := r.db.Rebind(`SELECT month_key, student_id, paid, last_paid, survey, created_at, updated_at
        FROM monthly_checks WHERE month_key = ?`)
	var records []models.MonthlyRecord
	if err := r.db.SelectContext(ctx, &records, query, monthKey); err != nil {
		return nil, fmt.Errorf("get month %s: %w", monthKey, err)
	}
	byStudent := make(map[string]models.MonthlyRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}
	return byStudent, nil
}

// UpsertMonthly writes one monthly record, replacing any existing row for
// the same (monthKey, studentID).
func (r *ProgressRepository) UpsertMonthly(ctx context.Context, rec *models.MonthlyRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	const query = `INSERT INTO monthly_checks (month_key, student_id, paid, last_paid, survey, created_at, updated_at)
        VALUES (:month_key, :student_id, :paid, :last_paid, :survey, :created_at, :updated_at)
        ON CONFLICT (month_key, student_id) DO UPDATE SET
            paid = excluded.paid,
            last_paid = excluded.last_paid,
            survey = excluded.survey,
            updated_at = excluded.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("upsert monthly %s/%s: %w", rec.MonthKey, rec.StudentID, err)
	}
	return nil
}

// MonthlyOverview joins every student with their monthly check for the
// month. Students without a record come back with zero-valued flags.
func (r *ProgressRepository) MonthlyOverview(ctx context.Context, monthKey string) ([]models.MonthlyOverviewRow, error) {
	query := r.db.Rebind(`SELECT s.id, s.name, s.member_number, s.email, s.note, s.instructor_id,
            i.name AS instructor_name,
            COALESCE(m.paid, FALSE) AS paid,
            COALESCE(m.last_paid, '') AS last_paid,
            COALESCE(m.survey, FALSE) AS survey
        FROM students s
        LEFT JOIN instructors i ON i.id = s.instructor_id
        LEFT JOIN monthly_checks m ON m.student_id = s.id AND m.month_key = ?
        ORDER BY s.member_number ASC`)
	rows := []models.MonthlyOverviewRow{}
	if err := r.db.SelectContext(ctx, &rows, query, monthKey); err != nil {
		return nil, fmt.Errorf("monthly overview %s: %w", monthKey, err)
	}
	return rows, nil
}

// MonthlyCounts returns how many students are marked paid and surveyed for
// the month, for the dashboard.
func (r *ProgressRepository) MonthlyCounts(ctx context.Context, monthKey string) (paid, survey int, err error) {
	query := r.db.Rebind(`SELECT
            COALESCE(SUM(CASE WHEN paid THEN 1 ELSE 0 END), 0) AS paid,
            COALESCE(SUM(CASE WHEN survey THEN 1 ELSE 0 END), 0) AS survey
        FROM monthly_checks WHERE month_key = ?`)
	var counts struct {
		Paid   int `db:"paid"`
		Survey int `db:"survey"`
	}
	if err := r.db.GetContext(ctx, &counts, query, monthKey); err != nil {
		return 0, 0, fmt.Errorf("monthly counts %s: %w", monthKey, err)
	}
	return counts.Paid, counts.Survey, nil
}

// WeeklyDoneCount returns the number of completed checklist fields across
// all records of a week. Used for the dashboard completion percentage.
func (r *ProgressRepository) WeeklyDoneCount(ctx context.Context, weekKey string) (int, error) {
	query := r.db.Rebind(strings.TrimSpace(`
        SELECT COALESCE(SUM(CASE WHEN dm THEN 1 ELSE 0 END + CASE WHEN lesson THEN 1 ELSE 0 END), 0)
        FROM weekly_checks WHERE week_key = ?`))
	var done int
	if err := r.db.GetContext(ctx, &done, query, weekKey); err != nil {
		return 0, fmt.Errorf("weekly done count %s: %w", weekKey, err)
	}
	return done, nil
}
