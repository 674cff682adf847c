package service

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/period"
)

type progressRepository interface {
	GetWeek(ctx context.Context, weekKey string) (map[string]models.WeeklyRecord, error)
	GetWeeks(ctx context.Context, weekKeys []string) (map[string]map[string]models.WeeklyRecord, error)
	UpsertWeekly(ctx context.Context, rec *models.WeeklyRecord) error
	GetMonth(ctx context.Context, monthKey string) (map[string]models.MonthlyRecord, error)
	UpsertMonthly(ctx context.Context, rec *models.MonthlyRecord) error
	MonthlyOverview(ctx context.Context, monthKey string) ([]models.MonthlyOverviewRow, error)
	MonthlyCounts(ctx context.Context, monthKey string) (paid, survey int, err error)
	WeeklyDoneCount(ctx context.Context, weekKey string) (int, error)
}

type studentLister interface {
	ListAll(ctx context.Context) ([]models.StudentDetail, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type payloadCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// WeeklyFieldRequest updates one checklist field for one student. An empty
// date clears the field; the boolean is always derived from the date, never
// taken from the client.
type WeeklyFieldRequest struct {
	StudentID string `json:"studentId" validate:"required,uuid4"`
	Field     string `json:"field" validate:"required,oneof=dm lesson"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// MonthlyCheckRequest updates a student's payment state for one month. Paid
// is derived from LastPaid being set. Survey stays untouched when nil.
type MonthlyCheckRequest struct {
	StudentID string `json:"studentId" validate:"required,uuid4"`
	LastPaid  string `json:"lastPaid" validate:"omitempty,datetime=2006-01-02"`
	Survey    *bool  `json:"survey"`
}

// WeeklyRow joins a student with their checklist state for one week.
type WeeklyRow struct {
	StudentID      string  `json:"studentId"`
	Name           string  `json:"name"`
	MemberNumber   string  `json:"memberNumber"`
	InstructorName *string `json:"instructorName"`
	DM             bool    `json:"dm"`
	DMDate         string  `json:"dmDate"`
	Lesson         bool    `json:"lesson"`
	LessonDate     string  `json:"lessonDate"`
}

// WeekView is the weekly checklist for every student.
type WeekView struct {
	WeekKey           string      `json:"weekKey"`
	CompletionPercent int         `json:"completionPercent"`
	Rows              []WeeklyRow `json:"rows"`
}

// CalendarWeek is one week's slice of the month calendar.
type CalendarWeek struct {
	WeekKey string      `json:"weekKey"`
	Rows    []WeeklyRow `json:"rows"`
}

// CalendarView lays out every ISO week overlapping a month.
type CalendarView struct {
	MonthKey string         `json:"monthKey"`
	Weeks    []CalendarWeek `json:"weeks"`
}

// MonthView is the monthly overview for every student.
type MonthView struct {
	MonthKey string                      `json:"monthKey"`
	Rows     []models.MonthlyOverviewRow `json:"rows"`
}

// ProgressService serves the weekly and monthly ledgers. The monthly
// overview is cached; every ledger write invalidates the affected month.
type ProgressService struct {
	progress    progressRepository
	students    studentLister
	cache       payloadCache
	overviewTTL time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProgressService constructs a ProgressService. cache may be nil.
func NewProgressService(progress progressRepository, students studentLister, cache payloadCache, overviewTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if overviewTTL <= 0 {
		overviewTTL = 10 * time.Minute
	}
	return &ProgressService{
		progress:    progress,
		students:    students,
		cache:       cache,
		overviewTTL: overviewTTL,
		validator:   validate,
		logger:      logger,
	}
}

const monthlyOverviewCachePrefix = "monthly:overview:"

// GetWeek returns the checklist of one ISO week for all students. Students
// without a stored record appear with empty fields.
func (s *ProgressService) GetWeek(ctx context.Context, weekKey string) (*WeekView, error) {
	if !period.IsWeekKey(weekKey) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid week key, expected YYYY-Www")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	records, err := s.progress.GetWeek(ctx, weekKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly checks")
	}

	rows := buildWeeklyRows(students, records)
	return &WeekView{
		WeekKey:           weekKey,
		CompletionPercent: completionPercent(rows),
		Rows:              rows,
	}, nil
}

// UpsertWeeklyField writes one checklist field, preserving the other field
// of the same record. Repeating the same call is a no-op beyond updated_at.
func (s *ProgressService) UpsertWeeklyField(ctx context.Context, weekKey string, req WeeklyFieldRequest) (*WeekView, error) {
	if !period.IsWeekKey(weekKey) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid week key, expected YYYY-Www")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly check payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	records, err := s.progress.GetWeek(ctx, weekKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly checks")
	}
	rec := records[req.StudentID]
	rec.WeekKey = weekKey
	rec.StudentID = req.StudentID

	done := req.Date != ""
	switch req.Field {
	case models.WeeklyFieldDM:
		rec.DM = done
		rec.DMDate = req.Date
	case models.WeeklyFieldLesson:
		rec.Lesson = done
		rec.LessonDate = req.Date
	}

	if err := s.progress.UpsertWeekly(ctx, &rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save weekly check")
	}
	return s.GetWeek(ctx, weekKey)
}

// Calendar returns the weekly checklists of every ISO week overlapping the
// month, including boundary weeks shared with the neighbouring month.
func (s *ProgressService) Calendar(ctx context.Context, monthKey string) (*CalendarView, error) {
	if !period.IsMonthKey(monthKey) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month key, expected YYYY-MM")
	}
	weekKeys, err := period.WeekKeysForMonth(monthKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month key")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	byWeek, err := s.progress.GetWeeks(ctx, weekKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly checks")
	}

	weeks := make([]CalendarWeek, 0, len(weekKeys))
	for _, weekKey := range weekKeys {
		weeks = append(weeks, CalendarWeek{
			WeekKey: weekKey,
			Rows:    buildWeeklyRows(students, byWeek[weekKey]),
		})
	}
	return &CalendarView{MonthKey: monthKey, Weeks: weeks}, nil
}

// GetMonth returns the monthly overview, served from cache when possible.
func (s *ProgressService) GetMonth(ctx context.Context, monthKey string) (*MonthView, error) {
	if !period.IsMonthKey(monthKey) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month key, expected YYYY-MM")
	}

	cacheKey := monthlyOverviewCachePrefix + monthKey
	if s.cache != nil {
		var cached MonthView
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := s.progress.MonthlyOverview(ctx, monthKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly overview")
	}
	view := &MonthView{MonthKey: monthKey, Rows: rows}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, view, s.overviewTTL); err != nil {
			s.logger.Sugar().Warnw("monthly overview cache write failed", "month_key", monthKey, "error", err)
		}
	}
	return view, nil
}

// UpsertMonthly writes a student's payment state for the month. The paid
// flag is derived from the last-paid date; clients cannot set it directly.
func (s *ProgressService) UpsertMonthly(ctx context.Context, monthKey string, req MonthlyCheckRequest) (*MonthView, error) {
	if !period.IsMonthKey(monthKey) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month key, expected YYYY-MM")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid monthly check payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	existing, err := s.progress.GetMonth(ctx, monthKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly checks")
	}
	rec := existing[req.StudentID]
	rec.MonthKey = monthKey
	rec.StudentID = req.StudentID
	rec.LastPaid = req.LastPaid
	rec.Paid = req.LastPaid != ""
	if req.Survey != nil {
		rec.Survey = *req.Survey
	}

	if err := s.progress.UpsertMonthly(ctx, &rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save monthly check")
	}
	s.InvalidateOverview(ctx, monthKey)
	return s.GetMonth(ctx, monthKey)
}

// InvalidateOverview drops the cached overview for one month. Every write
// that can change the overview calls this, including survey submissions.
func (s *ProgressService) InvalidateOverview(ctx context.Context, monthKey string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, monthlyOverviewCachePrefix+monthKey); err != nil {
		s.logger.Sugar().Warnw("monthly overview cache invalidation failed", "month_key", monthKey, "error", err)
	}
}

func buildWeeklyRows(students []models.StudentDetail, records map[string]models.WeeklyRecord) []WeeklyRow {
	rows := make([]WeeklyRow, 0, len(students))
	for _, student := range students {
		rec := records[student.ID]
		rows = append(rows, WeeklyRow{
			StudentID:      student.ID,
			Name:           student.Name,
			MemberNumber:   student.MemberNumber,
			InstructorName: student.InstructorName,
			DM:             rec.DM,
			DMDate:         rec.DMDate,
			Lesson:         rec.Lesson,
			LessonDate:     rec.LessonDate,
		})
	}
	return rows
}

// completionPercent is done fields over total fields, rounded to the
// nearest integer. No students means zero, not a division error.
func completionPercent(rows []WeeklyRow) int {
	if len(rows) == 0 {
		return 0
	}
	done := 0
	for _, row := range rows {
		if row.DM {
			done++
		}
		if row.Lesson {
			done++
		}
	}
	total := len(rows) * models.WeeklyFieldCount
	return int(math.Round(float64(done) / float64(total) * 100))
}
