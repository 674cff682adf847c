package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/period"
)

type studentCounter interface {
	Count(ctx context.Context) (int, error)
}

type instructorCounter interface {
	Count(ctx context.Context) (int, error)
}

type progressCounter interface {
	WeeklyDoneCount(ctx context.Context, weekKey string) (int, error)
	MonthlyCounts(ctx context.Context, monthKey string) (paid, survey int, err error)
}

// DashboardService aggregates the landing-page counters for the current
// ISO week and month. The result is cached briefly; the numbers tolerate
// being a few minutes stale.
type DashboardService struct {
	students    studentCounter
	instructors instructorCounter
	progress    progressCounter
	cache       payloadCache
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs a DashboardService. cache may be nil.
func NewDashboardService(students studentCounter, instructors instructorCounter, progress progressCounter, cache payloadCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		students:    students,
		instructors: instructors,
		progress:    progress,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

const dashboardCacheKey = "dashboard:summary"

// Summary returns the aggregated counters.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	now := s.now()
	weekKey := period.WeekKey(now)
	monthKey := period.MonthKey(now)

	studentCount, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	instructorCount, err := s.instructors.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count instructors")
	}
	doneFields, err := s.progress.WeeklyDoneCount(ctx, weekKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count weekly checks")
	}
	paid, surveyed, err := s.progress.MonthlyCounts(ctx, monthKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count monthly checks")
	}

	percent := 0
	if studentCount > 0 {
		percent = int(math.Round(float64(doneFields) / float64(studentCount*models.WeeklyFieldCount) * 100))
	}

	summary := &models.DashboardSummary{
		Students:              studentCount,
		Instructors:           instructorCount,
		WeekKey:               weekKey,
		WeekCompletionPercent: percent,
		MonthKey:              monthKey,
		PaidCount:             paid,
		SurveyCount:           surveyed,
		GeneratedAt:           now,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("dashboard cache write failed", "error", err)
		}
	}
	return summary, nil
}
