package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/internal/repository"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/membernumber"
	"github.com/class1/class1-admin-api/pkg/period"
)

type surveyRepository interface {
	Insert(ctx context.Context, survey *models.Survey, monthKey, studentID string) error
	List(ctx context.Context, filter repository.SurveyFilter) ([]models.Survey, int, error)
	FindByID(ctx context.Context, id string) (*models.Survey, error)
	Months(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context) (int, error)
}

type memberResolver interface {
	FindByMemberNumber(ctx context.Context, memberNumber string) (*models.Student, error)
}

type overviewInvalidator interface {
	InvalidateOverview(ctx context.Context, monthKey string)
}

// SubmitSurveyRequest is the questionnaire payload from the public form.
// The member number ties the response to a student.
type SubmitSurveyRequest struct {
	MemberNumber       string   `json:"memberNumber" validate:"required"`
	Satisfaction       int      `json:"satisfaction" validate:"required,min=1,max=5"`
	NPSScore           int      `json:"npsScore" validate:"min=0,max=10"`
	InstructorFeedback string   `json:"instructorFeedback" validate:"max=4000"`
	LessonFeedback     string   `json:"lessonFeedback" validate:"max=4000"`
	LearningGoals      []string `json:"learningGoals" validate:"max=20,dive,max=200"`
	OtherFeedback      string   `json:"otherFeedback" validate:"max=4000"`
}

// SurveyService records questionnaire responses and flips the survey flag
// on the student's current-month record.
type SurveyService struct {
	surveys   surveyRepository
	students  memberResolver
	overview  overviewInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSurveyService constructs a SurveyService. overview may be nil when no
// cached monthly overview exists.
func NewSurveyService(surveys surveyRepository, students memberResolver, overview overviewInvalidator, validate *validator.Validate, logger *zap.Logger) *SurveyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurveyService{
		surveys:   surveys,
		students:  students,
		overview:  overview,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a response and marks the submitting student's survey done
// for the month of submission. Unknown member numbers are rejected so typos
// do not create orphan responses.
func (s *SurveyService) Submit(ctx context.Context, req SubmitSurveyRequest) (*models.Survey, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid survey payload")
	}
	number := strings.ToLower(strings.TrimSpace(req.MemberNumber))
	if !membernumber.Valid(number) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid member number format")
	}
	student, err := s.students.FindByMemberNumber(ctx, number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve member number")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no student with that member number")
	}

	submittedAt := s.now()
	survey := &models.Survey{
		MemberNumber:       number,
		StudentName:        student.Name,
		Satisfaction:       req.Satisfaction,
		NPSScore:           req.NPSScore,
		InstructorFeedback: req.InstructorFeedback,
		LessonFeedback:     req.LessonFeedback,
		LearningGoals:      strings.Join(req.LearningGoals, ","),
		OtherFeedback:      req.OtherFeedback,
		SubmittedAt:        submittedAt,
	}

	// Response and monthly flag are written in one transaction; a failure
	// here means neither landed and the caller sees the error.
	monthKey := period.MonthKey(submittedAt)
	if err := s.surveys.Insert(ctx, survey, monthKey, student.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store survey")
	}
	if s.overview != nil {
		s.overview.InvalidateOverview(ctx, monthKey)
	}

	s.logger.Sugar().Infow("survey submitted", "survey_id", survey.ID, "member_number", number)
	return survey, nil
}

// List returns stored responses with optional month filter and search.
func (s *SurveyService) List(ctx context.Context, filter repository.SurveyFilter) ([]models.Survey, *models.Pagination, error) {
	if filter.MonthKey != "" && !period.IsMonthKey(filter.MonthKey) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid month key, expected YYYY-MM")
	}
	surveys, total, err := s.surveys.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list surveys")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return surveys, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one response.
func (s *SurveyService) Get(ctx context.Context, id string) (*models.Survey, error) {
	survey, err := s.surveys.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load survey")
	}
	if survey == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "survey not found")
	}
	return survey, nil
}

// Months lists the distinct months having responses, for the archive picker.
func (s *SurveyService) Months(ctx context.Context) ([]string, error) {
	months, err := s.surveys.Months(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list survey months")
	}
	return months, nil
}

// Delete removes one response. The monthly survey flag is left as-is;
// removing a response does not un-happen the submission.
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	affected, err := s.surveys.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete survey")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "survey not found")
	}
	return nil
}
