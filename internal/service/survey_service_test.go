package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/internal/repository"
	"github.com/class1/class1-admin-api/pkg/period"
)

type mockSurveyRepo struct {
	surveys       []models.Survey
	lastMonthKey  string
	lastStudentID string
	insertErr     error
}

func (m *mockSurveyRepo) Insert(ctx context.Context, survey *models.Survey, monthKey, studentID string) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if survey.ID == "" {
		survey.ID = "survey-1"
	}
	m.surveys = append(m.surveys, *survey)
	m.lastMonthKey = monthKey
	m.lastStudentID = studentID
	return nil
}

func (m *mockSurveyRepo) List(ctx context.Context, filter repository.SurveyFilter) ([]models.Survey, int, error) {
	return m.surveys, len(m.surveys), nil
}

func (m *mockSurveyRepo) FindByID(ctx context.Context, id string) (*models.Survey, error) {
	for _, s := range m.surveys {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockSurveyRepo) Months(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	months := []string{}
	for _, s := range m.surveys {
		key := period.MonthKey(s.SubmittedAt)
		if !seen[key] {
			seen[key] = true
			months = append(months, key)
		}
	}
	return months, nil
}

func (m *mockSurveyRepo) Delete(ctx context.Context, id string) (int64, error) {
	for i, s := range m.surveys {
		if s.ID == id {
			m.surveys = append(m.surveys[:i], m.surveys[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockSurveyRepo) Count(ctx context.Context) (int, error) {
	return len(m.surveys), nil
}

type mockOverviewInvalidator struct {
	months []string
}

func (m *mockOverviewInvalidator) InvalidateOverview(ctx context.Context, monthKey string) {
	m.months = append(m.months, monthKey)
}

func surveyFixture(t *testing.T) (*SurveyService, *mockSurveyRepo, *mockOverviewInvalidator) {
	t.Helper()
	students := newMockStudentRepo()
	students.byID[testStudentA] = &models.Student{ID: testStudentA, Name: "Alice", MemberNumber: "k11"}
	students.byNumber["k11"] = students.byID[testStudentA]

	surveys := &mockSurveyRepo{}
	overview := &mockOverviewInvalidator{}
	svc := NewSurveyService(surveys, students, overview, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC) }
	return svc, surveys, overview
}

func TestSurveySubmitFlagsCurrentMonth(t *testing.T) {
	svc, surveys, overview := surveyFixture(t)

	survey, err := svc.Submit(context.Background(), SubmitSurveyRequest{
		MemberNumber:  "k11",
		Satisfaction:  5,
		NPSScore:      9,
		LearningGoals: []string{"conversation", "exam prep"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", survey.StudentName)
	assert.Equal(t, "conversation,exam prep", survey.LearningGoals)
	assert.Len(t, surveys.surveys, 1)
	assert.Equal(t, "2024-01", surveys.lastMonthKey)
	assert.Equal(t, testStudentA, surveys.lastStudentID)
	assert.Equal(t, []string{"2024-01"}, overview.months)
}

func TestSurveySubmitNormalizesMemberNumber(t *testing.T) {
	svc, surveys, _ := surveyFixture(t)

	survey, err := svc.Submit(context.Background(), SubmitSurveyRequest{
		MemberNumber: "  K11 ",
		Satisfaction: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "k11", survey.MemberNumber)
	assert.Equal(t, testStudentA, surveys.lastStudentID)
}

func TestSurveySubmitSurfacesStoreFailure(t *testing.T) {
	svc, surveys, overview := surveyFixture(t)
	surveys.insertErr = assert.AnError

	_, err := svc.Submit(context.Background(), SubmitSurveyRequest{
		MemberNumber: "k11",
		Satisfaction: 5,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store survey")
	// Nothing stored, nothing flagged, no cache touched.
	assert.Empty(t, surveys.surveys)
	assert.Empty(t, surveys.lastMonthKey)
	assert.Empty(t, overview.months)
}

func TestSurveySubmitUnknownMemberNumber(t *testing.T) {
	svc, surveys, _ := surveyFixture(t)

	_, err := svc.Submit(context.Background(), SubmitSurveyRequest{
		MemberNumber: "z98",
		Satisfaction: 3,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no student with that member number")
	assert.Empty(t, surveys.surveys)
}

func TestSurveySubmitRejectsBadPayload(t *testing.T) {
	svc, _, _ := surveyFixture(t)

	_, err := svc.Submit(context.Background(), SubmitSurveyRequest{MemberNumber: "k11", Satisfaction: 6})
	require.Error(t, err)

	_, err = svc.Submit(context.Background(), SubmitSurveyRequest{MemberNumber: "11k", Satisfaction: 3})
	require.Error(t, err)
}

func TestSurveyDeleteKeepsMonthlyFlag(t *testing.T) {
	svc, surveys, _ := surveyFixture(t)

	survey, err := svc.Submit(context.Background(), SubmitSurveyRequest{MemberNumber: "k11", Satisfaction: 5})
	require.NoError(t, err)
	require.Equal(t, "2024-01", surveys.lastMonthKey)

	// Deleting a response removes only the response. The monthly flag set
	// at submission time stays, there is no unflag write.
	require.NoError(t, svc.Delete(context.Background(), survey.ID))
	assert.Empty(t, surveys.surveys)
	assert.Equal(t, "2024-01", surveys.lastMonthKey)
	assert.Equal(t, testStudentA, surveys.lastStudentID)
}
