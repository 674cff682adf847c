package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/internal/repository"
	"github.com/class1/class1-admin-api/internal/service"
)

type fakeSurveyRepo struct {
	stored        []models.Survey
	lastMonthKey  string
	lastStudentID string
}

func (f *fakeSurveyRepo) Insert(_ context.Context, survey *models.Survey, monthKey, studentID string) error {
	if survey.ID == "" {
		survey.ID = uuid.NewString()
	}
	f.stored = append(f.stored, *survey)
	f.lastMonthKey = monthKey
	f.lastStudentID = studentID
	return nil
}

func (f *fakeSurveyRepo) List(_ context.Context, _ repository.SurveyFilter) ([]models.Survey, int, error) {
	return f.stored, len(f.stored), nil
}

func (f *fakeSurveyRepo) FindByID(_ context.Context, id string) (*models.Survey, error) {
	for i := range f.stored {
		if f.stored[i].ID == id {
			return &f.stored[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSurveyRepo) Months(_ context.Context) ([]string, error) { return nil, nil }

func (f *fakeSurveyRepo) Delete(_ context.Context, id string) (int64, error) {
	for i := range f.stored {
		if f.stored[i].ID == id {
			f.stored = append(f.stored[:i], f.stored[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeSurveyRepo) Count(_ context.Context) (int, error) { return len(f.stored), nil }

type fakeMemberResolver struct {
	students map[string]*models.Student
}

func (f *fakeMemberResolver) FindByMemberNumber(_ context.Context, number string) (*models.Student, error) {
	return f.students[number], nil
}

type fakeOverviewInvalidator struct {
	months []string
}

func (f *fakeOverviewInvalidator) InvalidateOverview(_ context.Context, monthKey string) {
	f.months = append(f.months, monthKey)
}

func surveyHandlerFixture() (*SurveyHandler, *fakeSurveyRepo, *fakeOverviewInvalidator) {
	repo := &fakeSurveyRepo{}
	overview := &fakeOverviewInvalidator{}
	resolver := &fakeMemberResolver{students: map[string]*models.Student{
		"k11": {ID: testStudentID, Name: "Aoi", MemberNumber: "k11"},
	}}
	svc := service.NewSurveyService(repo, resolver, overview, nil, nil)
	return NewSurveyHandler(svc), repo, overview
}

func TestSurveyHandlerSubmitStoresAndFlags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo, overview := surveyHandlerFixture()

	body, _ := json.Marshal(service.SubmitSurveyRequest{
		MemberNumber:  "K11",
		Satisfaction:  5,
		NPSScore:      9,
		LearningGoals: []string{"conversation", "grammar"},
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/surveys", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, "k11", repo.stored[0].MemberNumber)
	assert.Equal(t, "conversation,grammar", repo.stored[0].LearningGoals)
	assert.Equal(t, testStudentID, repo.lastStudentID)
	assert.NotEmpty(t, repo.lastMonthKey)
	assert.Equal(t, []string{repo.lastMonthKey}, overview.months)
}

func TestSurveyHandlerSubmitUnknownMember(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo, _ := surveyHandlerFixture()

	body, _ := json.Marshal(service.SubmitSurveyRequest{
		MemberNumber: "z98",
		Satisfaction: 3,
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/surveys", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, repo.stored)
}

func TestSurveyHandlerListRejectsBadMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := surveyHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/surveys?month=2024-13", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
