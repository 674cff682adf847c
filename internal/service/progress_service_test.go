package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/pkg/membernumber"
)

type mockProgressRepo struct {
	weekly  map[string]map[string]models.WeeklyRecord
	monthly map[string]map[string]models.MonthlyRecord
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{
		weekly:  make(map[string]map[string]models.WeeklyRecord),
		monthly: make(map[string]map[string]models.MonthlyRecord),
	}
}

func (m *mockProgressRepo) GetWeek(ctx context.Context, weekKey string) (map[string]models.WeeklyRecord, error) {
	out := make(map[string]models.WeeklyRecord)
	for id, rec := range m.weekly[weekKey] {
		out[id] = rec
	}
	return out, nil
}

func (m *mockProgressRepo) GetWeeks(ctx context.Context, weekKeys []string) (map[string]map[string]models.WeeklyRecord, error) {
	out := make(map[string]map[string]models.WeeklyRecord)
	for _, key := range weekKeys {
		if recs, ok := m.weekly[key]; ok {
			week := make(map[string]models.WeeklyRecord, len(recs))
			for id, rec := range recs {
				week[id] = rec
			}
			out[key] = week
		}
	}
	return out, nil
}

func (m *mockProgressRepo) UpsertWeekly(ctx context.Context, rec *models.WeeklyRecord) error {
	week := m.weekly[rec.WeekKey]
	if week == nil {
		week = make(map[string]models.WeeklyRecord)
		m.weekly[rec.WeekKey] = week
	}
	week[rec.StudentID] = *rec
	return nil
}

func (m *mockProgressRepo) GetMonth(ctx context.Context, monthKey string) (map[string]models.MonthlyRecord, error) {
	out := make(map[string]models.MonthlyRecord)
	for id, rec := range m.monthly[monthKey] {
		out[id] = rec
	}
	return out, nil
}

func (m *mockProgressRepo) UpsertMonthly(ctx context.Context, rec *models.MonthlyRecord) error {
	month := m.monthly[rec.MonthKey]
	if month == nil {
		month = make(map[string]models.MonthlyRecord)
		m.monthly[rec.MonthKey] = month
	}
	month[rec.StudentID] = *rec
	return nil
}

func (m *mockProgressRepo) MonthlyOverview(ctx context.Context, monthKey string) ([]models.MonthlyOverviewRow, error) {
	rows := []models.MonthlyOverviewRow{}
	for _, rec := range m.monthly[monthKey] {
		rows = append(rows, models.MonthlyOverviewRow{
			ID:       rec.StudentID,
			Paid:     rec.Paid,
			LastPaid: rec.LastPaid,
			Survey:   rec.Survey,
		})
	}
	return rows, nil
}

func (m *mockProgressRepo) MonthlyCounts(ctx context.Context, monthKey string) (int, int, error) {
	paid, survey := 0, 0
	for _, rec := range m.monthly[monthKey] {
		if rec.Paid {
			paid++
		}
		if rec.Survey {
			survey++
		}
	}
	return paid, survey, nil
}

func (m *mockProgressRepo) WeeklyDoneCount(ctx context.Context, weekKey string) (int, error) {
	done := 0
	for _, rec := range m.weekly[weekKey] {
		if rec.DM {
			done++
		}
		if rec.Lesson {
			done++
		}
	}
	return done, nil
}

func progressFixture(t *testing.T, studentIDs ...string) (*ProgressService, *mockProgressRepo, *mockStudentRepo) {
	t.Helper()
	students := newMockStudentRepo()
	for i, id := range studentIDs {
		students.byID[id] = &models.Student{ID: id, Name: "Student", MemberNumber: fmt.Sprintf("k%d", 11+i)}
	}
	progress := newMockProgressRepo()
	svc := NewProgressService(progress, students, nil, 0, nil, nil)
	return svc, progress, students
}

const (
	testStudentA = "0c2d95d2-aaaa-4bbb-8ccc-000000000001"
	testStudentB = "0c2d95d2-aaaa-4bbb-8ccc-000000000002"
)

func TestWeeklyFieldDerivesDoneFromDate(t *testing.T) {
	svc, progress, _ := progressFixture(t, testStudentA)

	view, err := svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA,
		Field:     models.WeeklyFieldDM,
		Date:      "2024-01-16",
	})
	require.NoError(t, err)

	rec := progress.weekly["2024-W03"][testStudentA]
	assert.True(t, rec.DM)
	assert.Equal(t, "2024-01-16", rec.DMDate)
	assert.False(t, rec.Lesson)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, 50, view.CompletionPercent)
}

func TestWeeklyFieldClearedByEmptyDate(t *testing.T) {
	svc, progress, _ := progressFixture(t, testStudentA)

	_, err := svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldDM, Date: "2024-01-16",
	})
	require.NoError(t, err)

	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldDM, Date: "",
	})
	require.NoError(t, err)

	rec := progress.weekly["2024-W03"][testStudentA]
	assert.False(t, rec.DM)
	assert.Empty(t, rec.DMDate)
}

func TestWeeklyFieldPreservesOtherField(t *testing.T) {
	svc, progress, _ := progressFixture(t, testStudentA)

	_, err := svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldDM, Date: "2024-01-16",
	})
	require.NoError(t, err)
	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldLesson, Date: "2024-01-18",
	})
	require.NoError(t, err)

	rec := progress.weekly["2024-W03"][testStudentA]
	assert.True(t, rec.DM)
	assert.True(t, rec.Lesson)
	assert.Equal(t, "2024-01-16", rec.DMDate)
	assert.Equal(t, "2024-01-18", rec.LessonDate)
}

func TestWeeklyUpsertIsIdempotent(t *testing.T) {
	svc, progress, _ := progressFixture(t, testStudentA)

	for i := 0; i < 3; i++ {
		_, err := svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
			StudentID: testStudentA, Field: models.WeeklyFieldDM, Date: "2024-01-16",
		})
		require.NoError(t, err)
	}
	assert.Len(t, progress.weekly["2024-W03"], 1)
}

func TestWeeklyRejectsBadKeyAndField(t *testing.T) {
	svc, _, _ := progressFixture(t, testStudentA)

	_, err := svc.GetWeek(context.Background(), "2024-03")
	require.Error(t, err)

	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: "homework", Date: "2024-01-16",
	})
	require.Error(t, err)

	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldDM, Date: "16-01-2024",
	})
	require.Error(t, err)
}

func TestWeeklyCompletionPercent(t *testing.T) {
	svc, _, _ := progressFixture(t, testStudentA, testStudentB)

	view, err := svc.GetWeek(context.Background(), "2024-W03")
	require.NoError(t, err)
	assert.Equal(t, 0, view.CompletionPercent)

	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldDM, Date: "2024-01-16",
	})
	require.NoError(t, err)
	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentA, Field: models.WeeklyFieldLesson, Date: "2024-01-17",
	})
	require.NoError(t, err)

	view, err = svc.GetWeek(context.Background(), "2024-W03")
	require.NoError(t, err)
	assert.Equal(t, 50, view.CompletionPercent)

	_, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentB, Field: models.WeeklyFieldDM, Date: "2024-01-16",
	})
	require.NoError(t, err)
	view, err = svc.UpsertWeeklyField(context.Background(), "2024-W03", WeeklyFieldRequest{
		StudentID: testStudentB, Field: models.WeeklyFieldLesson, Date: "2024-01-17",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, view.CompletionPercent)
}

func TestMonthlyPaidDerivedFromDate(t *testing.T) {
	svc, progress, _ := progressFixture(t, testStudentA)

	_, err := svc.UpsertMonthly(context.Background(), "2024-01", MonthlyCheckRequest{
		StudentID: testStudentA, LastPaid: "2024-01-05",
	})
	require.NoError(t, err)
	rec := progress.monthly["2024-01"][testStudentA]
	assert.True(t, rec.Paid)

	_, err = svc.UpsertMonthly(context.Background(), "2024-01", MonthlyCheckRequest{
		StudentID: testStudentA, LastPaid: "",
	})
	require.NoError(t, err)
	rec = progress.monthly["2024-01"][testStudentA]
	assert.False(t, rec.Paid)
	assert.Empty(t, rec.LastPaid)
}

func TestWeekViewCoversFullRoster(t *testing.T) {
	// The weekly view renders every student, not a page. A roster larger
	// than any listing page size must come back whole, and the completion
	// percentage must be computed over all of it.
	students := newMockStudentRepo()
	number := ""
	for i := 0; i < 250; i++ {
		number = membernumber.Next(number)
		id := fmt.Sprintf("0c2d95d2-aaaa-4bbb-8ccc-%012d", i+1)
		students.byID[id] = &models.Student{ID: id, Name: "Student", MemberNumber: number}
	}
	svc := NewProgressService(newMockProgressRepo(), students, nil, 0, nil, nil)

	view, err := svc.GetWeek(context.Background(), "2024-W03")
	require.NoError(t, err)
	require.Len(t, view.Rows, 250)
	assert.Equal(t, "k11", view.Rows[0].MemberNumber)
	assert.Equal(t, 0, view.CompletionPercent)

	calendar, err := svc.Calendar(context.Background(), "2024-01")
	require.NoError(t, err)
	for _, week := range calendar.Weeks {
		assert.Len(t, week.Rows, 250)
	}
}

func TestCalendarCoversBoundaryWeeks(t *testing.T) {
	svc, _, _ := progressFixture(t, testStudentA)

	// March 2024: the 1st falls in 2024-W09, the 31st in 2024-W13.
	view, err := svc.Calendar(context.Background(), "2024-03")
	require.NoError(t, err)
	require.Len(t, view.Weeks, 5)
	assert.Equal(t, "2024-W09", view.Weeks[0].WeekKey)
	assert.Equal(t, "2024-W13", view.Weeks[4].WeekKey)
	for _, week := range view.Weeks {
		assert.Len(t, week.Rows, 1)
	}
}
