package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class1/class1-admin-api/internal/models"
)

func TestProgressRepositoryGetWeek(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	rows := sqlmock.NewRows([]string{"week_key", "student_id", "dm", "dm_date", "lesson", "lesson_date", "created_at", "updated_at"}).
		AddRow("2024-W03", "s1", true, "2024-01-16", false, "", time.Now(), time.Now()).
		AddRow("2024-W03", "s2", false, "", true, "2024-01-17", time.Now(), time.Now())
	mock.ExpectQuery("SELECT week_key, student_id, dm").WithArgs("2024-W03").WillReturnRows(rows)

	byStudent, err := repo.GetWeek(context.Background(), "2024-W03")
	require.NoError(t, err)
	assert.Len(t, byStudent, 2)
	assert.True(t, byStudent["s1"].DM)
	assert.False(t, byStudent["s1"].Lesson)
	assert.Equal(t, "2024-01-17", byStudent["s2"].LessonDate)
}

func TestProgressRepositoryUpsertWeekly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec("INSERT INTO weekly_checks").
		WithArgs("2024-W03", "s1", true, "2024-01-16", false, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &models.WeeklyRecord{WeekKey: "2024-W03", StudentID: "s1", DM: true, DMDate: "2024-01-16"}
	require.NoError(t, repo.UpsertWeekly(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryMonthlyOverviewDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "member_number", "email", "note", "instructor_id", "instructor_name", "paid", "last_paid", "survey"}).
		AddRow("s1", "Alice", "k11", "", "", nil, nil, false, "", false).
		AddRow("s2", "Bob", "k12", "", "", "i1", "Carol", true, "2024-01-05", true)
	mock.ExpectQuery("SELECT s.id, s.name, s.member_number").WithArgs("2024-01").WillReturnRows(rows)

	overview, err := repo.MonthlyOverview(context.Background(), "2024-01")
	require.NoError(t, err)
	require.Len(t, overview, 2)
	assert.False(t, overview[0].Paid)
	assert.Nil(t, overview[0].InstructorName)
	assert.True(t, overview[1].Paid)
	assert.Equal(t, "2024-01-05", overview[1].LastPaid)
}

func TestProgressRepositoryWeeklyDoneCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectQuery("SELECT COALESCE").WithArgs("2024-W03").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	done, err := repo.WeeklyDoneCount(context.Background(), "2024-W03")
	require.NoError(t, err)
	assert.Equal(t, 3, done)
}
