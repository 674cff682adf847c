package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class1/class1-admin-api/internal/models"
)

func TestSurveyRepositoryInsertFlagsMonthInOneTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSurveyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO surveys").
		WithArgs(sqlmock.AnyArg(), "k11", "Alice", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// The conflict clause must only touch survey and updated_at, so an
	// existing paid flag survives the submission.
	mock.ExpectExec(`ON CONFLICT \(month_key, student_id\) DO UPDATE SET\s+survey = TRUE,\s+updated_at = excluded\.updated_at`).
		WithArgs("2024-01", "s1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	survey := &models.Survey{MemberNumber: "k11", StudentName: "Alice", Satisfaction: 5, NPSScore: 9}
	require.NoError(t, repo.Insert(context.Background(), survey, "2024-01", "s1"))
	assert.NotEmpty(t, survey.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSurveyRepositoryInsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSurveyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO surveys").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	survey := &models.Survey{MemberNumber: "k11", StudentName: "Alice"}
	err := repo.Insert(context.Background(), survey, "2024-01", "s1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSurveyRepositoryInsertRollsBackWhenFlagFails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSurveyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO surveys").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO monthly_checks").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	survey := &models.Survey{MemberNumber: "k11", StudentName: "Alice"}
	err := repo.Insert(context.Background(), survey, "2024-01", "s1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
