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

func TestInstructorRepositoryDeleteUnassignsStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET instructor_id = NULL").
		WithArgs("i1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM instructors").
		WithArgs("i1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.Delete(context.Background(), "i1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET instructor_id = NULL").
		WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM instructors").
		WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	affected, err := repo.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestInstructorRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectExec("INSERT INTO instructors").
		WithArgs(sqlmock.AnyArg(), "Carol", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	instructor := &models.Instructor{Name: "Carol"}
	require.NoError(t, repo.Create(context.Background(), instructor))
	assert.NotEmpty(t, instructor.ID)
	assert.False(t, instructor.CreatedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), instructor.CreatedAt, time.Minute)
}
