package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
)

var resultDetailColumns = []string{"id", "enrollment_id", "marks", "grade", "gpa_points", "feedback", "result_date", "created_at", "updated_at",
	"student_id", "student_number", "student_name", "course_id", "course_code", "course_title", "credits", "enrollment_status"}

func TestResultRepositoryCreateDerived(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResultRepository(db)

	marks := 82.5
	result := &models.Result{EnrollmentID: "enr-1"}
	result.SetMarks(&marks)

	mock.ExpectExec("INSERT INTO results").
		WithArgs(sqlmock.AnyArg(), "enr-1", 82.5, "A-", 3.3, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), result))
	assert.NotEmpty(t, result.ID)
	assert.False(t, result.ResultDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("INSERT INTO results").WillReturnError(&pq.Error{Code: "23505", Constraint: "results_enrollment_id_key"})

	err := repo.Create(context.Background(), &models.Result{EnrollmentID: "enr-1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestResultRepositoryCreateMissingEnrollment(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("INSERT INTO results").WillReturnError(&pq.Error{Code: "23503"})

	err := repo.Create(context.Background(), &models.Result{EnrollmentID: "gone"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResultRepositoryListInRange(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(resultDetailColumns).
		AddRow("r-1", "enr-1", 91.0, "A+", 4.0, nil, now, now, now, "s-1", "S-001", "Ada Lovelace", "c-1", "CS101", "Intro", 3, "COMPLETED").
		AddRow("r-2", "enr-2", 82.5, "A-", 3.3, nil, now, now, now, "s-2", "S-002", "Alan Turing", "c-1", "CS101", "Intro", 3, "ENROLLED")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.marks BETWEEN $1 AND $2 ORDER BY r.marks DESC")).
		WithArgs(80.0, 95.0).
		WillReturnRows(rows)

	results, err := repo.ListInRange(context.Background(), 80, 95)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 91.0, *results[0].Marks)
	assert.Equal(t, models.EnrollmentStatusCompleted, results[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("UPDATE results SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Result{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResultRepositoryExistsByEnrollment(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM results WHERE enrollment_id = $1)")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEnrollmentID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.True(t, exists)
}
