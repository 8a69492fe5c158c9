package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "role", "student_id", "active", "last_login", "created_at", "updated_at"}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "ada", "ada@uni.test", "hash", string(models.RoleStudent), "s-1", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("ada").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, user.StudentID)
	assert.Equal(t, "s-1", *user.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateWithStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.Student{StudentNumber: "S-001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@uni.test", Department: "Computing", EnrollmentYear: 2024}
	user := &models.User{Username: "ada", Email: "Ada@Uni.test", PasswordHash: "hash", Role: models.RoleStudent, Active: true}
	require.NoError(t, repo.CreateWithStudent(context.Background(), user, student))
	require.NotNil(t, user.StudentID)
	assert.Equal(t, student.ID, *user.StudentID)
	assert.Equal(t, "ada@uni.test", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateWithStudentRollsBackOnDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithStudent(context.Background(), &models.User{Username: "ada"}, &models.Student{StudentNumber: "S-001"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{UserID: "u1", Token: "token", ExpiresAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionCreate, Resource: "courses"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
}
