package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func admitFixture(t *testing.T, l *ledger, number, code string) (models.Student, models.Course, *models.Enrollment) {
	t.Helper()
	s := l.store.addStudent(number, "Student"+number, "Test", "Science")
	c := l.store.addCourse(code, 3, nil)
	e, err := l.enrollments.Admit(context.Background(), models.AdmitRequest{StudentID: s.ID, CourseID: c.ID})
	require.NoError(t, err)
	return s, c, e
}

func TestResultRecordThenAmendRederivesGrade(t *testing.T) {
	l := newLedger()
	ctx := context.Background()
	_, _, e := admitFixture(t, l, "S-001", "PHY101")

	result, err := l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(82.5), Feedback: strPtr("solid")})
	require.NoError(t, err)
	require.NotNil(t, result.Grade)
	assert.Equal(t, "A-", *result.Grade)
	assert.Equal(t, 3.3, *result.GPAPoints)
	assert.Equal(t, 82.5, *result.Marks)

	amended, err := l.results.Amend(ctx, result.ID, models.AmendResultRequest{Marks: floatPtr(91), Feedback: strPtr("excellent")})
	require.NoError(t, err)
	assert.Equal(t, "A+", *amended.Grade)
	assert.Equal(t, 4.0, *amended.GPAPoints)
	assert.Equal(t, "excellent", *amended.Feedback)

	detail, err := l.results.ByEnrollment(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "A+", *detail.Grade)
	assert.Equal(t, "PHY101", detail.CourseCode)
}

func TestResultRecordWithoutMarksHasNoGrade(t *testing.T) {
	l := newLedger()
	_, _, e := admitFixture(t, l, "S-001", "PHY101")

	result, err := l.results.Record(context.Background(), models.RecordResultRequest{EnrollmentID: e.ID})
	require.NoError(t, err)
	assert.Nil(t, result.Marks)
	assert.Nil(t, result.Grade)
	assert.Nil(t, result.GPAPoints)

	amended, err := l.results.Amend(context.Background(), result.ID, models.AmendResultRequest{Marks: floatPtr(49.99)})
	require.NoError(t, err)
	assert.Equal(t, "F", *amended.Grade)
	assert.Equal(t, 0.0, *amended.GPAPoints)
}

func TestResultRecordRejections(t *testing.T) {
	l := newLedger()
	ctx := context.Background()
	_, _, e := admitFixture(t, l, "S-001", "PHY101")

	_, err := l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(100.5)})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(-1)})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: "missing", Marks: floatPtr(50)})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	first, err := l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(60)})
	require.NoError(t, err)
	_, err = l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(99)})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	kept, err := l.results.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, *kept.Marks)
	assert.Equal(t, "C+", *kept.Grade)
}

func TestResultAmendRejections(t *testing.T) {
	l := newLedger()
	ctx := context.Background()
	_, _, e := admitFixture(t, l, "S-001", "PHY101")
	result, err := l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(75)})
	require.NoError(t, err)

	_, err = l.results.Amend(ctx, result.ID, models.AmendResultRequest{Marks: floatPtr(101)})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = l.results.Amend(ctx, "missing", models.AmendResultRequest{Marks: floatPtr(50)})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	unchanged, err := l.results.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, "B+", *unchanged.Grade)
}

func TestResultMarksAreRoundedBeforeDerivation(t *testing.T) {
	l := newLedger()
	_, _, e := admitFixture(t, l, "S-001", "PHY101")

	result, err := l.results.Record(context.Background(), models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(89.996)})
	require.NoError(t, err)
	assert.Equal(t, 90.0, *result.Marks)
	assert.Equal(t, "A+", *result.Grade)
}

func TestResultLookupsAndRemove(t *testing.T) {
	l := newLedger()
	ctx := context.Background()
	s, c, e := admitFixture(t, l, "S-001", "PHY101")
	result, err := l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID, Marks: floatPtr(66)})
	require.NoError(t, err)

	byStudent, err := l.results.ByStudent(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	assert.Equal(t, "B-", *byStudent[0].Grade)
	assert.Equal(t, s.FullName(), byStudent[0].StudentName)

	byCourse, err := l.results.ByCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, byCourse, 1)

	_, err = l.results.ByStudent(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
	_, err = l.results.ByCourse(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	require.NoError(t, l.results.Remove(ctx, result.ID))
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(l.results.Remove(ctx, result.ID)))
	_, err = l.results.ByEnrollment(ctx, e.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}
