package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type fakePortalSrv struct {
	studentID string
	courseID  string
	err       error
}

func (f *fakePortalSrv) Profile(_ context.Context, studentID string) (*models.Student, error) {
	f.studentID = studentID
	return &models.Student{ID: studentID}, f.err
}

func (f *fakePortalSrv) Overview(_ context.Context, studentID string) (*dto.PortalOverview, error) {
	f.studentID = studentID
	return &dto.PortalOverview{Student: models.Student{ID: studentID}, AverageGPA: 3.7}, f.err
}

func (f *fakePortalSrv) AvailableCourses(_ context.Context, studentID string) ([]models.CourseDetail, error) {
	f.studentID = studentID
	return []models.CourseDetail{}, f.err
}

func (f *fakePortalSrv) EnrolledCourses(_ context.Context, studentID string) ([]models.CourseDetail, error) {
	f.studentID = studentID
	return []models.CourseDetail{}, f.err
}

func (f *fakePortalSrv) Enrollments(_ context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	f.studentID = studentID
	return nil, f.err
}

func (f *fakePortalSrv) Results(_ context.Context, studentID string) ([]models.ResultDetail, error) {
	f.studentID = studentID
	return nil, f.err
}

func (f *fakePortalSrv) GPA(_ context.Context, studentID string) (float64, error) {
	f.studentID = studentID
	return 2.7, f.err
}

func (f *fakePortalSrv) Transcript(_ context.Context, studentID string) (*dto.Transcript, error) {
	f.studentID = studentID
	return &dto.Transcript{}, f.err
}

func (f *fakePortalSrv) Enroll(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	f.studentID, f.courseID = studentID, courseID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Enrollment{ID: "en-1", StudentID: studentID, CourseID: courseID}, nil
}

func (f *fakePortalSrv) Drop(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	f.studentID, f.courseID = studentID, courseID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Enrollment{ID: "en-1", Status: models.EnrollmentStatusDropped}, nil
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-1", Role: models.RoleStudent, StudentID: "st-1"}
}

func TestPortalHandlerRequiresLinkedStudent(t *testing.T) {
	srv := &fakePortalSrv{}
	h := NewPortalHandler(srv)

	c, w := newGinContext(http.MethodGet, "/portal", nil)
	h.Overview(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newGinContext(http.MethodGet, "/portal", nil)
	withClaims(c, &models.JWTClaims{UserID: "u-2", Role: models.RoleAdmin})
	h.Overview(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, srv.studentID)
}

func TestPortalHandlerUsesClaimStudent(t *testing.T) {
	srv := &fakePortalSrv{}
	h := NewPortalHandler(srv)
	c, w := newGinContext(http.MethodGet, "/portal/gpa", nil)
	withClaims(c, studentClaims())
	h.GPA(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "st-1", srv.studentID)
	assert.Contains(t, w.Body.String(), `"average_gpa":2.7`)
}

func TestPortalHandlerEnroll(t *testing.T) {
	srv := &fakePortalSrv{}
	h := NewPortalHandler(srv)
	c, w := newGinContext(http.MethodPost, "/portal/courses/c-1/enroll", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "c-1"}}
	withClaims(c, studentClaims())
	h.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "st-1", srv.studentID)
	assert.Equal(t, "c-1", srv.courseID)
}

func TestPortalHandlerDropUnknownCourse(t *testing.T) {
	h := NewPortalHandler(&fakePortalSrv{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")})
	c, w := newGinContext(http.MethodPost, "/portal/courses/c-9/drop", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "c-9"}}
	withClaims(c, studentClaims())
	h.Drop(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
