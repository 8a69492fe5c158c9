package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type fakeEnrollmentSrv struct {
	lastFilter models.EnrollmentFilter
	lastAdmit  models.AdmitRequest
	lastUpdate models.UpdateEnrollmentRequest
	pair       [2]string
	admitErr   error
	err        error
}

func (f *fakeEnrollmentSrv) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return nil, models.NewPagination(filter.Page, filter.PageSize, 0), f.err
}

func (f *fakeEnrollmentSrv) Get(_ context.Context, id string) (*models.EnrollmentDetail, error) {
	return &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: id}}, f.err
}

func (f *fakeEnrollmentSrv) FindByPair(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	f.pair = [2]string{studentID, courseID}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Enrollment{ID: "en-1", StudentID: studentID, CourseID: courseID}, nil
}

func (f *fakeEnrollmentSrv) Admit(_ context.Context, req models.AdmitRequest) (*models.Enrollment, error) {
	f.lastAdmit = req
	if f.admitErr != nil {
		return nil, f.admitErr
	}
	return &models.Enrollment{ID: "en-1", StudentID: req.StudentID, CourseID: req.CourseID, Status: models.EnrollmentStatusEnrolled}, nil
}

func (f *fakeEnrollmentSrv) Update(_ context.Context, id string, req models.UpdateEnrollmentRequest) (*models.Enrollment, error) {
	f.lastUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Enrollment{ID: id, Status: *req.Status}, nil
}

func (f *fakeEnrollmentSrv) Withdraw(_ context.Context, id string) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id, Status: models.EnrollmentStatusDropped}, f.err
}

func (f *fakeEnrollmentSrv) Remove(context.Context, string) error { return f.err }

func TestEnrollmentHandlerAdmit(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	h := NewEnrollmentHandler(srv)
	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_id":"st-1","course_id":"c-1"}`))
	h.Admit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.AdmitRequest{StudentID: "st-1", CourseID: "c-1"}, srv.lastAdmit)
}

func TestEnrollmentHandlerAdmitCapacityExceeded(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{admitErr: appErrors.ErrCapacityExceeded})
	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_id":"st-1","course_id":"c-1"}`))
	h.Admit(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, decodeEnvelope(t, w).Error.Code)
}

func TestEnrollmentHandlerListStatusFilter(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	h := NewEnrollmentHandler(srv)
	c, w := newGinContext(http.MethodGet, "/enrollments?status=dropped&courseId=c-1", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnrollmentStatusDropped, srv.lastFilter.Status)
	assert.Equal(t, "c-1", srv.lastFilter.CourseID)

	c, w = newGinContext(http.MethodGet, "/enrollments?status=pending", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerLookup(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	h := NewEnrollmentHandler(srv)

	c, w := newGinContext(http.MethodGet, "/enrollments/lookup?studentId=st-1", nil)
	h.Lookup(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/enrollments/lookup?studentId=st-1&courseId=c-1", nil)
	h.Lookup(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"st-1", "c-1"}, srv.pair)
}

func TestEnrollmentHandlerUpdateStatus(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	h := NewEnrollmentHandler(srv)
	c, w := newGinContext(http.MethodPatch, "/enrollments/en-1", []byte(`{"status":"COMPLETED"}`))
	c.Params = gin.Params{{Key: "id", Value: "en-1"}}
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, srv.lastUpdate.Status)
	assert.Equal(t, models.EnrollmentStatusCompleted, *srv.lastUpdate.Status)
	assert.Nil(t, srv.lastUpdate.Remarks)
}

func TestEnrollmentHandlerWithdraw(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{})
	c, w := newGinContext(http.MethodPost, "/enrollments/en-1/withdraw", nil)
	c.Params = gin.Params{{Key: "id", Value: "en-1"}}
	h.Withdraw(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"DROPPED"`)
}

func TestEnrollmentHandlerDelete(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{})
	c, w := newGinContext(http.MethodDelete, "/enrollments/en-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "en-1"}}
	serve(c, h.Delete)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	h = NewEnrollmentHandler(&fakeEnrollmentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")})
	c, w = newGinContext(http.MethodDelete, "/enrollments/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	serve(c, h.Delete)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
