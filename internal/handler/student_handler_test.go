package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type fakeStudentSrv struct {
	lastFilter models.StudentFilter
	lastCreate models.CreateStudentRequest
	students   []models.Student
	err        error
	deleted    string
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	f.lastFilter = filter
	return f.students, models.NewPagination(filter.Page, filter.PageSize, len(f.students)), f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentSrv) GetByStudentNumber(_ context.Context, number string) (*models.Student, error) {
	return &models.Student{ID: "st-1", StudentNumber: number}, f.err
}

func (f *fakeStudentSrv) Create(_ context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "st-1", StudentNumber: req.StudentNumber}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: id}, f.err
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

func (f *fakeStudentSrv) Departments(context.Context) ([]string, error) {
	return []string{"Computing", "Physics"}, f.err
}

func (f *fakeStudentSrv) EnrollmentYears(context.Context) ([]int, error) {
	return []int{2025, 2024}, f.err
}

func TestStudentHandlerListParsesFilters(t *testing.T) {
	srv := &fakeStudentSrv{students: []models.Student{{ID: "st-1"}}}
	h := NewStudentHandler(srv)

	c, w := newGinContext(http.MethodGet, "/students?search=%20ada%20&department=Computing&enrollmentYear=2024&page=2&limit=5&sort=last_name&order=desc", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StudentFilter{
		Search: "ada", Department: "Computing", EnrollmentYear: 2024,
		Page: 2, PageSize: 5, SortBy: "last_name", SortOrder: "desc",
	}, srv.lastFilter)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestStudentHandlerListRejectsBadYear(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{})
	c, w := newGinContext(http.MethodGet, "/students?enrollmentYear=last", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

func TestStudentHandlerCreate(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)
	body := mustJSON(t, models.CreateStudentRequest{StudentNumber: "S-001", FirstName: "Ada", Email: "ada@uni.test"})

	c, w := newGinContext(http.MethodPost, "/students", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "S-001", srv.lastCreate.StudentNumber)
	var student models.Student
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &student))
	assert.Equal(t, "st-1", student.ID)
}

func TestStudentHandlerCreateConflict(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{err: appErrors.Clone(appErrors.ErrConflict, "student number already exists")})
	c, w := newGinContext(http.MethodPost, "/students", []byte(`{"student_number":"S-001"}`))
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "student number already exists", decodeEnvelope(t, w).Error.Message)
}

func TestStudentHandlerCreateMalformedBody(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{})
	c, w := newGinContext(http.MethodPost, "/students", []byte(`{`))
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerDelete(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)
	c, w := newGinContext(http.MethodDelete, "/students/st-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "st-9"}}
	serve(c, h.Delete)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "st-9", srv.deleted)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")})
	c, w := newGinContext(http.MethodGet, "/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerEnrollmentYears(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{})
	c, w := newGinContext(http.MethodGet, "/students/enrollment-years", nil)
	h.EnrollmentYears(c)

	require.Equal(t, http.StatusOK, w.Code)
	var years []int
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &years))
	assert.Equal(t, []int{2025, 2024}, years)
}
