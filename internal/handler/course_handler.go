package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.CourseDetail, error)
	GetByCode(ctx context.Context, code string) (*models.CourseDetail, error)
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.CourseDetail, error)
	Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.CourseDetail, error)
	Delete(ctx context.Context, id string) error
	Departments(ctx context.Context) ([]string, error)
}

type enrollmentCounter interface {
	CountEnrolled(ctx context.Context, courseID string) (int, error)
}

// CourseHandler exposes course catalog endpoints.
type CourseHandler struct {
	courses courseService
	counter enrollmentCounter
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, counter enrollmentCounter) *CourseHandler {
	return &CourseHandler{courses: courses, counter: counter}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by code or title"
// @Param department query string false "Filter by department"
// @Param minCredits query int false "Minimum credits"
// @Param maxCredits query int false "Maximum credits"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	minCredits, err := queryInt(c, "minCredits")
	if err != nil {
		response.Error(c, err)
		return
	}
	maxCredits, err := queryInt(c, "maxCredits")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.CourseFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("department")),
		MinCredits: minCredits,
		MaxCredits: maxCredits,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	filter.Page, filter.PageSize = paging(c)

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// GetByCode godoc
// @Summary Get course by code
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /courses/code/{code} [get]
func (h *CourseHandler) GetByCode(c *gin.Context) {
	course, err := h.courses.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Description Lowering max_enrollment below the current enrollment fails with 409.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Departments godoc
// @Summary Distinct course departments
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/departments [get]
func (h *CourseHandler) Departments(c *gin.Context) {
	departments, err := h.courses.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, departments)
}

// EnrollmentCount godoc
// @Summary Count ENROLLED students of a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollment-count [get]
func (h *CourseHandler) EnrollmentCount(c *gin.Context) {
	id := c.Param("id")
	n, err := h.counter.CountEnrolled(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.EnrollmentCountResponse{CourseID: id, Enrolled: n})
}
