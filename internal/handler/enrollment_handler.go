package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Admit(ctx context.Context, req models.AdmitRequest) (*models.Enrollment, error)
	Update(ctx context.Context, id string, req models.UpdateEnrollmentRequest) (*models.Enrollment, error)
	Withdraw(ctx context.Context, id string) (*models.Enrollment, error)
	Remove(ctx context.Context, id string) error
}

// EnrollmentHandler exposes the enrollment ledger.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param status query string false "ENROLLED, DROPPED or COMPLETED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID: c.Query("studentId"),
		CourseID:  c.Query("courseId"),
		Status:    models.EnrollmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status"))
		return
	}
	filter.Page, filter.PageSize = paging(c)

	items, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	item, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Lookup godoc
// @Summary Find the enrollment of a student in a course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param studentId query string true "Student ID"
// @Param courseId query string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/lookup [get]
func (h *EnrollmentHandler) Lookup(c *gin.Context) {
	studentID, courseID := c.Query("studentId"), c.Query("courseId")
	if studentID == "" || courseID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId and courseId are required"))
		return
	}
	item, err := h.enrollments.FindByPair(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Admit godoc
// @Summary Admit a student into a course
// @Description Fails with 409 when the pair already exists in any status or the course is full.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.AdmitRequest true "Admission payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Admit(c *gin.Context) {
	var req models.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	item, err := h.enrollments.Admit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Change enrollment status or remarks
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.UpdateEnrollmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id} [patch]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var req models.UpdateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	item, err := h.enrollments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Withdraw godoc
// @Summary Drop an enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	item, err := h.enrollments.Withdraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete an enrollment and its result
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
