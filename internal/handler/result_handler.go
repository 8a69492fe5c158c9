package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type resultService interface {
	Record(ctx context.Context, req models.RecordResultRequest) (*models.Result, error)
	Amend(ctx context.Context, id string, req models.AmendResultRequest) (*models.Result, error)
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.ResultDetail, error)
	ByEnrollment(ctx context.Context, enrollmentID string) (*models.ResultDetail, error)
	ByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	ByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error)
}

// ResultHandler exposes grading endpoints.
type ResultHandler struct {
	results resultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results resultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Record godoc
// @Summary Record a result for an enrollment
// @Description Grade and GPA points are derived from marks.
// @Tags Results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RecordResultRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Record(c *gin.Context) {
	var req models.RecordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	result, err := h.results.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Amend godoc
// @Summary Amend marks or feedback
// @Tags Results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Result ID"
// @Param payload body models.AmendResultRequest true "Amend payload"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [put]
func (h *ResultHandler) Amend(c *gin.Context) {
	var req models.AmendResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	result, err := h.results.Amend(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Get godoc
// @Summary Get result
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Delete godoc
// @Summary Delete result
// @Tags Results
// @Security BearerAuth
// @Param id path string true "Result ID"
// @Success 204
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.results.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ByEnrollment godoc
// @Summary Result of an enrollment
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/result [get]
func (h *ResultHandler) ByEnrollment(c *gin.Context) {
	result, err := h.results.ByEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ByStudent godoc
// @Summary Results of a student
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/results [get]
func (h *ResultHandler) ByStudent(c *gin.Context) {
	results, err := h.results.ByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}

// ByCourse godoc
// @Summary Results of a course
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/results [get]
func (h *ResultHandler) ByCourse(c *gin.Context) {
	results, err := h.results.ByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}
