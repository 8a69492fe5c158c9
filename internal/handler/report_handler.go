package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type reportService interface {
	AverageGPA(ctx context.Context, studentID string) (float64, error)
	AverageMarks(ctx context.Context, courseID string) (float64, error)
	ResultsInRange(ctx context.Context, rng models.MarksRange) ([]models.ResultDetail, error)
	Transcript(ctx context.Context, studentID string) (*dto.Transcript, error)
	CourseSummary(ctx context.Context, courseID string) (*dto.CourseSummary, error)
	CourseRoster(ctx context.Context, courseID string) (*dto.CourseRoster, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StudentGPA godoc
// @Summary Average GPA of a student
// @Description Zero when the student has no graded result.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id}/gpa [get]
func (h *ReportHandler) StudentGPA(c *gin.Context) {
	id := c.Param("id")
	gpa, err := h.reports.AverageGPA(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.StudentGPAResponse{StudentID: id, AverageGPA: gpa})
}

// CourseAverage godoc
// @Summary Average marks of a course
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /reports/courses/{id}/average [get]
func (h *ReportHandler) CourseAverage(c *gin.Context) {
	id := c.Param("id")
	avg, err := h.reports.AverageMarks(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CourseAverageResponse{CourseID: id, AverageMarks: avg})
}

// ResultsInRange godoc
// @Summary Results whose marks fall within [min, max]
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param min query number true "Lower bound"
// @Param max query number true "Upper bound"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/results [get]
func (h *ReportHandler) ResultsInRange(c *gin.Context) {
	lo, err := queryFloat(c, "min")
	if err != nil {
		response.Error(c, err)
		return
	}
	hi, err := queryFloat(c, "max")
	if err != nil {
		response.Error(c, err)
		return
	}
	results, err := h.reports.ResultsInRange(c.Request.Context(), models.MarksRange{Min: lo, Max: hi})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}

// Transcript godoc
// @Summary Student transcript
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id}/transcript [get]
func (h *ReportHandler) Transcript(c *gin.Context) {
	transcript, err := h.reports.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, transcript)
}

// CourseSummary godoc
// @Summary Course occupancy and grade distribution
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /reports/courses/{id}/summary [get]
func (h *ReportHandler) CourseSummary(c *gin.Context) {
	summary, err := h.reports.CourseSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// CourseRoster godoc
// @Summary Course roster with results
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /reports/courses/{id}/roster [get]
func (h *ReportHandler) CourseRoster(c *gin.Context) {
	roster, err := h.reports.CourseRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}
