package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/dto"
	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type portalService interface {
	Profile(ctx context.Context, studentID string) (*models.Student, error)
	Overview(ctx context.Context, studentID string) (*dto.PortalOverview, error)
	AvailableCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error)
	EnrolledCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error)
	Enrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Results(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	GPA(ctx context.Context, studentID string) (float64, error)
	Transcript(ctx context.Context, studentID string) (*dto.Transcript, error)
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Drop(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

// PortalHandler serves the self-service views of the signed-in student.
type PortalHandler struct {
	portal portalService
}

// NewPortalHandler constructs PortalHandler.
func NewPortalHandler(portal portalService) *PortalHandler {
	return &PortalHandler{portal: portal}
}

func currentStudent(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.StudentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "student account required"))
		return "", false
	}
	return claims.StudentID, true
}

// Profile godoc
// @Summary Signed-in student profile
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/profile [get]
func (h *PortalHandler) Profile(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	student, err := h.portal.Profile(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Overview godoc
// @Summary Portal landing view
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal [get]
func (h *PortalHandler) Overview(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	overview, err := h.portal.Overview(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview)
}

// AvailableCourses godoc
// @Summary Courses the student has never enrolled in
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/courses/available [get]
func (h *PortalHandler) AvailableCourses(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	courses, err := h.portal.AvailableCourses(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// EnrolledCourses godoc
// @Summary Courses the student is currently enrolled in
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/courses/enrolled [get]
func (h *PortalHandler) EnrolledCourses(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	courses, err := h.portal.EnrolledCourses(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Enrollments godoc
// @Summary Every enrollment of the student
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/enrollments [get]
func (h *PortalHandler) Enrollments(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	items, err := h.portal.Enrollments(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Results godoc
// @Summary Results of the student
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/results [get]
func (h *PortalHandler) Results(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	results, err := h.portal.Results(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}

// GPA godoc
// @Summary Average GPA of the student
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/gpa [get]
func (h *PortalHandler) GPA(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	gpa, err := h.portal.GPA(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.StudentGPAResponse{StudentID: studentID, AverageGPA: gpa})
}

// Transcript godoc
// @Summary Transcript of the student
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /portal/transcript [get]
func (h *PortalHandler) Transcript(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	transcript, err := h.portal.Transcript(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, transcript)
}

// Enroll godoc
// @Summary Enroll the student into a course
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portal/courses/{courseId}/enroll [post]
func (h *PortalHandler) Enroll(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	enrollment, err := h.portal.Enroll(c.Request.Context(), studentID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop a course
// @Tags Portal
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /portal/courses/{courseId}/drop [post]
func (h *PortalHandler) Drop(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	enrollment, err := h.portal.Drop(c.Request.Context(), studentID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}
