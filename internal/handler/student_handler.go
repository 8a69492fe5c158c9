package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	GetByStudentNumber(ctx context.Context, number string) (*models.Student, error)
	Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id string) error
	Departments(ctx context.Context) ([]string, error)
	EnrollmentYears(ctx context.Context) ([]int, error)
}

// StudentHandler exposes student registry endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name, number or email"
// @Param department query string false "Filter by department"
// @Param enrollmentYear query int false "Filter by enrollment year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "student_number, last_name, enrollment_year or created_at"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	year, err := queryInt(c, "enrollmentYear")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.StudentFilter{
		Search:         strings.TrimSpace(c.Query("search")),
		Department:     strings.TrimSpace(c.Query("department")),
		EnrollmentYear: year,
		SortBy:         c.Query("sort"),
		SortOrder:      c.Query("order"),
	}
	filter.Page, filter.PageSize = paging(c)

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// GetByNumber godoc
// @Summary Get student by student number
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param number path string true "Student number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/number/{number} [get]
func (h *StudentHandler) GetByNumber(c *gin.Context) {
	student, err := h.students.GetByStudentNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req models.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Delete godoc
// @Summary Delete student
// @Description Fails with 409 while any enrollment references the student.
// @Tags Students
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Departments godoc
// @Summary Distinct student departments
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/departments [get]
func (h *StudentHandler) Departments(c *gin.Context) {
	departments, err := h.students.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, departments)
}

// EnrollmentYears godoc
// @Summary Distinct enrollment years
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/enrollment-years [get]
func (h *StudentHandler) EnrollmentYears(c *gin.Context) {
	years, err := h.students.EnrollmentYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, years)
}
