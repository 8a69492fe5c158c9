package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/middleware"
	"github.com/noah-isme/uni-records-api/internal/models"
)

// Handlers groups every HTTP handler served under the API prefix.
type Handlers struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Results     *ResultHandler
	Reports     *ReportHandler
	Portal      *PortalHandler
	Exports     *ExportHandler
	Metrics     *MetricsHandler
}

// RouteDeps carries the collaborators of the route middleware chain.
type RouteDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
	Logger *zap.Logger
}

// RegisterRoutes mounts the API under prefix. Admin routes require the ADMIN
// role; portal routes require a student account.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, deps RouteDeps) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/refresh", h.Auth.Refresh)

	api.GET("/exports/download/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	audited := func(action, resource string) gin.HandlerFunc {
		if deps.Audit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	students := admin.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", audited("CREATE", "student"), h.Students.Create)
	students.GET("/departments", h.Students.Departments)
	students.GET("/enrollment-years", h.Students.EnrollmentYears)
	students.GET("/number/:number", h.Students.GetByNumber)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", audited("UPDATE", "student"), h.Students.Update)
	students.DELETE("/:id", audited("DELETE", "student"), h.Students.Delete)
	students.GET("/:id/results", h.Results.ByStudent)

	courses := admin.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", audited("CREATE", "course"), h.Courses.Create)
	courses.GET("/departments", h.Courses.Departments)
	courses.GET("/code/:code", h.Courses.GetByCode)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", audited("UPDATE", "course"), h.Courses.Update)
	courses.DELETE("/:id", audited("DELETE", "course"), h.Courses.Delete)
	courses.GET("/:id/enrollment-count", h.Courses.EnrollmentCount)
	courses.GET("/:id/results", h.Results.ByCourse)

	enrollments := admin.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", audited("ADMIT", "enrollment"), h.Enrollments.Admit)
	enrollments.GET("/lookup", h.Enrollments.Lookup)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.PATCH("/:id", audited("UPDATE", "enrollment"), h.Enrollments.Update)
	enrollments.POST("/:id/withdraw", audited("WITHDRAW", "enrollment"), h.Enrollments.Withdraw)
	enrollments.DELETE("/:id", audited("DELETE", "enrollment"), h.Enrollments.Delete)
	enrollments.GET("/:id/result", h.Results.ByEnrollment)

	results := admin.Group("/results")
	results.POST("", audited("RECORD", "result"), h.Results.Record)
	results.GET("/:id", h.Results.Get)
	results.PUT("/:id", audited("AMEND", "result"), h.Results.Amend)
	results.DELETE("/:id", audited("DELETE", "result"), h.Results.Delete)

	reports := admin.Group("/reports")
	reports.GET("/results", h.Reports.ResultsInRange)
	reports.GET("/students/:id/gpa", h.Reports.StudentGPA)
	reports.GET("/students/:id/transcript", h.Reports.Transcript)
	reports.GET("/courses/:id/average", h.Reports.CourseAverage)
	reports.GET("/courses/:id/summary", h.Reports.CourseSummary)
	reports.GET("/courses/:id/roster", h.Reports.CourseRoster)

	exports := admin.Group("/exports")
	exports.POST("", audited("EXPORT", "export_job"), h.Exports.Create)
	exports.GET("/:id", h.Exports.Status)
	exports.GET("/render/:kind/:id", h.Exports.Render)

	admin.GET("/system/metrics", h.Metrics.Snapshot)

	portal := secured.Group("/portal")
	portal.Use(middleware.RequireStudent())
	portal.GET("", h.Portal.Overview)
	portal.GET("/profile", h.Portal.Profile)
	portal.GET("/courses/available", h.Portal.AvailableCourses)
	portal.GET("/courses/enrolled", h.Portal.EnrolledCourses)
	portal.POST("/courses/:courseId/enroll", h.Portal.Enroll)
	portal.POST("/courses/:courseId/drop", h.Portal.Drop)
	portal.GET("/enrollments", h.Portal.Enrollments)
	portal.GET("/results", h.Portal.Results)
	portal.GET("/gpa", h.Portal.GPA)
	portal.GET("/transcript", h.Portal.Transcript)
}
