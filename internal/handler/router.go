package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/class1/class1-admin-api/internal/middleware"
	"github.com/class1/class1-admin-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth        *AuthHandler
	Instructors *InstructorHandler
	Students    *StudentHandler
	Progress    *ProgressHandler
	Surveys     *SurveyHandler
	Reports     *ReportHandler
	Dashboard   *DashboardHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API under prefix. Survey submission and report
// downloads stay public; everything else behind prefix requires a token.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	// Public: login, the survey intake form, and signed downloads.
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/surveys", h.Surveys.Submit)
	if h.Reports != nil {
		api.GET("/reports/download/:token", h.Reports.Download)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	protected.GET("/auth/me", h.Auth.Me)
	protected.POST("/auth/change-password", h.Auth.ChangePassword)
	protected.POST("/auth/register", middleware.RequireAdmin(), h.Auth.Register)

	protected.GET("/instructors", h.Instructors.List)
	protected.POST("/instructors", h.Instructors.Create)
	protected.GET("/instructors/:id", h.Instructors.Get)
	protected.PUT("/instructors/:id", h.Instructors.Update)
	protected.DELETE("/instructors/:id", h.Instructors.Delete)

	protected.GET("/students", h.Students.List)
	protected.POST("/students", h.Students.Create)
	protected.GET("/students/next-member-number", h.Students.NextMemberNumber)
	protected.GET("/students/:id", h.Students.Get)
	protected.PUT("/students/:id", h.Students.Update)
	protected.DELETE("/students/:id", h.Students.Delete)

	protected.GET("/weekly/calendar/:monthKey", h.Progress.Calendar)
	protected.GET("/weekly/:weekKey", h.Progress.GetWeek)
	protected.POST("/weekly/:weekKey", h.Progress.UpsertWeekly)

	protected.GET("/monthly/:monthKey", h.Progress.GetMonth)
	protected.POST("/monthly/:monthKey", h.Progress.UpsertMonthly)

	protected.GET("/surveys", h.Surveys.List)
	protected.GET("/surveys/months", h.Surveys.Months)
	protected.GET("/surveys/:id", h.Surveys.Get)
	protected.DELETE("/surveys/:id", h.Surveys.Delete)

	if h.Reports != nil {
		protected.POST("/reports", h.Reports.Create)
		protected.GET("/reports", h.Reports.List)
		protected.GET("/reports/:id", h.Reports.Status)
	}

	protected.GET("/dashboard/summary", h.Dashboard.Summary)
}
