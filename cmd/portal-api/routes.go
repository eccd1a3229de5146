package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-portal-api/api/swagger"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.Timeout(cfg.Database.StatementTimeout * 2))

	r.GET("/health", a.metricsHandler.Health)
	r.GET("/ready", a.metricsHandler.Ready)
	r.GET("/metrics", a.metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authenticated := []gin.HandlerFunc{middleware.JWT(a.auth), middleware.ResolveIdentity(a.directory)}
	student := middleware.RequireRoles(models.RoleStudent, models.RoleAdmin)
	lecturer := middleware.RequireRoles(models.RoleLecturer)
	staff := middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)

	legacy := r.Group("/api", middleware.LegacyErrors())
	legacy.Use(authenticated...)
	{
		legacy.POST("/enroll", student, a.legacy.Enroll)
		legacy.DELETE("/disenroll", student, a.legacy.Disenroll)
		legacy.POST("/update-grades", lecturer, a.legacy.UpdateGrades)
		legacy.POST("/update-profile", a.legacy.UpdateProfile)
		legacy.POST("/fetch-enrollments", staff, a.legacy.FetchEnrollments)
	}

	v1 := r.Group(cfg.APIPrefix, middleware.WithResponseMeta())
	v1.Use(authenticated...)
	{
		v1.POST("/enrollments", student, a.enrollments.Create)
		v1.DELETE("/enrollments", student, a.enrollments.Delete)

		v1.GET("/courses", a.courses.List)
		v1.GET("/courses/:id", a.courses.Get)
		v1.GET("/courses/:id/enrollments", staff, a.enrollments.Roster)
		v1.PUT("/courses/:id/grades", lecturer, a.grades.SetGrades)

		v1.GET("/students/:id/gpa", a.grades.GPA)
		v1.GET("/students/:id/ects", a.grades.ECTS)

		schedules := v1.Group("/schedules")
		schedules.GET("/students/:id", a.schedules.Student)
		schedules.GET("/lecturers/:id", a.schedules.Lecturer)
		schedules.GET("/courses/:id", a.schedules.Course)
		schedules.GET("/rooms", a.schedules.Rooms)
		schedules.GET("/rooms/:id", a.schedules.Room)

		messages := v1.Group("/messages")
		messages.GET("/inbox", a.messages.Inbox)
		messages.GET("/sent", a.messages.Sent)
		messages.GET("/recipients", a.messages.Recipients)
		messages.POST("", a.messages.Send)
		messages.POST("/course", staff, a.messages.SendCourse)
		messages.POST("/cohort", admin, a.messages.SendCohort)
		messages.POST("/read", a.messages.MarkRead)
		messages.POST("/read-all", a.messages.MarkAllRead)

		dashboards := v1.Group("/dashboard")
		dashboards.GET("/student", student, a.dashboards.Student)
		dashboards.GET("/lecturer", staff, a.dashboards.Lecturer)
		dashboards.GET("/admin", admin, a.dashboards.Admin)

		v1.GET("/exports/transcript", a.exports.Transcript)
		v1.GET("/exports/courses/:id/roster", staff, a.exports.Roster)

		v1.GET("/admin/system", admin, a.metricsHandler.System)
	}

	return r
}
