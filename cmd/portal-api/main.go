package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/cache"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
)

// @title Campus Portal API
// @version 1.0
// @description Enrollment, grading, timetables and messaging for the university portal.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "portal-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("migrations failed", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient)
		}
	}

	app := buildApp(cfg, db, cacheRepo, logr)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	app.metricsHandler = handler.NewMetricsHandler(app.metrics, checks)

	if cfg.Reminders.Enabled {
		if err := app.reminders.Start(ctx); err != nil {
			logr.Fatal("failed to start reminders", zap.Error(err))
		}
		defer app.reminders.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type app struct {
	auth           *service.AuthService
	directory      *service.DirectoryService
	metrics        *service.MetricsService
	reminders      *service.ReminderService
	legacy         *handler.LegacyHandler
	enrollments    *handler.EnrollmentHandler
	grades         *handler.GradeHandler
	courses        *handler.CourseHandler
	schedules      *handler.ScheduleHandler
	messages       *handler.MessageHandler
	dashboards     *handler.DashboardHandler
	exports        *handler.ExportHandler
	metricsHandler *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, cacheRepo service.CacheRepository, logr *zap.Logger) *app {
	requirements := models.Requirements{
		MinimumECTS:         cfg.Requirements.MinimumECTS,
		MaximumECTS:         cfg.Requirements.MaximumECTS,
		LanguageMinimumECTS: cfg.Requirements.LanguageMinimumECTS,
		GPAPassThreshold:    cfg.Requirements.GPAPassThreshold,
	}
	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	lecturerRepo := repository.NewLecturerRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DashboardTTL, logr.Named("cache"), cacheRepo != nil)

	directorySvc := service.NewDirectoryService(studentRepo, lecturerRepo, logr.Named("directory"))
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, cacheSvc, metricsSvc, validate, logr.Named("enrollment"))
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, courseRepo, requirements, cacheSvc, metricsSvc, logr.Named("grading"))
	scheduleSvc := service.NewScheduleService(scheduleRepo, logr.Named("schedule"))
	catalogSvc := service.NewCatalogService(courseRepo, logr.Named("catalog"))
	messageSvc := service.NewMessageService(messageRepo, directorySvc, courseRepo, requirements, cacheSvc, metricsSvc, validate, logr.Named("messaging"))
	profileSvc := service.NewProfileService(studentRepo, lecturerRepo, cacheSvc, validate, logr.Named("profile"))
	exportSvc := service.NewExportService(gradeSvc, enrollmentSvc, directorySvc, courseRepo, logr.Named("export"))
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Profiles:     directorySvc,
		Academics:    gradeSvc,
		Timetables:   scheduleSvc,
		Courses:      catalogSvc,
		Messages:     messageSvc,
		Requirements: studentRepo,
		Lecturers:    lecturerRepo,
		Cache:        cacheSvc,
		Metrics:      metricsSvc,
		Logger:       logr.Named("dashboard"),
		Config: service.DashboardServiceConfig{
			CacheTTL:     cfg.Cache.DashboardTTL,
			Requirements: requirements,
		},
	})
	reminderSvc := service.NewReminderService(messageSvc, service.ReminderConfig{
		Schedule:      cfg.Reminders.Cron,
		Workers:       cfg.Reminders.Workers,
		Retries:       cfg.Reminders.Retries,
		Timeout:       cfg.Reminders.Timeout,
		ECTSTitle:     cfg.Reminders.ECTSTitle,
		LanguageTitle: cfg.Reminders.LanguageTitle,
		Requirements:  requirements,
	}, logr.Named("reminders"))

	return &app{
		auth:        service.NewAuthService(cfg.JWT),
		directory:   directorySvc,
		metrics:     metricsSvc,
		reminders:   reminderSvc,
		legacy:      handler.NewLegacyHandler(enrollmentSvc, gradeSvc, profileSvc, logr.Named("legacy")),
		enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		grades:      handler.NewGradeHandler(gradeSvc),
		courses:     handler.NewCourseHandler(catalogSvc),
		schedules:   handler.NewScheduleHandler(scheduleSvc),
		messages:    handler.NewMessageHandler(messageSvc),
		dashboards:  handler.NewDashboardHandler(dashboardSvc),
		exports:     handler.NewExportHandler(exportSvc),
	}
}
