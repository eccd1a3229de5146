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
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/console"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
)

// The console is a diagnostic tool for the administrator. It listens on its
// own port and opens its own pool so it never shares a connection or an
// authorization path with the portal API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "sql-console")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	logr = logr.Named("sql-console")

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Console)
	if err != nil {
		logr.Fatal("failed to open console pool", zap.Error(err))
	}
	defer pool.Close()

	svc := console.NewService(pool, console.Config{
		Timeout:  cfg.Console.StatementTimeout,
		MaxRows:  cfg.Console.MaxRows,
		ReadOnly: cfg.Console.ReadOnly,
	}, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.POST("/sql",
		middleware.LegacyErrors(),
		middleware.JWT(service.NewAuthService(cfg.JWT)),
		middleware.RequireRoles(models.RoleAdmin),
		console.NewHandler(svc).Query,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Console.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("console starting", "addr", srv.Addr, "read_only", cfg.Console.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("console failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
