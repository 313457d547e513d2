package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edugest/mini-pautas-api/api/swagger"
	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/handler"
	"github.com/edugest/mini-pautas-api/internal/middleware"
	"github.com/edugest/mini-pautas-api/internal/repository"
	"github.com/edugest/mini-pautas-api/internal/service"
	"github.com/edugest/mini-pautas-api/pkg/cache"
	"github.com/edugest/mini-pautas-api/pkg/config"
	"github.com/edugest/mini-pautas-api/pkg/database"
	"github.com/edugest/mini-pautas-api/pkg/jobs"
	"github.com/edugest/mini-pautas-api/pkg/logger"
	corsmiddleware "github.com/edugest/mini-pautas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edugest/mini-pautas-api/pkg/middleware/requestid"
)

// @title Mini-Pautas API
// @version 0.1.0
// @description Grade component catalog, formula evaluation and final-grade engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and notifications disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	componentRepo := repository.NewComponentRepository(db)
	formulaRepo := repository.NewFormulaRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	finalRepo := repository.NewFinalGradeRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, redisClient != nil)

	bands := make([]engine.Band, 0, len(cfg.Grading.Bands))
	for _, band := range cfg.Grading.Bands {
		bands = append(bands, engine.Band{Lower: band.Lower, Label: band.Label})
	}
	calculator := engine.NewCalculator(bands, cfg.Grading.PassingThreshold)

	var notifier engine.Notifier
	if cfg.Notifications.Enabled && redisClient != nil {
		notifier = service.NewNotificationService(cacheRepo, cfg.Notifications.Channel, logr)
	}

	orchestrator := engine.NewOrchestrator(componentRepo, formulaRepo, gradeRepo, finalRepo, notifier, calculator, logr)

	componentSvc := service.NewComponentService(componentRepo, formulaRepo, validate, cfg.Grading.ScaleMax, logr)
	formulaSvc := service.NewFormulaService(formulaRepo, componentRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, componentRepo, orchestrator, cacheSvc, metrics, validate, logr)
	reportSvc := service.NewReportService(finalRepo, cacheSvc, cfg.Reports.CacheTTL, logr)
	recomputeSvc := service.NewRecomputeService(rosterRepo, orchestrator, metrics, jobs.QueueConfig{
		Workers:    cfg.Recompute.Workers,
		BufferSize: cfg.Recompute.BufferSize,
		MaxRetries: cfg.Recompute.MaxRetries,
		RetryDelay: cfg.Recompute.RetryDelay,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	recomputeSvc.Start(ctx)
	defer recomputeSvc.Stop()

	componentHandler := handler.NewComponentHandler(componentSvc)
	formulaHandler := handler.NewFormulaHandler(formulaSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	reportHandler := handler.NewReportHandler(reportSvc, recomputeSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/components", componentHandler.List)
		api.POST("/components", componentHandler.Create)
		api.GET("/components/:id", componentHandler.Get)
		api.PUT("/components/:id", componentHandler.Update)
		api.DELETE("/components/:id", componentHandler.Delete)

		api.GET("/disciplines/:id/formula", formulaHandler.Get)
		api.PUT("/disciplines/:id/formula", formulaHandler.Set)
		api.POST("/disciplines/:id/formula/validate", formulaHandler.Validate)

		api.GET("/grades", gradeHandler.List)
		api.PUT("/grades", gradeHandler.Upsert)
		api.DELETE("/grades", gradeHandler.Delete)

		api.GET("/finals", reportHandler.GetFinal)
		api.GET("/reports/pauta", reportHandler.ClassPauta)
		api.GET("/reports/pauta/export", reportHandler.ExportPauta)
		api.GET("/reports/report-card", reportHandler.ReportCard)

		api.POST("/recompute/students/:id", reportHandler.RecomputeStudent)
		api.POST("/recompute/classes/:id", reportHandler.RecomputeClass)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Info("server stopped", zap.String("addr", addr))
}
