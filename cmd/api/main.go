package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/study-planner-api/api/swagger"
	"github.com/noah-isme/study-planner-api/internal/handler"
	"github.com/noah-isme/study-planner-api/internal/repository"
	"github.com/noah-isme/study-planner-api/internal/server"
	"github.com/noah-isme/study-planner-api/internal/service"
	"github.com/noah-isme/study-planner-api/pkg/cache"
	"github.com/noah-isme/study-planner-api/pkg/config"
	"github.com/noah-isme/study-planner-api/pkg/database"
	"github.com/noah-isme/study-planner-api/pkg/jobs"
	"github.com/noah-isme/study-planner-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title Study Planner API
// @version 1.0.0
// @description Generates study timetables from outstanding material and manages saved study plans
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		logr.Info("database schema ensured")
	}

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Planner.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, "planner", logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
			checks["redis"] = redisRepo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Planner.CacheTTL, logr, cacheRepo != nil)

	var tasks *jobs.Queue
	if cacheSvc.Enabled() {
		tasks = jobs.NewQueue("cache", cacheSvc.HandleJob, jobs.QueueConfig{RetryDelay: 2 * time.Second, Logger: logr})
		tasks.Start(ctx)
		defer tasks.Stop()
	}

	var timetableHandler *handler.TimetableHandler
	if cfg.Planner.Enabled {
		timetableHandler = handler.NewTimetableHandler(newTimetableService(cfg, db, cacheSvc, metricsSvc, tasks, logr))
	} else {
		logr.Warn("planner routes disabled by ENABLE_PLANNER")
	}

	router := server.NewRouter(server.RouterConfig{
		APIPrefix:        cfg.APIPrefix,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		EnableDocs:       cfg.Env != config.EnvProduction,
		Logger:           logr,
		Metrics:          metricsSvc,
		TimetableHandler: timetableHandler,
		MetricsHandler:   handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newTimetableService(cfg *config.Config, db *sqlx.DB, cacheSvc *service.CacheService, metricsSvc *service.MetricsService, tasks *jobs.Queue, logr *zap.Logger) *service.TimetableService {
	planner := cfg.Planner
	params := service.TimetableServiceParams{
		Subjects: repository.NewSubjectRepository(db),
		Plans:    repository.NewStudyPlanRepository(db),
		Sessions: repository.NewStudyPlanSessionRepository(db),
		Tx:       db,
		Cache:    cacheSvc,
		Metrics:  metricsSvc,
		Logger:   logr.Named("timetable"),
		Config: service.TimetableConfig{
			ProposalTTL:        planner.ProposalTTL,
			DefaultHoursPerDay: planner.DefaultHoursPerDay,
			DefaultDaysCount:   planner.DefaultDaysCount,
			DefaultBlocks:      planner.DefaultBlocks,
			Granularity:        planner.GranularityMinutes,
			MaxDaysCount:       planner.MaxDaysCount,
			CacheTTL:           planner.CacheTTL,
			Location:           planner.Location,
		},
	}
	if tasks != nil {
		params.Tasks = tasks
	}
	return service.NewTimetableService(params)
}
