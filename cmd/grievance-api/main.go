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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/api/swagger"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/handler"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/middleware"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/repository"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/seed"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/service"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/migrations"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/ai"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/cache"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/config"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/database"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/jobs"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/logger"
	corsmiddleware "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/middleware/cors"
	reqidmiddleware "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/middleware/requestid"
)

const (
	shutdownTimeout = 10 * time.Second
	cachePrefix     = "grievance"
)

// @title Grievance Redressal API
// @version 1.0.0
// @description Grievance intake, workflow automation and analytics
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, migrations.FS); err != nil {
			return err
		}
		logr.Info("database migrated")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	if err := metrics.RegisterDB(db.DB, cfg.Database.Name); err != nil {
		logr.Warn("database pool metrics unavailable", zap.Error(err))
	}
	cacheService := service.NewCacheService(cacheRepository(redisClient, cfg, logr), metrics, cfg.Analytics.CacheTTL, logr, true)
	validate := validator.New()
	roles := models.NewRoleRegistry()

	grievanceRepo := repository.NewGrievanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	ruleRepo := repository.NewWorkflowRuleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	router := jobs.NewRouter()
	queue := jobs.NewQueue("grievance-jobs", router.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})

	notifications := service.NewNotificationService(notificationRepo, queue, metrics, logr)
	slaHours := cfg.Workflow.SLAHours
	ruleEngine := service.NewWorkflowEngine(service.WithSkipAppliedRules(cfg.Workflow.SkipAppliedRules))
	workflow := service.NewWorkflowService(ruleRepo, grievanceRepo, userRepo, ruleEngine, notifications, cacheService, metrics, validate, logr,
		service.WorkflowServiceOptions{SLAHours: &slaHours, Roles: roles})
	classifier := service.NewClassifierService(remoteAssistant(ctx, cfg.Classifier, logr), cfg.Classifier.Timeout, metrics, logr)
	grievances := service.NewGrievanceService(grievanceRepo, userRepo, classifier, workflow, queue, notifications, cacheService, validate, logr)
	users := service.NewUserService(userRepo, roles, cacheService, validate, logr)
	analytics := service.NewAnalyticsService(grievanceRepo, userRepo, cacheService, metrics, logr, service.AnalyticsOptions{
		Enabled:         cfg.Analytics.Enabled,
		CacheTTL:        cfg.Analytics.CacheTTL,
		TopN:            cfg.Analytics.TopN,
		PredictionLimit: cfg.Analytics.PredictionLimit,
	})

	router.Handle(service.JobDeliverNotifications, notifications.HandleDelivery)
	router.Handle(service.JobApplyWorkflow, workflow.HandleJob)
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Workflow.SeedDefaultRules {
		if err := seedRules(ctx, workflow, logr); err != nil {
			return err
		}
	}
	go workflow.RunSweeper(ctx, cfg.Workflow.SweepInterval)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["cache"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	engine := newEngine(cfg, logr, metrics, checks, handler.Handlers{
		Grievances:    handler.NewGrievanceHandler(grievances),
		Workflow:      handler.NewWorkflowHandler(workflow),
		Analytics:     handler.NewAnalyticsHandler(analytics),
		Users:         handler.NewUserHandler(users),
		Notifications: handler.NewNotificationHandler(notifications),
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	return nil
}

func newEngine(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, checks map[string]handler.Pinger, handlers handler.Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Identity())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	probes := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	r.GET("/metrics", probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers)
	return r
}

func cacheRepository(client *redis.Client, cfg *config.Config, logr *zap.Logger) service.CacheRepository {
	if client != nil {
		return repository.NewCacheRepository(client, cachePrefix, logr)
	}
	logr.Info("redis disabled, using in-process cache", zap.Int("size", cfg.Cache.LRUSize))
	return repository.NewMemoryCacheRepository(cfg.Cache.LRUSize, cfg.Analytics.CacheTTL)
}

// remoteAssistant returns nil when the keyword classifier is selected or the backend cannot be built.
func remoteAssistant(ctx context.Context, cfg config.ClassifierConfig, logr *zap.Logger) ai.Assistant {
	var (
		assistant ai.Assistant
		err       error
	)
	switch cfg.Provider {
	case config.ClassifierGemini:
		assistant, err = ai.NewGeminiAssistant(ctx, cfg.APIKey, cfg.Model)
	case config.ClassifierOpenAI:
		assistant, err = ai.NewOpenAIAssistant(cfg.APIKey, cfg.Model)
	default:
		return nil
	}
	if err != nil {
		logr.Warn("classifier backend unavailable, using keyword heuristics", zap.String("provider", cfg.Provider), zap.Error(err))
		return nil
	}
	logr.Info("classifier backend ready", zap.String("provider", cfg.Provider))
	return assistant
}

func seedRules(ctx context.Context, workflow *service.WorkflowService, logr *zap.Logger) error {
	rules, err := seed.DefaultRules()
	if err != nil {
		return fmt.Errorf("load default rules: %w", err)
	}
	created, err := workflow.SeedRules(ctx, rules)
	if err != nil {
		return fmt.Errorf("seed workflow rules: %w", err)
	}
	if created > 0 {
		logr.Info("seeded default workflow rules", zap.Int("count", created))
	}
	return nil
}
