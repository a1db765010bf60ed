package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sahilchouksey/course-review-api/api"
	"github.com/sahilchouksey/course-review-api/config"
	"github.com/sahilchouksey/course-review-api/database"
	"github.com/sahilchouksey/course-review-api/handlers"
	ai_handlers "github.com/sahilchouksey/course-review-api/handlers/ai"
	auth_handlers "github.com/sahilchouksey/course-review-api/handlers/auth"
	course_handlers "github.com/sahilchouksey/course-review-api/handlers/course"
	review_handlers "github.com/sahilchouksey/course-review-api/handlers/review"
	"github.com/sahilchouksey/course-review-api/router"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/services/cron"
	"github.com/sahilchouksey/course-review-api/services/inference"
	"github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/sahilchouksey/course-review-api/utils/cache"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
	"github.com/sahilchouksey/course-review-api/utils/observability"
)

const shutdownTimeout = 15 * time.Second

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil && !os.IsNotExist(err) {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(getEnv.LOG_MODE)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if getEnv.JWT_SECRET == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	shutdownTracing := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		Enabled:     getEnv.OTEL_ENABLED,
		ServiceName: "course-review-api",
		Environment: getEnv.GO_ENV,
		Endpoint:    getEnv.OTEL_EXPORTER_OTLP_ENDPOINT,
		Insecure:    getEnv.GO_ENV != "production",
		SampleRatio: 1,
	})

	// Initialize GORM database connection
	store, err := database.StartGORM(log)
	if err != nil {
		log.Error("could not connect to postgres, check whether it is running", "error", err)
		return err
	}

	if err := store.Init(); err != nil {
		log.Error("failed to run migrations", "error", err)
		return err
	}
	db := store.GetDB()

	// Redis is optional: without it summaries are not cached and logins are
	// not throttled
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", "error", err)
			redisCache = nil
		}
	}

	svc := NewServices(db, log)

	// AI summaries
	var summarizer services.Summarizer
	if getEnv.MODEL_ACCESS_KEY != "" {
		summarizer = inference.NewClient(inference.Config{
			APIKey:  getEnv.MODEL_ACCESS_KEY,
			BaseURL: getEnv.INFERENCE_BASE_URL,
			Model:   getEnv.INFERENCE_MODEL,
		})
	} else {
		log.Warn("MODEL_ACCESS_KEY not set, AI summaries are disabled")
	}
	summaryOpts := []services.SummaryOption{
		services.WithSummaryTimeout(time.Duration(getEnv.SUMMARY_TIMEOUT_SECONDS) * time.Second),
	}
	if redisCache != nil {
		summaryOpts = append(summaryOpts, services.WithSummaryCache(
			redisCache,
			cache.SummaryKey,
			time.Duration(getEnv.SUMMARY_CACHE_TTL_HOURS)*time.Hour,
		))
	}
	summaries := services.NewSummaryService(svc.CourseDB, svc.ReviewDB, summarizer, log.With("component", "summary"), summaryOpts...)

	// Auth
	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "course-review-api"
	}
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        getEnv.JWT_SECRET,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})
	blacklist := auth.NewBlacklistService(db)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, blacklist, svc.Users)

	// A typed nil would defeat the store's nil check
	var attempts middleware.AttemptStore
	if redisCache != nil {
		attempts = redisCache
	}
	bruteForce := middleware.NewBruteForceProtection(attempts, log.With("component", "brute_force"))

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(db, svc.Stats, log.With("component", "cron"))
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, the API works without background jobs
			log.Warn("failed to start cron jobs", "error", err)
			cronManager = nil
		}
	}

	checks := map[string]handlers.HealthCheck{
		"database": func(context.Context) error { return store.HealthCheck() },
	}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), log)
	app := server.GetEngine()

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    strings.TrimSpace(getEnv.ALLOWED_ORIGINS),
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	}, log)
	app.Use(observability.Tracing())

	router.SetupRoutes(app, router.Dependencies{
		Health:     handlers.NewHealthHandler(checks),
		Auth:       auth_handlers.NewAuthHandler(svc.Accounts, jwtManager, blacklist, bruteForce, log.With("component", "auth")),
		Courses:    course_handlers.NewCourseHandler(svc.Query, svc.Courses, svc.Stats),
		Reviews:    review_handlers.NewReviewHandler(svc.Reviews, svc.Query, log.With("component", "reviews")),
		Summaries:  ai_handlers.NewSummaryHandler(summaries),
		AuthGuard:  authMiddleware,
		BruteForce: bruteForce,
	})

	// Run until the listener fails or a signal arrives
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-errCh:
	case s := <-sig:
		log.Info("shutting down", "signal", s.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if cronManager != nil {
		cronManager.Stop()
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if err := store.Close(); err != nil {
		log.Warn("closing database", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Warn("tracing shutdown", "error", err)
	}
	return runErr
}
