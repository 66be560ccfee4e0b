package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alfredoptarigan/resume-screening/internal/config"
	"alfredoptarigan/resume-screening/internal/handlers"
	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/middleware"
	"alfredoptarigan/resume-screening/internal/repositories"
	"alfredoptarigan/resume-screening/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("✅ Config loaded successfully", map[string]interface{}{"env": cfg.Server.Env})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Error("❌ Failed to initialize database", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	// Initialize repositories
	screeningRepo := repositories.NewScreeningRepository(db)
	resultRepo := repositories.NewResultRepository(db)
	jobRepo := repositories.NewJobPostingRepository(db)
	log.Info("✅ Repositories initialized successfully", nil)

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Error("❌ Failed to create upload directory", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	pdfParser := services.NewPDFParserService()

	thresholds := services.Thresholds{
		Strong:   cfg.Screening.StrongThreshold,
		Moderate: cfg.Screening.ModerateThreshold,
	}

	// Analytics cache (optional)
	analyticsCache := services.NewNoopAnalyticsCache()
	if cfg.Redis.Address != "" {
		redisClient, err := services.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("⚠️ Redis unavailable, analytics cache disabled", map[string]interface{}{"error": err})
		} else {
			defer redisClient.Close()
			analyticsCache = services.NewRedisAnalyticsCache(redisClient, cfg.Redis.AnalyticsTTL, log)
			log.Info("✅ Redis initialized successfully", map[string]interface{}{"address": cfg.Redis.Address})
		}
	}

	// Gemini AI (optional: without it every analysis uses fallback content)
	var geminiService services.GeminiService
	if cfg.Gemini.APIKey != "" {
		geminiService, err = services.NewGeminiService(ctx, services.GeminiOptions{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			EmbedModel: cfg.Gemini.EmbedModel,
			Timeout:    cfg.Gemini.Timeout,
			RetryDelay: cfg.Worker.RetryInitialDelay,
		}, log)
		if err != nil {
			log.Warn("⚠️ Gemini unavailable, using fallback analysis", map[string]interface{}{"error": err})
			geminiService = nil
		}
	} else {
		log.Warn("⚠️ GEMINI_API_KEY not set, using fallback analysis", nil)
	}

	// Qdrant job description context (optional, needs Gemini embeddings)
	jobContext := services.NewNoopJobContext()
	if cfg.Qdrant.URL != "" && geminiService != nil {
		qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
		if err == nil {
			err = qdrantService.InitCollection(ctx)
		}
		if err != nil {
			log.Warn("⚠️ Qdrant unavailable, job context disabled", map[string]interface{}{"error": err})
		} else {
			jobContext = services.NewJobContextService(geminiService, qdrantService, services.NewTextChunker(), log)
			log.Info("✅ Qdrant initialized successfully", nil)
		}
	}

	analyzer := services.NewAnalyzer(geminiService, thresholds, cfg.Gemini.MaxRetries, log)
	processor := services.NewResumeProcessor(screeningRepo, jobRepo, pdfParser, jobContext, analyzer, log)

	// Initialize worker
	worker := services.NewWorker(screeningRepo, processor, analyticsCache, services.WorkerOptions{
		Concurrency:  cfg.Worker.Concurrency,
		QueueSize:    cfg.Worker.QueueSize,
		PollInterval: cfg.Worker.PollInterval,
		TaskTimeout:  cfg.Worker.TaskTimeout,
		MaxAttempts:  cfg.Worker.RetryMaxAttempts,
	}, log)
	worker.Start(ctx)

	screeningService := services.NewScreeningService(
		screeningRepo,
		resultRepo,
		jobRepo,
		storageService,
		worker,
		analyticsCache,
		services.ScreeningOptions{
			MaxBatchSize:    cfg.Screening.MaxBatchSize,
			MaxFileSize:     cfg.Storage.MaxFileSize,
			DefaultPageSize: cfg.Screening.DefaultPageSize,
			MaxPageSize:     cfg.Screening.MaxPageSize,
			Thresholds:      thresholds,
		},
		log,
	)
	jobService := services.NewJobPostingService(jobRepo, jobContext, log)
	log.Info("✅ Services initialized successfully", nil)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:           "Resume Screening API",
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		BodyLimit:         int(cfg.Storage.MaxUploadSize),
		StreamRequestBody: true,
		ErrorHandler:      middleware.ErrorHandler(log, cfg.IsProduction()),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(
		app,
		middleware.RequireAuth(middleware.AuthConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer}),
		handlers.NewScreeningHandler(screeningService),
		handlers.NewJobHandler(jobService),
	)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("🛑 Shutting down server...", nil)
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("❌ Server forced to shutdown", map[string]interface{}{"error": err})
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", map[string]interface{}{"addr": addr})

	if err := app.Listen(addr); err != nil {
		log.Error("❌ Failed to start server", map[string]interface{}{"error": err})
	}

	worker.Stop()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("👋 Server exited", nil)
}
