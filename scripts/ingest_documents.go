package main

import (
	"context"
	"fmt"
	"os"

	"alfredoptarigan/resume-screening/internal/config"
	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/repositories"
	"alfredoptarigan/resume-screening/internal/services"
)

// Rebuilds the Qdrant job description index from the job_postings table.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("🚀 Starting job description ingestion...", nil)

	if cfg.Gemini.APIKey == "" || cfg.Qdrant.URL == "" {
		log.Error("❌ GEMINI_API_KEY and QDRANT_URL are required for ingestion", nil)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Error("❌ Failed to initialize database", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		EmbedModel: cfg.Gemini.EmbedModel,
		Timeout:    cfg.Gemini.Timeout,
		RetryDelay: cfg.Worker.RetryInitialDelay,
	}, log)
	if err != nil {
		log.Error("❌ Failed to initialize Gemini", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
	if err != nil {
		log.Error("❌ Failed to initialize Qdrant", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Error("❌ Failed to initialize collection", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	jobContext := services.NewJobContextService(geminiService, qdrantService, services.NewTextChunker(), log)
	jobService := services.NewJobPostingService(repositories.NewJobPostingRepository(db), jobContext, log)

	indexed, err := jobService.ReindexAll(ctx)
	if err != nil {
		log.Error("❌ Ingestion failed", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	log.Info("🎉 Ingestion completed", map[string]interface{}{"job_postings": indexed})
}
