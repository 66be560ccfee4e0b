package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/models"
)

// JobContextService stores job description chunks in the vector store and
// retrieves the ones most relevant to a resume.
type JobContextService interface {
	IndexJob(ctx context.Context, job *models.JobPosting) error
	Retrieve(ctx context.Context, jobID uuid.UUID, resumeText string) (string, error)
}

const (
	jobChunkSize    = 800
	jobChunkOverlap = 100
	contextLimit    = 3
	queryTextLimit  = 4000
)

type jobContextService struct {
	gemini  GeminiService
	qdrant  QdrantService
	chunker TextChunker
	log     logger.Logger
}

func NewJobContextService(gemini GeminiService, qdrant QdrantService, chunker TextChunker, log logger.Logger) JobContextService {
	return &jobContextService{
		gemini:  gemini,
		qdrant:  qdrant,
		chunker: chunker,
		log:     log,
	}
}

// IndexJob implements JobContextService.
func (s *jobContextService) IndexJob(ctx context.Context, job *models.JobPosting) error {
	text := jobDocument(job)
	chunks := s.chunker.ChunkText(text, jobChunkSize, jobChunkOverlap)

	if err := s.qdrant.DeleteJob(ctx, job.ID.String()); err != nil {
		return fmt.Errorf("failed to clear previous job context: %w", err)
	}

	for i, chunk := range chunks {
		embedding, err := s.gemini.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		if err := s.qdrant.UpsertChunk(ctx, job.ID.String(), i, chunk, embedding); err != nil {
			return fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}

	s.log.Info("📚 Job description indexed", map[string]interface{}{
		"job_id": job.ID.String(),
		"chunks": len(chunks),
	})
	return nil
}

// Retrieve implements JobContextService.
func (s *jobContextService) Retrieve(ctx context.Context, jobID uuid.UUID, resumeText string) (string, error) {
	query := truncateUTF8(resumeText, queryTextLimit)

	embedding, err := s.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results, err := s.qdrant.SearchJobContext(ctx, jobID.String(), embedding, contextLimit)
	if err != nil {
		return "", err
	}

	return FormatRAGContext(results), nil
}

func jobDocument(job *models.JobPosting) string {
	var b strings.Builder
	b.WriteString(job.Title)
	if len(job.RequiredSkills) > 0 {
		b.WriteString("\n\nRequired skills: ")
		b.WriteString(strings.Join(job.RequiredSkills, ", "))
	}
	if desc := strings.TrimSpace(job.Description); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(desc)
	}
	return b.String()
}

type noopJobContext struct{}

// NewNoopJobContext is used when no vector store is configured.
func NewNoopJobContext() JobContextService {
	return noopJobContext{}
}

func (noopJobContext) IndexJob(context.Context, *models.JobPosting) error { return nil }

func (noopJobContext) Retrieve(context.Context, uuid.UUID, string) (string, error) { return "", nil }
