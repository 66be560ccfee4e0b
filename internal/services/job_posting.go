package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"alfredoptarigan/resume-screening/internal/apperrors"
	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/repositories"
	"alfredoptarigan/resume-screening/internal/validation"
)

type JobPostingService interface {
	Create(ctx context.Context, employerID uuid.UUID, req models.CreateJobPostingRequest) (*models.JobPosting, error)
	Get(ctx context.Context, employerID, id uuid.UUID) (*models.JobPosting, error)
	ReindexAll(ctx context.Context) (int, error)
}

type jobPostingService struct {
	repo       repositories.JobPostingRepository
	jobContext JobContextService
	log        logger.Logger
}

func NewJobPostingService(repo repositories.JobPostingRepository, jobContext JobContextService, log logger.Logger) JobPostingService {
	return &jobPostingService{
		repo:       repo,
		jobContext: jobContext,
		log:        log,
	}
}

// normalizeSkills keeps the first spelling of each skill and drops blanks.
func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		display := strings.Join(strings.Fields(s), " ")
		key := NormalizeSkill(display)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, display)
	}
	return out
}

// Create implements JobPostingService. Indexing the description for retrieval is best effort.
func (s *jobPostingService) Create(ctx context.Context, employerID uuid.UUID, req models.CreateJobPostingRequest) (*models.JobPosting, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	job := &models.JobPosting{
		ID:             uuid.New(),
		EmployerID:     employerID,
		Title:          req.Title,
		Description:    strings.TrimSpace(req.Description),
		RequiredSkills: datatypes.JSONSlice[string](normalizeSkills(req.RequiredSkills)),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, apperrors.NewInternalError("failed to create job posting", err)
	}

	if err := s.jobContext.IndexJob(ctx, job); err != nil {
		s.log.Warn("⚠️ Failed to index job description", map[string]interface{}{
			"job_id": job.ID.String(),
			"error":  err,
		})
	}

	s.log.Info("📝 Job posting created", map[string]interface{}{
		"job_id": job.ID.String(),
		"skills": len(job.RequiredSkills),
	})
	return job, nil
}

// Get implements JobPostingService.
func (s *jobPostingService) Get(ctx context.Context, employerID, id uuid.UUID) (*models.JobPosting, error) {
	job, err := s.repo.FindForEmployer(ctx, id, employerID)
	if err != nil {
		return nil, notFoundOr(err, "job posting")
	}
	return job, nil
}

// ReindexAll rebuilds the vector store entries of every job posting.
func (s *jobPostingService) ReindexAll(ctx context.Context) (int, error) {
	jobs, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list job postings: %w", err)
	}

	indexed := 0
	for i := range jobs {
		if err := s.jobContext.IndexJob(ctx, &jobs[i]); err != nil {
			s.log.Error("❌ Failed to index job posting", map[string]interface{}{
				"job_id": jobs[i].ID.String(),
				"error":  err,
			})
			continue
		}
		indexed++
	}
	return indexed, nil
}
