package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-screening/internal/models"
)

type JobPostingRepository interface {
	Create(ctx context.Context, job *models.JobPosting) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.JobPosting, error)
	FindForEmployer(ctx context.Context, id, employerID uuid.UUID) (*models.JobPosting, error)
	FindAll(ctx context.Context) ([]models.JobPosting, error)
}

type jobPostingRepository struct {
	db *gorm.DB
}

func NewJobPostingRepository(db *gorm.DB) JobPostingRepository {
	return &jobPostingRepository{db: db}
}

// Create implements JobPostingRepository.
func (r *jobPostingRepository) Create(ctx context.Context, job *models.JobPosting) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job posting: %w", err)
	}
	return nil
}

// FindByID implements JobPostingRepository.
func (r *jobPostingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find job posting: %w", err)
	}
	return &job, nil
}

// FindForEmployer implements JobPostingRepository.
func (r *jobPostingRepository) FindForEmployer(ctx context.Context, id, employerID uuid.UUID) (*models.JobPosting, error) {
	var job models.JobPosting
	err := r.db.WithContext(ctx).
		Where("id = ? AND employer_id = ?", id, employerID).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find job posting: %w", err)
	}
	return &job, nil
}

// FindAll implements JobPostingRepository.
func (r *jobPostingRepository) FindAll(ctx context.Context) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list job postings: %w", err)
	}
	return jobs, nil
}
