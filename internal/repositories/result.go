package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-screening/internal/models"
)

type ResultRepository interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.ScreeningResult, int64, error)
	MatchPercentages(ctx context.Context, jobID uuid.UUID) ([]int, error)
	ExistingCandidates(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID) ([]uuid.UUID, error)
	ReplaceShortlist(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID) error
	GetShortlist(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error)
}

var sortColumns = map[string]string{
	models.SortByMatchPercentage: "match_percentage",
	models.SortByCreatedAt:       "created_at",
	models.SortByCandidateName:   "candidate_name",
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) filtered(ctx context.Context, f models.ResultFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.ScreeningResult{}).
		Where("screening_job_id = ?", f.ScreeningJobID)
	if f.MinMatch != nil {
		q = q.Where("match_percentage >= ?", *f.MinMatch)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// OrderClause builds a deterministic ORDER BY; id breaks every tie.
func OrderClause(sortBy string, desc bool) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = sortColumns[models.SortByMatchPercentage]
	}
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, id ASC", column, direction)
}

// List implements ResultRepository. A zero Limit returns every matching row.
func (r *resultRepository) List(ctx context.Context, f models.ResultFilter) ([]models.ScreeningResult, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	q := r.filtered(ctx, f).Order(OrderClause(f.SortBy, f.SortDesc))
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	results := make([]models.ScreeningResult, 0)
	if err := q.Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}
	return results, total, nil
}

// MatchPercentages implements ResultRepository.
func (r *resultRepository) MatchPercentages(ctx context.Context, jobID uuid.UUID) ([]int, error) {
	var scores []int
	err := r.db.WithContext(ctx).Model(&models.ScreeningResult{}).
		Where("screening_job_id = ?", jobID).
		Pluck("match_percentage", &scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load match percentages: %w", err)
	}
	return scores, nil
}

// ExistingCandidates implements ResultRepository.
func (r *resultRepository) ExistingCandidates(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.ScreeningResult{}).
		Where("screening_job_id = ? AND candidate_id IN ?", jobID, candidateIDs).
		Pluck("candidate_id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up candidates: %w", err)
	}
	return found, nil
}

// ReplaceShortlist implements ResultRepository.
func (r *resultRepository) ReplaceShortlist(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("screening_job_id = ?", jobID).Delete(&models.ShortlistEntry{}).Error; err != nil {
			return fmt.Errorf("failed to clear shortlist: %w", err)
		}

		err := tx.Model(&models.ScreeningResult{}).
			Where("screening_job_id = ?", jobID).
			Update("status", models.ResultStatusScreened).Error
		if err != nil {
			return fmt.Errorf("failed to reset result status: %w", err)
		}

		if len(candidateIDs) == 0 {
			return nil
		}

		entries := make([]models.ShortlistEntry, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			entries = append(entries, models.ShortlistEntry{ScreeningJobID: jobID, CandidateID: id})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to save shortlist: %w", err)
		}

		err = tx.Model(&models.ScreeningResult{}).
			Where("screening_job_id = ? AND candidate_id IN ?", jobID, candidateIDs).
			Update("status", models.ResultStatusShortlisted).Error
		if err != nil {
			return fmt.Errorf("failed to mark shortlisted results: %w", err)
		}
		return nil
	})
}

// GetShortlist implements ResultRepository.
func (r *resultRepository) GetShortlist(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).Model(&models.ShortlistEntry{}).
		Where("screening_job_id = ?", jobID).
		Order("created_at ASC, candidate_id ASC").
		Pluck("candidate_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load shortlist: %w", err)
	}
	return ids, nil
}
