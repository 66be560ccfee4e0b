package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/resume-screening/internal/models"
)

// ErrTaskNotClaimable means another worker claimed the task or it left the queued state.
var ErrTaskNotClaimable = errors.New("task is not queued")

// ErrJobFinished means the screening job already reached a terminal state.
var ErrJobFinished = errors.New("screening job already finished")

// ErrTaskNotRunning means the task was cancelled or finished while it was being processed.
var ErrTaskNotRunning = errors.New("task is not running")

type ScreeningRepository interface {
	CreateBatch(ctx context.Context, job *models.ScreeningJob, tasks []models.ScreeningTask) error
	FindJob(ctx context.Context, id uuid.UUID) (*models.ScreeningJob, error)
	FindJobForEmployer(ctx context.Context, id, employerID uuid.UUID) (*models.ScreeningJob, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
	CancelJob(ctx context.Context, id uuid.UUID) error

	ClaimTask(ctx context.Context, taskID uuid.UUID) (*models.ScreeningTask, error)
	CompleteTask(ctx context.Context, task *models.ScreeningTask, result *models.ScreeningResult) (*models.ScreeningJob, error)
	FailTask(ctx context.Context, task *models.ScreeningTask, errorMsg string) (*models.ScreeningJob, error)
	RequeueTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error
	RequeueStaleTasks(ctx context.Context) (int64, error)
	RetryFailedTasks(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error)
	FindQueuedTasks(ctx context.Context, limit int) ([]models.ScreeningTask, error)
	FindTasks(ctx context.Context, jobID uuid.UUID) ([]models.ScreeningTask, error)
	CountTasks(ctx context.Context, jobID uuid.UUID) (models.TaskCounts, error)
}

// advanceJobSQL counts one finished task. The predicate keeps processed_count <= total_resumes
// and leaves cancelled or finished jobs untouched.
const advanceJobSQL = `UPDATE screening_jobs SET
	processed_count = processed_count + 1,
	failed_count = failed_count + ?,
	status = CASE
		WHEN processed_count + 1 < total_resumes THEN 'processing'
		WHEN failed_count + ? = total_resumes THEN 'failed'
		ELSE 'completed'
	END,
	completed_at = CASE WHEN processed_count + 1 = total_resumes THEN now() ELSE completed_at END,
	updated_at = now()
WHERE id = ? AND processed_count < total_resumes AND status IN ('pending', 'processing')`

type screeningRepository struct {
	db *gorm.DB
}

func NewScreeningRepository(db *gorm.DB) ScreeningRepository {
	return &screeningRepository{db: db}
}

// CreateBatch implements ScreeningRepository.
func (r *screeningRepository) CreateBatch(ctx context.Context, job *models.ScreeningJob, tasks []models.ScreeningTask) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to create screening job: %w", err)
		}
		for i := range tasks {
			tasks[i].ScreeningJobID = job.ID
		}
		if len(tasks) > 0 {
			if err := tx.Create(&tasks).Error; err != nil {
				return fmt.Errorf("failed to create screening tasks: %w", err)
			}
		}
		return nil
	})
}

// FindJob implements ScreeningRepository.
func (r *screeningRepository) FindJob(ctx context.Context, id uuid.UUID) (*models.ScreeningJob, error) {
	return findJob(r.db.WithContext(ctx), id)
}

// FindJobForEmployer implements ScreeningRepository.
func (r *screeningRepository) FindJobForEmployer(ctx context.Context, id, employerID uuid.UUID) (*models.ScreeningJob, error) {
	var job models.ScreeningJob
	err := r.db.WithContext(ctx).
		Where("id = ? AND employer_id = ?", id, employerID).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find screening job: %w", err)
	}
	return &job, nil
}

func findJob(db *gorm.DB, id uuid.UUID) (*models.ScreeningJob, error) {
	var job models.ScreeningJob
	if err := db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find screening job: %w", err)
	}
	return &job, nil
}

// DeleteJob implements ScreeningRepository.
func (r *screeningRepository) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("screening_job_id = ?", id).Delete(&models.ShortlistEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete shortlist: %w", err)
		}
		if err := tx.Where("screening_job_id = ?", id).Delete(&models.ScreeningResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete results: %w", err)
		}
		if err := tx.Where("screening_job_id = ?", id).Delete(&models.ScreeningTask{}).Error; err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.ScreeningJob{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete screening job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CancelJob implements ScreeningRepository.
func (r *screeningRepository) CancelJob(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScreeningJob{}).
			Where("id = ? AND status IN ?", id, []models.ScreeningJobStatus{models.JobStatusPending, models.JobStatusProcessing}).
			Updates(map[string]interface{}{
				"status":       models.JobStatusCancelled,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to cancel screening job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrJobFinished
		}

		err := tx.Model(&models.ScreeningTask{}).
			Where("screening_job_id = ? AND status IN ?", id, []models.TaskStatus{models.TaskStatusQueued, models.TaskStatusRunning}).
			Updates(map[string]interface{}{
				"status":      models.TaskStatusCancelled,
				"finished_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to cancel screening tasks: %w", err)
		}
		return nil
	})
}

// ClaimTask implements ScreeningRepository. Only one caller can move a task out of queued.
func (r *screeningRepository) ClaimTask(ctx context.Context, taskID uuid.UUID) (*models.ScreeningTask, error) {
	var task models.ScreeningTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScreeningTask{}).
			Where("id = ? AND status = ?", taskID, models.TaskStatusQueued).
			Updates(map[string]interface{}{
				"status":     models.TaskStatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to claim task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotClaimable
		}

		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			return fmt.Errorf("failed to load claimed task: %w", err)
		}

		err := tx.Model(&models.ScreeningJob{}).
			Where("id = ? AND status = ?", task.ScreeningJobID, models.JobStatusPending).
			Updates(map[string]interface{}{
				"status":     models.JobStatusProcessing,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark job processing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask implements ScreeningRepository.
func (r *screeningRepository) CompleteTask(ctx context.Context, task *models.ScreeningTask, result *models.ScreeningResult) (*models.ScreeningJob, error) {
	var job *models.ScreeningJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := finishTask(tx, task.ID, models.TaskStatusDone, nil); err != nil {
			return err
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "screening_job_id"}, {Name: "candidate_id"}},
			DoNothing: true,
		}).Create(result).Error
		if err != nil {
			return fmt.Errorf("failed to save screening result: %w", err)
		}

		if err := tx.Exec(advanceJobSQL, 0, 0, task.ScreeningJobID).Error; err != nil {
			return fmt.Errorf("failed to advance screening job: %w", err)
		}

		job, err = findJob(tx, task.ScreeningJobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FailTask implements ScreeningRepository. The failure still counts as processed.
func (r *screeningRepository) FailTask(ctx context.Context, task *models.ScreeningTask, errorMsg string) (*models.ScreeningJob, error) {
	var job *models.ScreeningJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := finishTask(tx, task.ID, models.TaskStatusFailed, &errorMsg); err != nil {
			return err
		}

		if err := tx.Exec(advanceJobSQL, 1, 1, task.ScreeningJobID).Error; err != nil {
			return fmt.Errorf("failed to advance screening job: %w", err)
		}

		var err error
		job, err = findJob(tx, task.ScreeningJobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func finishTask(tx *gorm.DB, taskID uuid.UUID, status models.TaskStatus, errorMsg *string) error {
	res := tx.Model(&models.ScreeningTask{}).
		Where("id = ? AND status = ?", taskID, models.TaskStatusRunning).
		Updates(map[string]interface{}{
			"status":      status,
			"last_error":  errorMsg,
			"finished_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotRunning
	}
	return nil
}

// RequeueTask implements ScreeningRepository.
func (r *screeningRepository) RequeueTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	res := r.db.WithContext(ctx).Model(&models.ScreeningTask{}).
		Where("id = ? AND status = ?", taskID, models.TaskStatusRunning).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusQueued,
			"last_error": errorMsg,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to requeue task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotRunning
	}
	return nil
}

// RequeueStaleTasks implements ScreeningRepository. Called once at startup, before any worker runs.
func (r *screeningRepository) RequeueStaleTasks(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ScreeningTask{}).
		Where("status = ?", models.TaskStatusRunning).
		Update("status", models.TaskStatusQueued)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to requeue stale tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RetryFailedTasks implements ScreeningRepository.
func (r *screeningRepository) RetryFailedTasks(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ScreeningTask{}).
			Where("screening_job_id = ? AND status = ?", jobID, models.TaskStatusFailed).
			Order("created_at ASC").
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to find failed tasks: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		err = tx.Model(&models.ScreeningTask{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":      models.TaskStatusQueued,
				"attempts":    0,
				"last_error":  nil,
				"started_at":  nil,
				"finished_at": nil,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to requeue failed tasks: %w", err)
		}

		n := len(ids)
		err = tx.Model(&models.ScreeningJob{}).
			Where("id = ?", jobID).
			Updates(map[string]interface{}{
				"processed_count": gorm.Expr("processed_count - ?", n),
				"failed_count":    gorm.Expr("failed_count - ?", n),
				"status":          models.JobStatusProcessing,
				"completed_at":    nil,
				"updated_at":      time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reopen screening job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindQueuedTasks implements ScreeningRepository.
func (r *screeningRepository) FindQueuedTasks(ctx context.Context, limit int) ([]models.ScreeningTask, error) {
	var tasks []models.ScreeningTask
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TaskStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find queued tasks: %w", err)
	}
	return tasks, nil
}

// FindTasks implements ScreeningRepository.
func (r *screeningRepository) FindTasks(ctx context.Context, jobID uuid.UUID) ([]models.ScreeningTask, error) {
	var tasks []models.ScreeningTask
	err := r.db.WithContext(ctx).
		Where("screening_job_id = ?", jobID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks implements ScreeningRepository.
func (r *screeningRepository) CountTasks(ctx context.Context, jobID uuid.UUID) (models.TaskCounts, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.ScreeningTask{}).
		Select("status, count(*) AS count").
		Where("screening_job_id = ?", jobID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.TaskCounts{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	var counts models.TaskCounts
	for _, row := range rows {
		switch row.Status {
		case models.TaskStatusQueued:
			counts.Queued = row.Count
		case models.TaskStatusRunning:
			counts.Running = row.Count
		case models.TaskStatusDone:
			counts.Done = row.Count
		case models.TaskStatusFailed:
			counts.Failed = row.Count
		case models.TaskStatusCancelled:
			counts.Cancelled = row.Count
		}
	}
	return counts, nil
}
