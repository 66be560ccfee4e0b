package models

import (
	"time"

	"github.com/google/uuid"
)

type ScreeningJobStatus string

const (
	JobStatusPending    ScreeningJobStatus = "pending"
	JobStatusProcessing ScreeningJobStatus = "processing"
	JobStatusCompleted  ScreeningJobStatus = "completed"
	JobStatusFailed     ScreeningJobStatus = "failed"
	JobStatusCancelled  ScreeningJobStatus = "cancelled"
)

// IsTerminal reports whether no further task can change the job.
func (s ScreeningJobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ScreeningJob is one batch of resumes evaluated against one job posting.
type ScreeningJob struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EmployerID     uuid.UUID          `gorm:"type:uuid;not null" json:"employerId"`
	JobID          uuid.UUID          `gorm:"type:uuid;not null" json:"jobId"`
	Status         ScreeningJobStatus `gorm:"not null;default:'pending'" json:"status"`
	TotalResumes   int                `gorm:"not null" json:"totalResumes"`
	ProcessedCount int                `gorm:"not null;default:0" json:"processedCount"`
	FailedCount    int                `gorm:"not null;default:0" json:"failedCount"`
	CreatedAt      time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
	CompletedAt    *time.Time         `json:"completedAt,omitempty"`
}

func (ScreeningJob) TableName() string {
	return "screening_jobs"
}
