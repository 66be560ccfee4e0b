package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ScreeningTask is the unit of work for one resume within a screening job.
type ScreeningTask struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ScreeningJobID uuid.UUID  `gorm:"type:uuid;not null" json:"screeningJobId"`
	CandidateID    uuid.UUID  `gorm:"type:uuid;not null" json:"candidateId"`
	FileName       string     `gorm:"type:text;not null" json:"fileName"`
	FilePath       string     `gorm:"type:text;not null" json:"-"`
	Status         TaskStatus `gorm:"not null;default:'queued'" json:"status"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	LastError      *string    `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt      time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}

func (ScreeningTask) TableName() string {
	return "screening_tasks"
}

// TaskCounts groups a job's tasks by state.
type TaskCounts struct {
	Queued    int64 `json:"queued"`
	Running   int64 `json:"running"`
	Done      int64 `json:"done"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
