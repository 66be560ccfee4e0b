package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobPosting struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EmployerID     uuid.UUID                   `gorm:"type:uuid;not null" json:"employerId"`
	Title          string                      `gorm:"type:text;not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	RequiredSkills datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"requiredSkills"`
	CreatedAt      time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (JobPosting) TableName() string {
	return "job_postings"
}
