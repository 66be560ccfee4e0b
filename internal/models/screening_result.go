package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResultStatus string

const (
	ResultStatusScreened    ResultStatus = "screened"
	ResultStatusShortlisted ResultStatus = "shortlisted"
)

type AnalysisSource string

const (
	AnalysisSourceLLM      AnalysisSource = "llm"
	AnalysisSourceFallback AnalysisSource = "fallback"
)

// ScreeningResult holds the outcome for one resume. Only Status changes after insert.
type ScreeningResult struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ScreeningJobID   uuid.UUID                   `gorm:"type:uuid;not null" json:"screeningJobId"`
	CandidateID      uuid.UUID                   `gorm:"type:uuid;not null" json:"candidateId"`
	CandidateName    string                      `gorm:"type:text" json:"candidateName"`
	CandidateEmail   string                      `gorm:"type:text" json:"candidateEmail"`
	FileName         string                      `gorm:"type:text" json:"fileName"`
	MatchPercentage  int                         `gorm:"not null" json:"matchPercentage"`
	SkillsMatched    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"skillsMatched"`
	SkillsMissing    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"skillsMissing"`
	Strengths        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"strengths"`
	ImprovementAreas datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"improvementAreas"`
	Recommendations  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"recommendations"`
	Status           ResultStatus                `gorm:"not null;default:'screened'" json:"status"`
	AnalysisSource   AnalysisSource              `gorm:"not null" json:"analysisSource"`
	CreatedAt        time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (ScreeningResult) TableName() string {
	return "screening_results"
}

// ShortlistEntry is one employer-selected candidate of a screening job.
type ShortlistEntry struct {
	ScreeningJobID uuid.UUID `gorm:"type:uuid;primaryKey" json:"screeningJobId"`
	CandidateID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"candidateId"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (ShortlistEntry) TableName() string {
	return "screening_shortlists"
}

// ScreeningMetrics is computed on read and never persisted.
type ScreeningMetrics struct {
	ScreeningJobID     uuid.UUID `json:"screeningJobId"`
	TotalScreened      int       `json:"totalScreened"`
	AverageMatch       float64   `json:"averageMatch"`
	StrongMatches      int       `json:"strongMatches"`
	ModerateMatches    int       `json:"moderateMatches"`
	WeakMatches        int       `json:"weakMatches"`
	StrongPercentage   float64   `json:"strongPercentage"`
	ModeratePercentage float64   `json:"moderatePercentage"`
	WeakPercentage     float64   `json:"weakPercentage"`
}
