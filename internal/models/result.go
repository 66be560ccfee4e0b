package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SortByMatchPercentage = "matchPercentage"
	SortByCreatedAt       = "createdAt"
	SortByCandidateName   = "candidateName"
)

type SkippedFile struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

type UploadedResume struct {
	FileName string
	FilePath string
}

type BatchUploadResponse struct {
	ScreeningJob *ScreeningJob `json:"screeningJob"`
	Accepted     int           `json:"accepted"`
	SkippedFiles []SkippedFile `json:"skippedFiles"`
}

// ResultFilter selects and orders screening results. Limit 0 means no pagination.
type ResultFilter struct {
	ScreeningJobID uuid.UUID
	MinMatch       *int
	Status         ResultStatus
	SortBy         string
	SortDesc       bool
	Limit          int
	Offset         int
}

type ResultsPage struct {
	Results []ScreeningResult `json:"results"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"hasMore"`
}

type ShortlistRequest struct {
	ScreeningJobID string   `json:"screeningJobId" validate:"required,uuid"`
	CandidateIDs   []string `json:"candidateIds" validate:"max=500,dive,uuid"`
}

type ShortlistResponse struct {
	ScreeningJob *ScreeningJob `json:"screeningJob"`
	Shortlist    []uuid.UUID   `json:"shortlist"`
}

type JobStatusResponse struct {
	ScreeningJob *ScreeningJob `json:"screeningJob"`
	Tasks        TaskCounts    `json:"tasks"`
}

type ExportDocument struct {
	ExportedAt     time.Time         `json:"exportedAt"`
	ScreeningJobID uuid.UUID         `json:"screeningJobId"`
	Total          int               `json:"total"`
	Results        []ScreeningResult `json:"results"`
}

type CreateJobPostingRequest struct {
	Title          string   `json:"title" validate:"required,max=200"`
	Description    string   `json:"description" validate:"max=20000"`
	RequiredSkills []string `json:"requiredSkills" validate:"max=100,dive,required,max=100"`
}
