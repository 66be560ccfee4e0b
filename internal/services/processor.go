package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/repositories"
)

// TaskProcessor screens one resume and returns the result to persist.
type TaskProcessor interface {
	Process(ctx context.Context, task *models.ScreeningTask) (*models.ScreeningResult, error)
}

type resumeProcessor struct {
	screeningRepo repositories.ScreeningRepository
	jobRepo       repositories.JobPostingRepository
	pdfParser     PDFParserService
	jobContext    JobContextService
	analyzer      Analyzer
	log           logger.Logger
}

func NewResumeProcessor(
	screeningRepo repositories.ScreeningRepository,
	jobRepo repositories.JobPostingRepository,
	pdfParser PDFParserService,
	jobContext JobContextService,
	analyzer Analyzer,
	log logger.Logger,
) TaskProcessor {
	return &resumeProcessor{
		screeningRepo: screeningRepo,
		jobRepo:       jobRepo,
		pdfParser:     pdfParser,
		jobContext:    jobContext,
		analyzer:      analyzer,
		log:           log,
	}
}

func (p *resumeProcessor) Process(ctx context.Context, task *models.ScreeningTask) (*models.ScreeningResult, error) {
	job, err := p.screeningRepo.FindJob(ctx, task.ScreeningJobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load screening job: %w", err)
	}

	posting, err := p.jobRepo.FindByID(ctx, job.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job posting: %w", err)
	}

	content, err := p.pdfParser.ExtractText(task.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resume: %w", err)
	}

	match := MatchSkills(content.Text, posting.RequiredSkills)

	jobContext, err := p.jobContext.Retrieve(ctx, posting.ID, content.Text)
	if err != nil {
		p.log.Warn("⚠️ Failed to retrieve job context", map[string]interface{}{
			"job_id": posting.ID.String(),
			"error":  err,
		})
		jobContext = ""
	}

	analysis := p.analyzer.Analyze(ctx, AnalysisInput{
		ResumeText: content.Text,
		JobTitle:   posting.Title,
		JobContext: jobContext,
		Match:      match,
	})

	return &models.ScreeningResult{
		ID:               uuid.New(),
		ScreeningJobID:   task.ScreeningJobID,
		CandidateID:      task.CandidateID,
		CandidateName:    CandidateNameFromFile(task.FileName),
		CandidateEmail:   ExtractEmail(content.Text),
		FileName:         task.FileName,
		MatchPercentage:  match.Percentage,
		SkillsMatched:    datatypes.JSONSlice[string](match.Matched),
		SkillsMissing:    datatypes.JSONSlice[string](match.Missing),
		Strengths:        datatypes.JSONSlice[string](analysis.Strengths),
		ImprovementAreas: datatypes.JSONSlice[string](analysis.ImprovementAreas),
		Recommendations:  datatypes.JSONSlice[string](analysis.Recommendations),
		Status:           models.ResultStatusScreened,
		AnalysisSource:   analysis.Source,
	}, nil
}
