package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/apperrors"
	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/metrics"
	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/repositories"
	"alfredoptarigan/resume-screening/internal/validation"
)

const pdfMimeType = "application/pdf"

const (
	skipReasonNotPDF   = "not a PDF file"
	skipReasonTooLarge = "file exceeds maximum size"
)

// TaskQueue hands task ids to the worker pool.
type TaskQueue interface {
	Enqueue(taskID uuid.UUID)
	CancelJob(jobID uuid.UUID)
}

type ScreeningService interface {
	BatchUpload(ctx context.Context, employerID uuid.UUID, jobID string, files []*multipart.FileHeader) (*models.BatchUploadResponse, error)
	GetStatus(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.JobStatusResponse, error)
	GetResults(ctx context.Context, employerID uuid.UUID, filter models.ResultFilter) (*models.ResultsPage, error)
	GetAnalytics(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningMetrics, error)
	UpdateShortlist(ctx context.Context, employerID uuid.UUID, req models.ShortlistRequest) (*models.ShortlistResponse, error)
	ExportResults(ctx context.Context, employerID uuid.UUID, filter models.ResultFilter) ([]models.ScreeningResult, error)
	Delete(ctx context.Context, employerID, screeningJobID uuid.UUID) error
	Cancel(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningJob, error)
	Retry(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningJob, error)
}

type ScreeningOptions struct {
	MaxBatchSize    int
	MaxFileSize     int64
	DefaultPageSize int
	MaxPageSize     int
	Thresholds      Thresholds
}

type screeningService struct {
	screeningRepo repositories.ScreeningRepository
	resultRepo    repositories.ResultRepository
	jobRepo       repositories.JobPostingRepository
	storage       StorageService
	queue         TaskQueue
	cache         AnalyticsCache
	opts          ScreeningOptions
	log           logger.Logger
}

func NewScreeningService(
	screeningRepo repositories.ScreeningRepository,
	resultRepo repositories.ResultRepository,
	jobRepo repositories.JobPostingRepository,
	storage StorageService,
	queue TaskQueue,
	cache AnalyticsCache,
	opts ScreeningOptions,
	log logger.Logger,
) ScreeningService {
	return &screeningService{
		screeningRepo: screeningRepo,
		resultRepo:    resultRepo,
		jobRepo:       jobRepo,
		storage:       storage,
		queue:         queue,
		cache:         cache,
		opts:          opts,
		log:           log,
	}
}

func isPDF(file *multipart.FileHeader) bool {
	mediaType, _, err := mime.ParseMediaType(file.Header.Get("Content-Type"))
	return err == nil && mediaType == pdfMimeType
}

// BatchUpload implements ScreeningService. Non-PDF and oversized files are skipped and reported;
// the rest become one queued task each.
func (s *screeningService) BatchUpload(ctx context.Context, employerID uuid.UUID, jobIDRaw string, files []*multipart.FileHeader) (*models.BatchUploadResponse, error) {
	if jobIDRaw == "" {
		return nil, apperrors.NewValidationError("jobId is required")
	}
	jobID, err := uuid.Parse(jobIDRaw)
	if err != nil {
		return nil, apperrors.NewValidationError("jobId must be a valid UUID")
	}
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("at least one resume file is required")
	}
	if len(files) > s.opts.MaxBatchSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("at most %d resumes can be uploaded per batch", s.opts.MaxBatchSize))
	}

	if _, err := s.jobRepo.FindForEmployer(ctx, jobID, employerID); err != nil {
		return nil, notFoundOr(err, "job posting")
	}

	skipped := make([]models.SkippedFile, 0)
	accepted := make([]*multipart.FileHeader, 0, len(files))
	for _, file := range files {
		switch {
		case !isPDF(file):
			skipped = append(skipped, models.SkippedFile{FileName: file.Filename, Reason: skipReasonNotPDF})
			metrics.ResumesSkipped.WithLabelValues("not_pdf").Inc()
		case s.opts.MaxFileSize > 0 && file.Size > s.opts.MaxFileSize:
			skipped = append(skipped, models.SkippedFile{FileName: file.Filename, Reason: skipReasonTooLarge})
			metrics.ResumesSkipped.WithLabelValues("too_large").Inc()
		default:
			accepted = append(accepted, file)
		}
	}

	if len(accepted) == 0 {
		names := make([]string, 0, len(skipped))
		for _, sf := range skipped {
			names = append(names, fmt.Sprintf("%s: %s", sf.FileName, sf.Reason))
		}
		return nil, apperrors.NewValidationError("no valid PDF resumes in upload", names...)
	}

	uploaded := make([]models.UploadedResume, 0, len(accepted))
	for _, file := range accepted {
		path, err := s.storage.SaveResume(file)
		if err != nil {
			s.removeFiles(uploaded)
			return nil, apperrors.NewInternalError("failed to store resume", err)
		}
		uploaded = append(uploaded, models.UploadedResume{FileName: file.Filename, FilePath: path})
	}

	job := &models.ScreeningJob{
		ID:           uuid.New(),
		EmployerID:   employerID,
		JobID:        jobID,
		Status:       models.JobStatusPending,
		TotalResumes: len(uploaded),
	}
	tasks := make([]models.ScreeningTask, 0, len(uploaded))
	for _, u := range uploaded {
		tasks = append(tasks, models.ScreeningTask{
			ID:          uuid.New(),
			CandidateID: uuid.New(),
			FileName:    u.FileName,
			FilePath:    u.FilePath,
			Status:      models.TaskStatusQueued,
		})
	}

	if err := s.screeningRepo.CreateBatch(ctx, job, tasks); err != nil {
		s.removeFiles(uploaded)
		return nil, apperrors.NewInternalError("failed to create screening job", err)
	}

	for _, task := range tasks {
		s.queue.Enqueue(task.ID)
	}

	metrics.BatchesCreated.Inc()
	s.log.Info("📤 Screening batch accepted", map[string]interface{}{
		"screening_job_id": job.ID.String(),
		"job_id":           jobID.String(),
		"accepted":         len(tasks),
		"skipped":          len(skipped),
	})

	return &models.BatchUploadResponse{
		ScreeningJob: job,
		Accepted:     len(tasks),
		SkippedFiles: skipped,
	}, nil
}

func (s *screeningService) removeFiles(uploaded []models.UploadedResume) {
	for _, u := range uploaded {
		if err := s.storage.DeleteFile(u.FilePath); err != nil {
			s.log.Warn("⚠️ Failed to remove stored resume", map[string]interface{}{"path": u.FilePath, "error": err})
		}
	}
}

// ownedJob loads a screening job, reporting jobs of other employers as missing.
func (s *screeningService) ownedJob(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningJob, error) {
	job, err := s.screeningRepo.FindJobForEmployer(ctx, screeningJobID, employerID)
	if err != nil {
		return nil, notFoundOr(err, "screening job")
	}
	return job, nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NewNotFoundError(resource)
	}
	return apperrors.NewInternalError(fmt.Sprintf("failed to load %s", resource), err)
}

// GetStatus implements ScreeningService.
func (s *screeningService) GetStatus(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.JobStatusResponse, error) {
	job, err := s.ownedJob(ctx, employerID, screeningJobID)
	if err != nil {
		return nil, err
	}

	counts, err := s.screeningRepo.CountTasks(ctx, job.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count tasks", err)
	}

	return &models.JobStatusResponse{ScreeningJob: job, Tasks: counts}, nil
}

func (s *screeningService) validateFilter(f *models.ResultFilter, paginate bool) error {
	if f.MinMatch != nil && (*f.MinMatch < 0 || *f.MinMatch > 100) {
		return apperrors.NewValidationError("minMatch must be between 0 and 100")
	}
	switch f.Status {
	case "", models.ResultStatusScreened, models.ResultStatusShortlisted:
	default:
		return apperrors.NewValidationError("status must be one of [screened shortlisted]")
	}
	switch f.SortBy {
	case "":
		f.SortBy = models.SortByMatchPercentage
	case models.SortByMatchPercentage, models.SortByCreatedAt, models.SortByCandidateName:
	default:
		return apperrors.NewValidationError("sortBy must be one of [matchPercentage createdAt candidateName]")
	}

	if !paginate {
		f.Limit, f.Offset = 0, 0
		return nil
	}
	if f.Limit == 0 {
		f.Limit = s.opts.DefaultPageSize
	}
	if f.Limit < 1 || f.Limit > s.opts.MaxPageSize {
		return apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", s.opts.MaxPageSize))
	}
	if f.Offset < 0 {
		return apperrors.NewValidationError("offset must not be negative")
	}
	return nil
}

// hasMore reports offset+limit < total without overflowing on huge offsets.
func hasMore(offset, limit int, total int64) bool {
	return int64(offset) < total-int64(limit)
}

// GetResults implements ScreeningService.
func (s *screeningService) GetResults(ctx context.Context, employerID uuid.UUID, filter models.ResultFilter) (*models.ResultsPage, error) {
	if err := s.validateFilter(&filter, true); err != nil {
		return nil, err
	}
	if _, err := s.ownedJob(ctx, employerID, filter.ScreeningJobID); err != nil {
		return nil, err
	}

	results, total, err := s.resultRepo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list results", err)
	}
	if results == nil {
		results = []models.ScreeningResult{}
	}

	return &models.ResultsPage{
		Results: results,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: hasMore(filter.Offset, filter.Limit, total),
	}, nil
}

// GetAnalytics implements ScreeningService.
func (s *screeningService) GetAnalytics(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningMetrics, error) {
	if _, err := s.ownedJob(ctx, employerID, screeningJobID); err != nil {
		return nil, err
	}

	if m, ok := s.cache.Get(ctx, screeningJobID); ok {
		return m, nil
	}

	scores, err := s.resultRepo.MatchPercentages(ctx, screeningJobID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load match percentages", err)
	}

	m := ComputeMetrics(screeningJobID, scores, s.opts.Thresholds)
	s.cache.Set(ctx, m)
	return m, nil
}

// UpdateShortlist implements ScreeningService. The request replaces the whole shortlist.
func (s *screeningService) UpdateShortlist(ctx context.Context, employerID uuid.UUID, req models.ShortlistRequest) (*models.ShortlistResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	screeningJobID := uuid.MustParse(req.ScreeningJobID)
	if _, err := s.ownedJob(ctx, employerID, screeningJobID); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(req.CandidateIDs))
	candidateIDs := make([]uuid.UUID, 0, len(req.CandidateIDs))
	for _, raw := range req.CandidateIDs {
		id := uuid.MustParse(raw)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		candidateIDs = append(candidateIDs, id)
	}

	if len(candidateIDs) > 0 {
		found, err := s.resultRepo.ExistingCandidates(ctx, screeningJobID, candidateIDs)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to look up candidates", err)
		}
		if len(found) != len(candidateIDs) {
			known := make(map[uuid.UUID]struct{}, len(found))
			for _, id := range found {
				known[id] = struct{}{}
			}
			unknown := make([]string, 0)
			for _, id := range candidateIDs {
				if _, ok := known[id]; !ok {
					unknown = append(unknown, id.String())
				}
			}
			return nil, apperrors.NewValidationError("candidates not found in screening job", unknown...)
		}
	}

	if err := s.resultRepo.ReplaceShortlist(ctx, screeningJobID, candidateIDs); err != nil {
		return nil, apperrors.NewInternalError("failed to update shortlist", err)
	}
	s.cache.Invalidate(ctx, screeningJobID)

	shortlist, err := s.resultRepo.GetShortlist(ctx, screeningJobID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load shortlist", err)
	}
	job, err := s.ownedJob(ctx, employerID, screeningJobID)
	if err != nil {
		return nil, err
	}

	s.log.Info("⭐ Shortlist updated", map[string]interface{}{
		"screening_job_id": screeningJobID.String(),
		"candidates":       len(shortlist),
	})
	return &models.ShortlistResponse{ScreeningJob: job, Shortlist: shortlist}, nil
}

// ExportResults implements ScreeningService. All matching results are returned, unpaginated.
func (s *screeningService) ExportResults(ctx context.Context, employerID uuid.UUID, filter models.ResultFilter) ([]models.ScreeningResult, error) {
	if err := s.validateFilter(&filter, false); err != nil {
		return nil, err
	}
	if _, err := s.ownedJob(ctx, employerID, filter.ScreeningJobID); err != nil {
		return nil, err
	}

	results, _, err := s.resultRepo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list results", err)
	}
	if results == nil {
		results = []models.ScreeningResult{}
	}
	return results, nil
}

// Delete implements ScreeningService. Running work is cancelled before rows and files are removed.
func (s *screeningService) Delete(ctx context.Context, employerID, screeningJobID uuid.UUID) error {
	job, err := s.ownedJob(ctx, employerID, screeningJobID)
	if err != nil {
		return err
	}

	if !job.Status.IsTerminal() {
		if err := s.screeningRepo.CancelJob(ctx, job.ID); err != nil && !errors.Is(err, repositories.ErrJobFinished) {
			return apperrors.NewInternalError("failed to cancel screening job", err)
		}
	}
	s.queue.CancelJob(job.ID)

	tasks, err := s.screeningRepo.FindTasks(ctx, job.ID)
	if err != nil {
		return apperrors.NewInternalError("failed to load tasks", err)
	}

	if err := s.screeningRepo.DeleteJob(ctx, job.ID); err != nil {
		return notFoundOr(err, "screening job")
	}

	for _, task := range tasks {
		if err := s.storage.DeleteFile(task.FilePath); err != nil {
			s.log.Warn("⚠️ Failed to remove stored resume", map[string]interface{}{"path": task.FilePath, "error": err})
		}
	}
	s.cache.Invalidate(ctx, job.ID)

	s.log.Info("🗑️ Screening job deleted", map[string]interface{}{"screening_job_id": job.ID.String()})
	return nil
}

// Cancel implements ScreeningService.
func (s *screeningService) Cancel(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningJob, error) {
	if _, err := s.ownedJob(ctx, employerID, screeningJobID); err != nil {
		return nil, err
	}

	if err := s.screeningRepo.CancelJob(ctx, screeningJobID); err != nil {
		if errors.Is(err, repositories.ErrJobFinished) {
			return nil, apperrors.NewConflictError("screening job has already finished")
		}
		return nil, notFoundOr(err, "screening job")
	}
	s.queue.CancelJob(screeningJobID)
	s.cache.Invalidate(ctx, screeningJobID)

	s.log.Info("🚫 Screening job cancelled", map[string]interface{}{"screening_job_id": screeningJobID.String()})
	return s.ownedJob(ctx, employerID, screeningJobID)
}

// Retry implements ScreeningService. Failed tasks are re-queued with a fresh attempt budget.
func (s *screeningService) Retry(ctx context.Context, employerID, screeningJobID uuid.UUID) (*models.ScreeningJob, error) {
	job, err := s.ownedJob(ctx, employerID, screeningJobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusCancelled {
		return nil, apperrors.NewConflictError("cancelled screening jobs cannot be retried")
	}

	ids, err := s.screeningRepo.RetryFailedTasks(ctx, job.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to retry tasks", err)
	}
	if len(ids) == 0 {
		return nil, apperrors.NewConflictError("screening job has no failed tasks")
	}

	for _, id := range ids {
		s.queue.Enqueue(id)
	}
	s.cache.Invalidate(ctx, job.ID)

	s.log.Info("🔁 Failed tasks re-queued", map[string]interface{}{
		"screening_job_id": job.ID.String(),
		"count":            len(ids),
	})
	return s.ownedJob(ctx, employerID, screeningJobID)
}
