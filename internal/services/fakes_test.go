package services

import (
	"context"
	"errors"
	"mime/multipart"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/repositories"
)

// memStore backs the in-memory screening and result repositories.
type memStore struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*models.ScreeningJob
	tasks     map[uuid.UUID]*models.ScreeningTask
	results   map[uuid.UUID]*models.ScreeningResult
	shortlist map[uuid.UUID][]uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		jobs:      make(map[uuid.UUID]*models.ScreeningJob),
		tasks:     make(map[uuid.UUID]*models.ScreeningTask),
		results:   make(map[uuid.UUID]*models.ScreeningResult),
		shortlist: make(map[uuid.UUID][]uuid.UUID),
	}
}

type memScreeningRepo struct {
	s *memStore
}

func (r *memScreeningRepo) CreateBatch(_ context.Context, job *models.ScreeningJob, tasks []models.ScreeningTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now()
	stored := *job
	r.s.jobs[job.ID] = &stored
	for i := range tasks {
		tasks[i].ScreeningJobID = job.ID
		if tasks[i].ID == uuid.Nil {
			tasks[i].ID = uuid.New()
		}
		task := tasks[i]
		r.s.tasks[task.ID] = &task
	}
	return nil
}

func (r *memScreeningRepo) FindJob(_ context.Context, id uuid.UUID) (*models.ScreeningJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	job, ok := r.s.jobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *memScreeningRepo) FindJobForEmployer(ctx context.Context, id, employerID uuid.UUID) (*models.ScreeningJob, error) {
	job, err := r.FindJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != employerID {
		return nil, repositories.ErrNotFound
	}
	return job, nil
}

func (r *memScreeningRepo) DeleteJob(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.jobs, id)
	delete(r.s.shortlist, id)
	for taskID, task := range r.s.tasks {
		if task.ScreeningJobID == id {
			delete(r.s.tasks, taskID)
		}
	}
	for resultID, result := range r.s.results {
		if result.ScreeningJobID == id {
			delete(r.s.results, resultID)
		}
	}
	return nil
}

func (r *memScreeningRepo) CancelJob(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	job, ok := r.s.jobs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return repositories.ErrJobFinished
	}
	job.Status = models.JobStatusCancelled
	for _, task := range r.s.tasks {
		if task.ScreeningJobID == id && (task.Status == models.TaskStatusQueued || task.Status == models.TaskStatusRunning) {
			task.Status = models.TaskStatusCancelled
		}
	}
	return nil
}

func (r *memScreeningRepo) ClaimTask(_ context.Context, taskID uuid.UUID) (*models.ScreeningTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, ok := r.s.tasks[taskID]
	if !ok || task.Status != models.TaskStatusQueued {
		return nil, repositories.ErrTaskNotClaimable
	}
	task.Status = models.TaskStatusRunning
	task.Attempts++
	if job := r.s.jobs[task.ScreeningJobID]; job != nil && job.Status == models.JobStatusPending {
		job.Status = models.JobStatusProcessing
	}
	copied := *task
	return &copied, nil
}

// advance mirrors the conditional job update of the SQL repository.
func (r *memScreeningRepo) advance(jobID uuid.UUID, failed bool) *models.ScreeningJob {
	job := r.s.jobs[jobID]
	if job.ProcessedCount < job.TotalResumes &&
		(job.Status == models.JobStatusPending || job.Status == models.JobStatusProcessing) {
		job.ProcessedCount++
		if failed {
			job.FailedCount++
		}
		switch {
		case job.ProcessedCount < job.TotalResumes:
			job.Status = models.JobStatusProcessing
		case job.FailedCount == job.TotalResumes:
			job.Status = models.JobStatusFailed
		default:
			job.Status = models.JobStatusCompleted
		}
		if job.ProcessedCount == job.TotalResumes {
			now := time.Now()
			job.CompletedAt = &now
		}
	}
	copied := *job
	return &copied
}

func (r *memScreeningRepo) CompleteTask(_ context.Context, task *models.ScreeningTask, result *models.ScreeningResult) (*models.ScreeningJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tasks[task.ID]
	if !ok || stored.Status != models.TaskStatusRunning {
		return nil, repositories.ErrTaskNotRunning
	}
	stored.Status = models.TaskStatusDone
	for _, existing := range r.s.results {
		if existing.ScreeningJobID == result.ScreeningJobID && existing.CandidateID == result.CandidateID {
			return r.advance(task.ScreeningJobID, false), nil
		}
	}
	copied := *result
	copied.CreatedAt = time.Now()
	r.s.results[copied.ID] = &copied
	return r.advance(task.ScreeningJobID, false), nil
}

func (r *memScreeningRepo) FailTask(_ context.Context, task *models.ScreeningTask, errorMsg string) (*models.ScreeningJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tasks[task.ID]
	if !ok || stored.Status != models.TaskStatusRunning {
		return nil, repositories.ErrTaskNotRunning
	}
	stored.Status = models.TaskStatusFailed
	stored.LastError = &errorMsg
	return r.advance(task.ScreeningJobID, true), nil
}

func (r *memScreeningRepo) RequeueTask(_ context.Context, taskID uuid.UUID, errorMsg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, ok := r.s.tasks[taskID]
	if !ok || task.Status != models.TaskStatusRunning {
		return repositories.ErrTaskNotRunning
	}
	task.Status = models.TaskStatusQueued
	task.LastError = &errorMsg
	return nil
}

func (r *memScreeningRepo) RequeueStaleTasks(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, task := range r.s.tasks {
		if task.Status == models.TaskStatusRunning {
			task.Status = models.TaskStatusQueued
			n++
		}
	}
	return n, nil
}

func (r *memScreeningRepo) RetryFailedTasks(_ context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	job, ok := r.s.jobs[jobID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	var ids []uuid.UUID
	for _, task := range r.s.tasks {
		if task.ScreeningJobID == jobID && task.Status == models.TaskStatusFailed {
			task.Status = models.TaskStatusQueued
			task.Attempts = 0
			ids = append(ids, task.ID)
		}
	}
	if len(ids) > 0 {
		job.ProcessedCount -= len(ids)
		job.FailedCount -= len(ids)
		job.Status = models.JobStatusProcessing
		job.CompletedAt = nil
	}
	return ids, nil
}

func (r *memScreeningRepo) FindQueuedTasks(_ context.Context, limit int) ([]models.ScreeningTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var tasks []models.ScreeningTask
	for _, task := range r.s.tasks {
		if len(tasks) >= limit {
			break
		}
		if task.Status == models.TaskStatusQueued {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (r *memScreeningRepo) FindTasks(_ context.Context, jobID uuid.UUID) ([]models.ScreeningTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var tasks []models.ScreeningTask
	for _, task := range r.s.tasks {
		if task.ScreeningJobID == jobID {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (r *memScreeningRepo) CountTasks(_ context.Context, jobID uuid.UUID) (models.TaskCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var counts models.TaskCounts
	for _, task := range r.s.tasks {
		if task.ScreeningJobID != jobID {
			continue
		}
		switch task.Status {
		case models.TaskStatusQueued:
			counts.Queued++
		case models.TaskStatusRunning:
			counts.Running++
		case models.TaskStatusDone:
			counts.Done++
		case models.TaskStatusFailed:
			counts.Failed++
		case models.TaskStatusCancelled:
			counts.Cancelled++
		}
	}
	return counts, nil
}

func (r *memScreeningRepo) taskStatus(taskID uuid.UUID) models.TaskStatus {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.tasks[taskID].Status
}

type memResultRepo struct {
	s *memStore
}

func (r *memResultRepo) List(_ context.Context, f models.ResultFilter) ([]models.ScreeningResult, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []models.ScreeningResult
	for _, result := range r.s.results {
		if result.ScreeningJobID != f.ScreeningJobID {
			continue
		}
		if f.MinMatch != nil && result.MatchPercentage < *f.MinMatch {
			continue
		}
		if f.Status != "" && result.Status != f.Status {
			continue
		}
		matched = append(matched, *result)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.MatchPercentage == b.MatchPercentage {
			return a.ID.String() < b.ID.String()
		}
		if f.SortDesc {
			return a.MatchPercentage > b.MatchPercentage
		}
		return a.MatchPercentage < b.MatchPercentage
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []models.ScreeningResult{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (r *memResultRepo) MatchPercentages(_ context.Context, jobID uuid.UUID) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	scores := make([]int, 0)
	for _, result := range r.s.results {
		if result.ScreeningJobID == jobID {
			scores = append(scores, result.MatchPercentage)
		}
	}
	return scores, nil
}

func (r *memResultRepo) ExistingCandidates(_ context.Context, jobID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	found := make([]uuid.UUID, 0)
	for _, id := range ids {
		for _, result := range r.s.results {
			if result.ScreeningJobID == jobID && result.CandidateID == id {
				found = append(found, id)
				break
			}
		}
	}
	return found, nil
}

func (r *memResultRepo) ReplaceShortlist(_ context.Context, jobID uuid.UUID, ids []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	selected := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	for _, result := range r.s.results {
		if result.ScreeningJobID != jobID {
			continue
		}
		if selected[result.CandidateID] {
			result.Status = models.ResultStatusShortlisted
		} else {
			result.Status = models.ResultStatusScreened
		}
	}
	r.s.shortlist[jobID] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (r *memResultRepo) GetShortlist(_ context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append(make([]uuid.UUID, 0), r.s.shortlist[jobID]...), nil
}

type memJobPostingRepo struct {
	mu       sync.Mutex
	postings map[uuid.UUID]*models.JobPosting
}

func newMemJobPostingRepo(postings ...*models.JobPosting) *memJobPostingRepo {
	repo := &memJobPostingRepo{postings: make(map[uuid.UUID]*models.JobPosting)}
	for _, p := range postings {
		repo.postings[p.ID] = p
	}
	return repo
}

func (r *memJobPostingRepo) Create(_ context.Context, job *models.JobPosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	r.postings[job.ID] = job
	return nil
}

func (r *memJobPostingRepo) FindByID(_ context.Context, id uuid.UUID) (*models.JobPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.postings[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (r *memJobPostingRepo) FindForEmployer(ctx context.Context, id, employerID uuid.UUID) (*models.JobPosting, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.EmployerID != employerID {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (r *memJobPostingRepo) FindAll(context.Context) ([]models.JobPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]models.JobPosting, 0, len(r.postings))
	for _, p := range r.postings {
		all = append(all, *p)
	}
	return all, nil
}

// funcProcessor delegates to fn, counting calls per task.
type funcProcessor struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	fn    func(ctx context.Context, task *models.ScreeningTask) (*models.ScreeningResult, error)
}

func newFuncProcessor(fn func(ctx context.Context, task *models.ScreeningTask) (*models.ScreeningResult, error)) *funcProcessor {
	return &funcProcessor{calls: make(map[uuid.UUID]int), fn: fn}
}

func (p *funcProcessor) Process(ctx context.Context, task *models.ScreeningTask) (*models.ScreeningResult, error) {
	p.mu.Lock()
	p.calls[task.ID]++
	p.mu.Unlock()
	return p.fn(ctx, task)
}

func (p *funcProcessor) callCount(taskID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[taskID]
}

func resultFor(task *models.ScreeningTask, pct int) *models.ScreeningResult {
	return &models.ScreeningResult{
		ID:              uuid.New(),
		ScreeningJobID:  task.ScreeningJobID,
		CandidateID:     task.CandidateID,
		FileName:        task.FileName,
		MatchPercentage: pct,
		Status:          models.ResultStatusScreened,
		AnalysisSource:  models.AnalysisSourceFallback,
	}
}

var errProcessing = errors.New("parse failure")

// recordingQueue stands in for the worker in service tests.
type recordingQueue struct {
	mu        sync.Mutex
	enqueued  []uuid.UUID
	cancelled []uuid.UUID
}

func (q *recordingQueue) Enqueue(taskID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, taskID)
}

func (q *recordingQueue) CancelJob(jobID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, jobID)
}

type memStorage struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (s *memStorage) SaveResume(file *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := "/uploads/" + uuid.NewString() + "_" + file.Filename
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *memStorage) DeleteFile(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, filePath)
	return nil
}

func (s *memStorage) EnsureUploadDir() error { return nil }
