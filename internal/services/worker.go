package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/metrics"
	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(taskID uuid.UUID)
	CancelJob(jobID uuid.UUID)
}

type WorkerOptions struct {
	Concurrency  int
	QueueSize    int
	PollInterval time.Duration
	TaskTimeout  time.Duration
	MaxAttempts  int
}

type worker struct {
	repo      repositories.ScreeningRepository
	processor TaskProcessor
	cache     AnalyticsCache
	opts      WorkerOptions
	log       logger.Logger

	taskQueue chan uuid.UUID
	wg        sync.WaitGroup
	stopChan  chan struct{}
	stopOnce  sync.Once

	mu      sync.Mutex
	running map[uuid.UUID]map[uuid.UUID]context.CancelFunc
}

func NewWorker(
	repo repositories.ScreeningRepository,
	processor TaskProcessor,
	cache AnalyticsCache,
	opts WorkerOptions,
	log logger.Logger,
) Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &worker{
		repo:      repo,
		processor: processor,
		cache:     cache,
		opts:      opts,
		log:       log,
		taskQueue: make(chan uuid.UUID, opts.QueueSize),
		stopChan:  make(chan struct{}),
		running:   make(map[uuid.UUID]map[uuid.UUID]context.CancelFunc),
	}
}

// Start implements Worker. Tasks left running by a previous process are re-queued first.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting worker", map[string]interface{}{"concurrency": w.opts.Concurrency})

	if n, err := w.repo.RequeueStaleTasks(ctx); err != nil {
		w.log.Error("❌ Failed to requeue stale tasks", map[string]interface{}{"error": err})
	} else if n > 0 {
		w.log.Info("♻️ Re-queued stale tasks", map[string]interface{}{"count": n})
	}

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processTasks(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollQueuedTasks(ctx)

	w.log.Info("✅ Worker started successfully", nil)
}

// Stop implements Worker. In-flight tasks finish before Stop returns.
func (w *worker) Stop() {
	w.log.Info("🛑 Stopping worker...", nil)
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.log.Info("✅ Worker stopped", nil)
}

// Enqueue implements Worker. A full queue is not an error: the poller picks the task up later.
func (w *worker) Enqueue(taskID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("⚠️ Worker stopped, task left queued", map[string]interface{}{"task_id": taskID.String()})
	case w.taskQueue <- taskID:
	default:
		w.log.Debug("📥 Queue full, deferring task to poller", map[string]interface{}{"task_id": taskID.String()})
	}
}

// CancelJob implements Worker. It cancels the contexts of the job's running tasks.
func (w *worker) CancelJob(jobID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, cancel := range w.running[jobID] {
		cancel()
	}
}

func (w *worker) register(jobID, taskID uuid.UUID, cancel context.CancelFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running[jobID] == nil {
		w.running[jobID] = make(map[uuid.UUID]context.CancelFunc)
	}
	w.running[jobID][taskID] = cancel
}

func (w *worker) unregister(jobID, taskID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.running[jobID], taskID)
	if len(w.running[jobID]) == 0 {
		delete(w.running, jobID)
	}
}

func (w *worker) processTasks(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("👷 Worker stopped", map[string]interface{}{"worker": workerID})
			return
		case <-ctx.Done():
			return
		case taskID := <-w.taskQueue:
			w.processTask(ctx, workerID, taskID)
		}
	}
}

// runProcessor turns a processor panic into an ordinary task failure.
func (w *worker) runProcessor(ctx context.Context, task *models.ScreeningTask) (result *models.ScreeningResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("processor panicked: %v", r)
		}
	}()
	return w.processor.Process(ctx, task)
}

func (w *worker) processTask(ctx context.Context, workerID int, taskID uuid.UUID) {
	task, err := w.repo.ClaimTask(ctx, taskID)
	if err != nil {
		if !errors.Is(err, repositories.ErrTaskNotClaimable) {
			w.log.Error("❌ Failed to claim task", map[string]interface{}{"task_id": taskID.String(), "error": err})
		}
		return
	}

	log := w.log.WithFields(map[string]interface{}{
		"worker":           workerID,
		"task_id":          task.ID.String(),
		"screening_job_id": task.ScreeningJobID.String(),
		"attempt":          task.Attempts,
	})

	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)
	if w.opts.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, w.opts.TaskTimeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}
	w.register(task.ScreeningJobID, task.ID, cancel)
	defer func() {
		w.unregister(task.ScreeningJobID, task.ID)
		cancel()
	}()

	metrics.TasksActive.Inc()
	start := time.Now()
	result, procErr := w.runProcessor(taskCtx, task)
	metrics.TaskDuration.Observe(time.Since(start).Seconds())
	metrics.TasksActive.Dec()

	if procErr == nil {
		job, err := w.repo.CompleteTask(ctx, task, result)
		if err != nil {
			w.logFinishError(log, err)
			return
		}
		w.cache.Invalidate(ctx, task.ScreeningJobID)
		metrics.TasksCompleted.WithLabelValues("done").Inc()
		log.Info("✅ Resume screened", map[string]interface{}{
			"match_percentage": result.MatchPercentage,
			"processed":        job.ProcessedCount,
			"total":            job.TotalResumes,
			"job_status":       job.Status,
		})
		return
	}

	if errors.Is(taskCtx.Err(), context.Canceled) {
		log.Info("🚫 Task cancelled", nil)
		return
	}

	if task.Attempts < w.opts.MaxAttempts {
		if err := w.repo.RequeueTask(ctx, task.ID, procErr.Error()); err != nil {
			w.logFinishError(log, err)
			return
		}
		metrics.TaskRetries.Inc()
		log.Warn("⚠️ Task failed, re-queued for retry", map[string]interface{}{"error": procErr})
		return
	}

	job, err := w.repo.FailTask(ctx, task, procErr.Error())
	if err != nil {
		w.logFinishError(log, err)
		return
	}
	w.cache.Invalidate(ctx, task.ScreeningJobID)
	metrics.TasksCompleted.WithLabelValues("failed").Inc()
	log.Error("❌ Task failed permanently", map[string]interface{}{
		"error":      procErr,
		"processed":  job.ProcessedCount,
		"total":      job.TotalResumes,
		"job_status": job.Status,
	})
}

func (w *worker) logFinishError(log logger.Logger, err error) {
	if errors.Is(err, repositories.ErrTaskNotRunning) {
		log.Info("🚫 Task was cancelled while processing, result discarded", nil)
		return
	}
	log.Error("❌ Failed to record task outcome", map[string]interface{}{"error": err})
}

func (w *worker) pollQueuedTasks(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.log.Debug("🔄 Starting queued task poller", nil)
	w.enqueueQueued(ctx)

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("🔄 Queued task poller stopped", nil)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueueQueued(ctx)
		}
	}
}

func (w *worker) enqueueQueued(ctx context.Context) {
	free := cap(w.taskQueue) - len(w.taskQueue)
	if free <= 0 {
		return
	}

	tasks, err := w.repo.FindQueuedTasks(ctx, free)
	if err != nil {
		w.log.Warn("⚠️ Failed to fetch queued tasks", map[string]interface{}{"error": err})
		return
	}

	if len(tasks) > 0 {
		w.log.Debug("📋 Found queued tasks", map[string]interface{}{"count": len(tasks)})
	}

	for _, task := range tasks {
		w.Enqueue(task.ID)
	}
}
