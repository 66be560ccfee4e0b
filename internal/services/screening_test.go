package services

import (
	"context"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-screening/internal/apperrors"
	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/models"
)

type screeningFixture struct {
	svc      ScreeningService
	store    *memStore
	repo     *memScreeningRepo
	storage  *memStorage
	queue    *recordingQueue
	posting  *models.JobPosting
	employer uuid.UUID
}

func newScreeningFixture(t *testing.T) *screeningFixture {
	t.Helper()
	store := newMemStore()
	employer := uuid.New()
	posting := &models.JobPosting{
		ID:             uuid.New(),
		EmployerID:     employer,
		Title:          "Backend Engineer",
		RequiredSkills: []string{"go", "postgresql"},
	}
	f := &screeningFixture{
		store:    store,
		repo:     &memScreeningRepo{s: store},
		storage:  &memStorage{},
		queue:    &recordingQueue{},
		posting:  posting,
		employer: employer,
	}
	f.svc = NewScreeningService(
		f.repo,
		&memResultRepo{s: store},
		newMemJobPostingRepo(posting),
		f.storage,
		f.queue,
		NewNoopAnalyticsCache(),
		ScreeningOptions{
			MaxBatchSize:    3,
			MaxFileSize:     1024,
			DefaultPageSize: 20,
			MaxPageSize:     100,
			Thresholds:      DefaultThresholds,
		},
		logger.NewTestLogger(t),
	)
	return f
}

func fileHeader(name, contentType string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{
		Filename: name,
		Header:   textproto.MIMEHeader{"Content-Type": {contentType}},
		Size:     size,
	}
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.Status)
}

// seedResults stores a finished job with one result per score.
func (f *screeningFixture) seedResults(t *testing.T, scores ...int) *models.ScreeningJob {
	t.Helper()
	job := &models.ScreeningJob{
		ID:             uuid.New(),
		EmployerID:     f.employer,
		JobID:          f.posting.ID,
		Status:         models.JobStatusCompleted,
		TotalResumes:   len(scores),
		ProcessedCount: len(scores),
	}
	require.NoError(t, f.repo.CreateBatch(context.Background(), job, nil))
	for _, score := range scores {
		r := resultFor(&models.ScreeningTask{ScreeningJobID: job.ID, CandidateID: uuid.New()}, score)
		f.store.results[r.ID] = r
	}
	return job
}

func TestBatchUpload_AcceptsPDFsAndSkipsOthers(t *testing.T) {
	f := newScreeningFixture(t)

	files := []*multipart.FileHeader{
		fileHeader("alice.pdf", "application/pdf", 100),
		fileHeader("notes.txt", "text/plain", 100),
		fileHeader("huge.pdf", "application/pdf", 4096),
	}

	resp, err := f.svc.BatchUpload(context.Background(), f.employer, f.posting.ID.String(), files)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, models.JobStatusPending, resp.ScreeningJob.Status)
	assert.Equal(t, 1, resp.ScreeningJob.TotalResumes)
	assert.Equal(t, 0, resp.ScreeningJob.ProcessedCount)
	assert.Equal(t, []models.SkippedFile{
		{FileName: "notes.txt", Reason: skipReasonNotPDF},
		{FileName: "huge.pdf", Reason: skipReasonTooLarge},
	}, resp.SkippedFiles)
	assert.Len(t, f.queue.enqueued, 1)
	assert.Len(t, f.storage.saved, 1)

	tasks, err := f.repo.FindTasks(context.Background(), resp.ScreeningJob.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "alice.pdf", tasks[0].FileName)
	assert.Equal(t, models.TaskStatusQueued, tasks[0].Status)
}

func TestBatchUpload_ContentTypeWithParameters(t *testing.T) {
	f := newScreeningFixture(t)

	resp, err := f.svc.BatchUpload(context.Background(), f.employer, f.posting.ID.String(),
		[]*multipart.FileHeader{fileHeader("a.pdf", "application/pdf; name=a.pdf", 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Accepted)
	assert.Empty(t, resp.SkippedFiles)
}

func TestBatchUpload_Rejections(t *testing.T) {
	f := newScreeningFixture(t)
	pdf := fileHeader("a.pdf", "application/pdf", 10)

	tests := []struct {
		name   string
		jobID  string
		files  []*multipart.FileHeader
		status int
	}{
		{"missing job id", "", []*multipart.FileHeader{pdf}, http.StatusBadRequest},
		{"malformed job id", "not-a-uuid", []*multipart.FileHeader{pdf}, http.StatusBadRequest},
		{"no files", f.posting.ID.String(), nil, http.StatusBadRequest},
		{"too many files", f.posting.ID.String(), []*multipart.FileHeader{pdf, pdf, pdf, pdf}, http.StatusBadRequest},
		{"only non-pdf", f.posting.ID.String(), []*multipart.FileHeader{fileHeader("a.docx", "application/msword", 10)}, http.StatusBadRequest},
		{"unknown job", uuid.NewString(), []*multipart.FileHeader{pdf}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BatchUpload(context.Background(), f.employer, tt.jobID, tt.files)
			assertStatus(t, err, tt.status)
		})
	}

	assert.Empty(t, f.queue.enqueued)
	assert.Empty(t, f.store.jobs)
}

func TestBatchUpload_OtherEmployersPostingIsNotFound(t *testing.T) {
	f := newScreeningFixture(t)

	_, err := f.svc.BatchUpload(context.Background(), uuid.New(), f.posting.ID.String(),
		[]*multipart.FileHeader{fileHeader("a.pdf", "application/pdf", 10)})
	assertStatus(t, err, http.StatusNotFound)
}

func TestGetResults_PaginatesAndFilters(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 95, 85, 60, 30)
	ctx := context.Background()

	page, err := f.svc.GetResults(ctx, f.employer, models.ResultFilter{ScreeningJobID: job.ID, SortDesc: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 95, page.Results[0].MatchPercentage)
	assert.Equal(t, 85, page.Results[1].MatchPercentage)

	page, err = f.svc.GetResults(ctx, f.employer, models.ResultFilter{ScreeningJobID: job.ID, SortDesc: true, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Results, 2)

	minMatch := 80
	page, err = f.svc.GetResults(ctx, f.employer, models.ResultFilter{ScreeningJobID: job.ID, MinMatch: &minMatch})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 20, page.Limit)
	for _, r := range page.Results {
		assert.GreaterOrEqual(t, r.MatchPercentage, 80)
	}
}

func TestGetResults_EmptyJobReturnsEmptyList(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t)

	page, err := f.svc.GetResults(context.Background(), f.employer, models.ResultFilter{ScreeningJobID: job.ID})
	require.NoError(t, err)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
	assert.False(t, page.HasMore)
}

func TestGetResults_InvalidFilters(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 50)
	tooHigh, negative := 101, -1

	tests := map[string]models.ResultFilter{
		"limit over max":   {ScreeningJobID: job.ID, Limit: 101},
		"negative limit":   {ScreeningJobID: job.ID, Limit: -5},
		"negative offset":  {ScreeningJobID: job.ID, Offset: -1},
		"min match > 100":  {ScreeningJobID: job.ID, MinMatch: &tooHigh},
		"min match < 0":    {ScreeningJobID: job.ID, MinMatch: &negative},
		"unknown status":   {ScreeningJobID: job.ID, Status: "hired"},
		"unknown sort key": {ScreeningJobID: job.ID, SortBy: "salary"},
	}

	for name, filter := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.GetResults(context.Background(), f.employer, filter)
			assertStatus(t, err, http.StatusBadRequest)
		})
	}
}

func TestGetResults_OtherEmployerIsNotFound(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 50)

	_, err := f.svc.GetResults(context.Background(), uuid.New(), models.ResultFilter{ScreeningJobID: job.ID})
	assertStatus(t, err, http.StatusNotFound)
}

func TestGetAnalytics(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 95, 85, 60, 30)

	m, err := f.svc.GetAnalytics(context.Background(), f.employer, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, m.TotalScreened)
	assert.Equal(t, 67.5, m.AverageMatch)
	assert.Equal(t, 2, m.StrongMatches)
	assert.Equal(t, 1, m.ModerateMatches)
	assert.Equal(t, 1, m.WeakMatches)
	assert.Equal(t, 50.0, m.StrongPercentage)
}

func TestGetAnalytics_EmptyJobIsZero(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t)

	m, err := f.svc.GetAnalytics(context.Background(), f.employer, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalScreened)
	assert.Equal(t, 0.0, m.AverageMatch)
}

func TestUpdateShortlist_ReplacesSelection(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 90, 70, 40)
	ctx := context.Background()

	var candidates []uuid.UUID
	for _, r := range f.store.results {
		candidates = append(candidates, r.CandidateID)
	}

	resp, err := f.svc.UpdateShortlist(ctx, f.employer, models.ShortlistRequest{
		ScreeningJobID: job.ID.String(),
		CandidateIDs:   []string{candidates[0].String(), candidates[1].String(), candidates[0].String()},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, candidates[:2], resp.Shortlist)

	resp, err = f.svc.UpdateShortlist(ctx, f.employer, models.ShortlistRequest{
		ScreeningJobID: job.ID.String(),
		CandidateIDs:   []string{candidates[2].String()},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{candidates[2]}, resp.Shortlist)

	page, err := f.svc.GetResults(ctx, f.employer, models.ResultFilter{ScreeningJobID: job.ID, Status: models.ResultStatusShortlisted})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, candidates[2], page.Results[0].CandidateID)
}

func TestUpdateShortlist_Rejections(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 90)

	_, err := f.svc.UpdateShortlist(context.Background(), f.employer, models.ShortlistRequest{
		ScreeningJobID: job.ID.String(),
		CandidateIDs:   []string{uuid.NewString()},
	})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.UpdateShortlist(context.Background(), f.employer, models.ShortlistRequest{
		ScreeningJobID: "bad",
	})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.UpdateShortlist(context.Background(), f.employer, models.ShortlistRequest{
		ScreeningJobID: uuid.NewString(),
	})
	assertStatus(t, err, http.StatusNotFound)
}

func TestExportResults_ReturnsAllRows(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 10, 20, 30)

	results, err := f.svc.ExportResults(context.Background(), f.employer, models.ResultFilter{ScreeningJobID: job.ID, SortDesc: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 30, results[0].MatchPercentage)
}

func TestDelete_RemovesJobAndFiles(t *testing.T) {
	f := newScreeningFixture(t)
	ctx := context.Background()

	resp, err := f.svc.BatchUpload(ctx, f.employer, f.posting.ID.String(),
		[]*multipart.FileHeader{fileHeader("a.pdf", "application/pdf", 10), fileHeader("b.pdf", "application/pdf", 10)})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.employer, resp.ScreeningJob.ID))
	assert.ElementsMatch(t, f.storage.saved, f.storage.deleted)
	assert.Equal(t, []uuid.UUID{resp.ScreeningJob.ID}, f.queue.cancelled)

	_, err = f.svc.GetStatus(ctx, f.employer, resp.ScreeningJob.ID)
	assertStatus(t, err, http.StatusNotFound)

	err = f.svc.Delete(ctx, f.employer, resp.ScreeningJob.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestCancel(t *testing.T) {
	f := newScreeningFixture(t)
	ctx := context.Background()

	resp, err := f.svc.BatchUpload(ctx, f.employer, f.posting.ID.String(),
		[]*multipart.FileHeader{fileHeader("a.pdf", "application/pdf", 10)})
	require.NoError(t, err)

	job, err := f.svc.Cancel(ctx, f.employer, resp.ScreeningJob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)

	status, err := f.svc.GetStatus(ctx, f.employer, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Tasks.Cancelled)

	_, err = f.svc.Cancel(ctx, f.employer, job.ID)
	assertStatus(t, err, http.StatusConflict)

	_, err = f.svc.Retry(ctx, f.employer, job.ID)
	assertStatus(t, err, http.StatusConflict)
}

func TestRetry_RequeuesFailedTasks(t *testing.T) {
	f := newScreeningFixture(t)
	ctx := context.Background()

	resp, err := f.svc.BatchUpload(ctx, f.employer, f.posting.ID.String(),
		[]*multipart.FileHeader{fileHeader("a.pdf", "application/pdf", 10)})
	require.NoError(t, err)
	taskID := f.queue.enqueued[0]

	task, err := f.repo.ClaimTask(ctx, taskID)
	require.NoError(t, err)
	_, err = f.repo.FailTask(ctx, task, "unreadable pdf")
	require.NoError(t, err)

	job, err := f.svc.Retry(ctx, f.employer, resp.ScreeningJob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
	assert.Equal(t, 0, job.ProcessedCount)
	assert.Equal(t, 0, job.FailedCount)
	assert.Equal(t, []uuid.UUID{taskID, taskID}, f.queue.enqueued)

	_, err = f.svc.Retry(ctx, f.employer, resp.ScreeningJob.ID)
	assertStatus(t, err, http.StatusConflict)
}

func TestGetResults_MinMatchPageOfTwentyFive(t *testing.T) {
	f := newScreeningFixture(t)
	scores := []int{90, 85, 72, 60}
	for len(scores) < 25 {
		scores = append(scores, 70+len(scores))
	}
	job := f.seedResults(t, scores...)
	minMatch := 70

	filter := models.ResultFilter{ScreeningJobID: job.ID, MinMatch: &minMatch, SortDesc: true, Limit: 20}
	page, err := f.svc.GetResults(context.Background(), f.employer, filter)
	require.NoError(t, err)

	assert.Equal(t, int64(24), page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Results, 20)
	for i, r := range page.Results {
		assert.GreaterOrEqual(t, r.MatchPercentage, 70)
		if i > 0 {
			assert.LessOrEqual(t, r.MatchPercentage, page.Results[i-1].MatchPercentage)
		}
	}

	again, err := f.svc.GetResults(context.Background(), f.employer, filter)
	require.NoError(t, err)
	assert.Equal(t, page.Total, again.Total)
	assert.Equal(t, page.Results, again.Results)
}

func TestGetResults_HugeOffsetHasNoMore(t *testing.T) {
	f := newScreeningFixture(t)
	job := f.seedResults(t, 90, 60, 30)

	filter := models.ResultFilter{ScreeningJobID: job.ID, Offset: math.MaxInt - 5, Limit: 20}
	page, err := f.svc.GetResults(context.Background(), f.employer, filter)
	require.NoError(t, err)

	assert.Equal(t, int64(3), page.Total)
	assert.Empty(t, page.Results)
	assert.False(t, page.HasMore)
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		limit  int
		total  int64
		want   bool
	}{
		{name: "first page of many", offset: 0, limit: 20, total: 24, want: true},
		{name: "exact last page", offset: 20, limit: 4, total: 24, want: false},
		{name: "past the end", offset: 40, limit: 20, total: 24, want: false},
		{name: "empty job", offset: 0, limit: 20, total: 0, want: false},
		{name: "offset near max int", offset: math.MaxInt - 5, limit: 20, total: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasMore(tt.offset, tt.limit, tt.total))
		})
	}
}
