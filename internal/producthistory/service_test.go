package producthistory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/shared"
)

type memoryRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]UploadJob
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{jobs: map[uuid.UUID]UploadJob{}}
}

func (r *memoryRepo) CreateJob(_ context.Context, job UploadJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	r.jobs[job.ID] = job
	return nil
}

func (r *memoryRepo) GetJob(_ context.Context, id uuid.UUID) (UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return UploadJob{}, httpx.ErrNotFound
	}
	return job, nil
}

func (r *memoryRepo) ListJobsFor(_ context.Context, userID string, _ int) ([]UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []UploadJob
	for _, job := range r.jobs {
		if job.CreatedBy == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetStatus(_ context.Context, id uuid.UUID, status, message, errDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return httpx.ErrNotFound
	}
	job.Status = status
	job.Message = message
	job.Error = errDetail
	job.UpdatedAt = time.Now()
	r.jobs[id] = job
	return nil
}

func (r *memoryRepo) ResetForRetry(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != StatusFailed {
		return httpx.ErrConflict
	}
	job.Status = StatusPending
	job.Progress = 0
	job.Message = ""
	job.Error = ""
	job.UpdatedAt = time.Now()
	r.jobs[id] = job
	return nil
}

func (r *memoryRepo) SetProgress(_ context.Context, id uuid.UUID, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	job.Progress = progress
	r.jobs[id] = job
	return nil
}

func (r *memoryRepo) PurgeTerminalBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	for id, job := range r.jobs {
		if job.Terminal() && job.UpdatedAt.Before(cutoff) {
			paths = append(paths, job.FilePath)
			delete(r.jobs, id)
		}
	}
	return paths, nil
}

type stubEnqueuer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (e *stubEnqueuer) EnqueueUploadForward(_ context.Context, jobID uuid.UUID, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, jobID)
	return e.err
}

func (e *stubEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func uploadFixture(t *testing.T) (*Service, *memoryRepo, *stubEnqueuer) {
	t.Helper()
	repo := newMemoryRepo()
	enq := &stubEnqueuer{}
	svc := NewService(nil, nil, repo, enq, t.TempDir())
	return svc, repo, enq
}

func uploadUser() *shared.UserSnapshot {
	return &shared.UserSnapshot{ID: "u-1", StoreIDs: []string{"s-1"}}
}

func TestSubmitUploadAcceptsCSV(t *testing.T) {
	svc, repo, enq := uploadFixture(t)

	body := strings.NewReader(strings.Repeat("a,b,c\n", 100))
	job, err := svc.SubmitUpload(context.Background(), uploadUser(), "tok", "s-1",
		"history.csv", "text/csv", body.Size(), body)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 1, enq.count())

	stored, err := repo.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "history.csv", stored.FileName)

	info, err := os.Stat(job.FilePath)
	require.NoError(t, err)
	assert.Equal(t, int64(600), info.Size())
}

func TestSubmitUploadRejectsBeforeAnySideEffect(t *testing.T) {
	svc, repo, enq := uploadFixture(t)
	ctx := context.Background()

	_, err := svc.SubmitUpload(ctx, uploadUser(), "tok", "s-1",
		"big.csv", "text/csv", 12<<20, strings.NewReader("x"))
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.SubmitUpload(ctx, uploadUser(), "tok", "s-1",
		"notes.txt", "text/plain", 1024, strings.NewReader("x"))
	assert.ErrorIs(t, err, httpx.ErrValidation)

	assert.Empty(t, repo.jobs)
	assert.Zero(t, enq.count())
}

func TestSubmitUploadRejectsForeignStore(t *testing.T) {
	svc, repo, enq := uploadFixture(t)

	_, err := svc.SubmitUpload(context.Background(), uploadUser(), "tok", "s-9",
		"history.csv", "text/csv", 1024, strings.NewReader("x"))
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, repo.jobs)
	assert.Zero(t, enq.count())
}

func TestSubmitUploadCleansSpoolWhenEnqueueFails(t *testing.T) {
	svc, repo, enq := uploadFixture(t)
	enq.err = context.DeadlineExceeded

	body := strings.NewReader("a,b\n")
	_, err := svc.SubmitUpload(context.Background(), uploadUser(), "tok", "s-1",
		"history.csv", "text/csv", body.Size(), body)
	require.Error(t, err)

	for _, job := range repo.jobs {
		assert.Equal(t, StatusFailed, job.Status)
	}
}

func TestJobStatusHidesOtherUsersJobs(t *testing.T) {
	svc, repo, _ := uploadFixture(t)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, UploadJob{ID: id, CreatedBy: "someone-else", Status: StatusPending}))

	_, err := svc.JobStatus(ctx, uploadUser(), id)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestCancelRefusedWhileUploading(t *testing.T) {
	svc, repo, _ := uploadFixture(t)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, UploadJob{ID: id, CreatedBy: "u-1", Status: StatusUploading}))

	err := svc.CancelUpload(ctx, uploadUser(), id)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	job, _ := repo.GetJob(ctx, id)
	assert.Equal(t, StatusUploading, job.Status)
}

func TestCancelPendingRemovesSpoolFile(t *testing.T) {
	svc, repo, _ := uploadFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "spooled")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	id := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, UploadJob{
		ID: id, CreatedBy: "u-1", Status: StatusPending, FilePath: path,
	}))

	require.NoError(t, svc.CancelUpload(ctx, uploadUser(), id))

	job, _ := repo.GetJob(ctx, id)
	assert.Equal(t, StatusFailed, job.Status)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRetryRequiresFailedStatusAndSpoolFile(t *testing.T) {
	svc, repo, enq := uploadFixture(t)
	ctx := context.Background()

	succeeded := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, UploadJob{ID: succeeded, CreatedBy: "u-1", Status: StatusSucceeded}))
	_, err := svc.RetryUpload(ctx, uploadUser(), "tok", succeeded)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	gone := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, UploadJob{
		ID: gone, CreatedBy: "u-1", Status: StatusFailed,
		FilePath: filepath.Join(t.TempDir(), "missing"),
	}))
	_, err = svc.RetryUpload(ctx, uploadUser(), "tok", gone)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Contains(t, err.Error(), "reselect")
	assert.Zero(t, enq.count())
}

func TestRetryRequeuesFailedJob(t *testing.T) {
	svc, repo, enq := uploadFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "spooled")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	id := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, UploadJob{
		ID: id, CreatedBy: "u-1", Status: StatusFailed, FilePath: path, Error: "boom",
	}))

	job, err := svc.RetryUpload(ctx, uploadUser(), "tok", id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Zero(t, job.Progress)
	assert.Empty(t, job.Error)
	assert.Equal(t, 1, enq.count())
}
