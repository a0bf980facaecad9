package producthistory

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

const resource = "product-history"

// API is the slice of the upstream client this package consumes.
type API interface {
	ListProductHistory(ctx context.Context, token string, p query.Params) (upstream.HistoryPage, error)
}

// Enqueuer hands accepted uploads to the background worker.
type Enqueuer interface {
	EnqueueUploadForward(ctx context.Context, jobID uuid.UUID, token string) error
}

// Service drives the purchase-history listing and the upload journal.
type Service struct {
	api      API
	cache    *query.Cache
	repo     Repository
	enqueuer Enqueuer
	spoolDir string
}

// NewService constructs a Service.
func NewService(api API, cache *query.Cache, repo Repository, enqueuer Enqueuer, spoolDir string) *Service {
	return &Service{api: api, cache: cache, repo: repo, enqueuer: enqueuer, spoolDir: spoolDir}
}

// List returns one page of purchase history with its summary aggregate.
// The summary is server-computed and passed through untouched.
func (s *Service) List(ctx context.Context, user *shared.UserSnapshot, token string, p query.Params) (upstream.HistoryPage, error) {
	p = p.Normalize()
	if !user.CanAccessStore(p.StoreID) {
		return upstream.HistoryPage{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}

	key, err := s.cache.BuildKey(ctx, resource, user.ID, p)
	if err != nil {
		return upstream.HistoryPage{}, err
	}

	var page upstream.HistoryPage
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		return s.api.ListProductHistory(ctx, token, p)
	})
	if err != nil {
		return upstream.HistoryPage{}, upstream.Shape(err)
	}
	return page, nil
}

// SubmitUpload validates the file, spools it to disk, journals the job and
// hands it to the worker. Validation happens before any disk or network
// activity.
func (s *Service) SubmitUpload(ctx context.Context, user *shared.UserSnapshot, token, storeID, filename, contentType string, size int64, file io.Reader) (UploadJob, error) {
	if storeID == "" {
		return UploadJob{}, fmt.Errorf("%w: store is required", httpx.ErrValidation)
	}
	if !user.CanAccessStore(storeID) {
		return UploadJob{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}
	if err := ValidateUpload(filename, contentType, size); err != nil {
		return UploadJob{}, err
	}

	job := UploadJob{
		ID:          uuid.New(),
		StoreID:     storeID,
		FileName:    filepath.Base(filename),
		SizeBytes:   size,
		ContentType: contentType,
		Status:      StatusPending,
		CreatedBy:   user.ID,
	}
	job.FilePath = filepath.Join(s.spoolDir, job.ID.String())

	if err := s.spool(job.FilePath, file, size); err != nil {
		return UploadJob{}, err
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		_ = os.Remove(job.FilePath)
		return UploadJob{}, err
	}
	if err := s.enqueuer.EnqueueUploadForward(ctx, job.ID, token); err != nil {
		_ = s.repo.SetStatus(ctx, job.ID, StatusFailed, "", "could not queue upload")
		return UploadJob{}, err
	}
	return job, nil
}

// JobStatus returns the journal entry for polling progress. Only the
// submitting user may read it.
func (s *Service) JobStatus(ctx context.Context, user *shared.UserSnapshot, id uuid.UUID) (UploadJob, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return UploadJob{}, err
	}
	if job.CreatedBy != user.ID {
		return UploadJob{}, httpx.ErrForbidden
	}
	return job, nil
}

// RetryUpload re-queues a failed job. The spooled file must still exist;
// when it is gone the user has to reselect the file.
func (s *Service) RetryUpload(ctx context.Context, user *shared.UserSnapshot, token string, id uuid.UUID) (UploadJob, error) {
	job, err := s.JobStatus(ctx, user, id)
	if err != nil {
		return UploadJob{}, err
	}
	if job.Status != StatusFailed {
		return UploadJob{}, fmt.Errorf("%w: only failed uploads can be retried", httpx.ErrConflict)
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		return UploadJob{}, fmt.Errorf("%w: the file is no longer available, please reselect it", httpx.ErrValidation)
	}
	if err := s.repo.ResetForRetry(ctx, id); err != nil {
		return UploadJob{}, err
	}
	if err := s.enqueuer.EnqueueUploadForward(ctx, id, token); err != nil {
		return UploadJob{}, err
	}
	job.Status = StatusPending
	job.Progress = 0
	job.Error = ""
	return job, nil
}

// CancelUpload discards a job that has not started. A submission in
// flight cannot be closed.
func (s *Service) CancelUpload(ctx context.Context, user *shared.UserSnapshot, id uuid.UUID) error {
	job, err := s.JobStatus(ctx, user, id)
	if err != nil {
		return err
	}
	switch job.Status {
	case StatusUploading:
		return fmt.Errorf("%w: upload is in flight and cannot be cancelled", httpx.ErrConflict)
	case StatusPending:
		if err := s.repo.SetStatus(ctx, id, StatusFailed, "", "cancelled before upload"); err != nil {
			return err
		}
		_ = os.Remove(job.FilePath)
		return nil
	default:
		return fmt.Errorf("%w: upload already finished", httpx.ErrConflict)
	}
}

// ListJobs returns the user's recent submissions, newest first.
func (s *Service) ListJobs(ctx context.Context, user *shared.UserSnapshot, limit int) ([]UploadJob, error) {
	return s.repo.ListJobsFor(ctx, user.ID, limit)
}

func (s *Service) spool(path string, file io.Reader, size int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()
	// The declared size was validated; cap the copy so an oversized body
	// cannot slip past the ceiling.
	n, err := io.Copy(out, io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	if n > MaxUploadBytes || (size > 0 && n != size) {
		_ = os.Remove(path)
		return fmt.Errorf("%w: file size does not match the declared size", httpx.ErrValidation)
	}
	return nil
}
