package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/martdesk/martdesk/internal/producthistory"
	"github.com/martdesk/martdesk/internal/query"
)

// UploadAPI is the slice of the upstream client the worker consumes.
type UploadAPI interface {
	UploadProductHistory(ctx context.Context, token, storeID, filename string, file io.Reader, progress func(pct int)) (string, error)
}

// Processor executes queued tasks against the journal and the upstream API.
type Processor struct {
	logger *slog.Logger
	repo   producthistory.Repository
	api    UploadAPI
	cache  *query.Cache
}

// NewProcessor constructs a Processor.
func NewProcessor(logger *slog.Logger, repo producthistory.Repository, api UploadAPI, cache *query.Cache) *Processor {
	return &Processor{logger: logger, repo: repo, api: api, cache: cache}
}

// HandleUploadForward streams one spooled file upstream. Progress writes
// are debounced so a fast transfer does not hammer the journal; the final
// percentage is always flushed.
func (p *Processor) HandleUploadForward(ctx context.Context, t *asynq.Task) error {
	var payload UploadForwardPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	job, err := p.repo.GetJob(ctx, payload.JobID)
	if err != nil {
		p.logger.Warn("upload job missing", "job_id", payload.JobID, "error", err)
		return asynq.SkipRetry
	}
	if job.Status != producthistory.StatusPending {
		// Cancelled or already handled; nothing to forward.
		return nil
	}

	file, err := os.Open(job.FilePath)
	if err != nil {
		p.fail(ctx, job, "spooled file is no longer available")
		return asynq.SkipRetry
	}
	defer func() {
		_ = file.Close()
	}()

	if err := p.repo.SetStatus(ctx, job.ID, producthistory.StatusUploading, "", ""); err != nil {
		return err
	}

	progress := query.NewDebouncer(200*time.Millisecond, func(value string) {
		pct, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		if err := p.repo.SetProgress(ctx, job.ID, pct); err != nil {
			p.logger.Warn("record upload progress", "job_id", job.ID, "error", err)
		}
	})
	defer progress.Stop()

	message, err := p.api.UploadProductHistory(ctx, payload.Token, job.StoreID, job.FileName, file, func(pct int) {
		progress.Trigger(strconv.Itoa(pct))
	})
	if err != nil {
		progress.Stop()
		p.fail(ctx, job, err.Error())
		p.bump(ctx)
		return fmt.Errorf("forward upload %s: %w", job.ID, err)
	}

	progress.Stop()
	if err := p.repo.SetProgress(ctx, job.ID, 100); err != nil {
		p.logger.Warn("record final progress", "job_id", job.ID, "error", err)
	}
	if err := p.repo.SetStatus(ctx, job.ID, producthistory.StatusSucceeded, message, ""); err != nil {
		return err
	}
	p.bump(ctx)
	p.logger.Info("upload forwarded", "job_id", job.ID, "store_id", job.StoreID)
	return nil
}

// HandleJournalCleanup prunes finished journal entries past the retention
// window and unlinks their spool files.
func (p *Processor) HandleJournalCleanup(ctx context.Context, t *asynq.Task) error {
	var payload JournalCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = 7 * 24 * time.Hour
	}

	paths, err := p.repo.PurgeTerminalBefore(ctx, time.Now().Add(-payload.Retention))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("remove spool file", "path", path, "error", err)
		}
	}
	if len(paths) > 0 {
		p.logger.Info("upload journal pruned", "removed", len(paths))
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, job producthistory.UploadJob, detail string) {
	if err := p.repo.SetStatus(ctx, job.ID, producthistory.StatusFailed, "", detail); err != nil {
		p.logger.Error("mark upload failed", "job_id", job.ID, "error", err)
	}
}

// bump invalidates the listings the finished upload feeds. New rows land
// in the purchase history; rejected rows land in the failed uploads.
func (p *Processor) bump(ctx context.Context) {
	for _, resource := range []string{"product-history", "failed-uploads"} {
		if err := p.cache.Bump(ctx, resource); err != nil {
			p.logger.Warn("bump cache", "resource", resource, "error", err)
		}
	}
}
