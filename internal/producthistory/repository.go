package producthistory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martdesk/martdesk/internal/platform/db"
	"github.com/martdesk/martdesk/internal/platform/httpx"
)

// Repository journals upload jobs in postgres.
type Repository interface {
	CreateJob(ctx context.Context, job UploadJob) error
	GetJob(ctx context.Context, id uuid.UUID) (UploadJob, error)
	ListJobsFor(ctx context.Context, userID string, limit int) ([]UploadJob, error)
	SetStatus(ctx context.Context, id uuid.UUID, status, message, errDetail string) error
	SetProgress(ctx context.Context, id uuid.UUID, progress int) error
	ResetForRetry(ctx context.Context, id uuid.UUID) error
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the postgres-backed journal.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) CreateJob(ctx context.Context, job UploadJob) error {
	const q = `INSERT INTO upload_jobs
		(id, store_id, file_name, file_path, size_bytes, content_type, status, progress, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	_, err := r.db.Exec(ctx, q,
		job.ID, job.StoreID, job.FileName, job.FilePath, job.SizeBytes,
		job.ContentType, job.Status, job.Progress, job.CreatedBy, time.Now())
	return err
}

func (r *repository) GetJob(ctx context.Context, id uuid.UUID) (UploadJob, error) {
	const q = `SELECT id, store_id, file_name, file_path, size_bytes, content_type,
		status, progress, message, error, created_by, created_at, updated_at
		FROM upload_jobs WHERE id = $1`
	var job UploadJob
	err := r.db.QueryRow(ctx, q, id).Scan(
		&job.ID, &job.StoreID, &job.FileName, &job.FilePath, &job.SizeBytes,
		&job.ContentType, &job.Status, &job.Progress, &job.Message, &job.Error,
		&job.CreatedBy, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UploadJob{}, httpx.ErrNotFound
	}
	return job, err
}

func (r *repository) ListJobsFor(ctx context.Context, userID string, limit int) ([]UploadJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, store_id, file_name, file_path, size_bytes, content_type,
		status, progress, message, error, created_by, created_at, updated_at
		FROM upload_jobs WHERE created_by = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []UploadJob
	for rows.Next() {
		var job UploadJob
		if err := rows.Scan(
			&job.ID, &job.StoreID, &job.FileName, &job.FilePath, &job.SizeBytes,
			&job.ContentType, &job.Status, &job.Progress, &job.Message, &job.Error,
			&job.CreatedBy, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status, message, errDetail string) error {
	const q = `UPDATE upload_jobs SET status = $2, message = $3, error = $4, updated_at = $5 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, status, message, errDetail, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ResetForRetry returns a failed job to pending with its progress and
// error cleared, atomically so a worker picking it up never sees a
// half-reset row.
func (r *repository) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `UPDATE upload_jobs
			SET status = $2, progress = 0, message = '', error = '', updated_at = $3
			WHERE id = $1 AND status = $4`
		tag, err := tx.Exec(ctx, q, id, StatusPending, time.Now(), StatusFailed)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrConflict
		}
		return nil
	})
}

func (r *repository) SetProgress(ctx context.Context, id uuid.UUID, progress int) error {
	const q = `UPDATE upload_jobs SET progress = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id, progress, time.Now())
	return err
}

// PurgeTerminalBefore deletes finished jobs older than the cutoff and
// returns their spool paths so the worker can unlink the files.
func (r *repository) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const q = `DELETE FROM upload_jobs
		WHERE status IN ($1, $2) AND updated_at < $3
		RETURNING file_path`
	rows, err := r.db.Query(ctx, q, StatusSucceeded, StatusFailed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, rows.Err()
}
