// Package jobs runs the background side of the gateway: forwarding
// spooled uploads to the upstream API and pruning the upload journal.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeUploadForward forwards a spooled spreadsheet upstream.
	TaskTypeUploadForward = "upload:forward"
	// TaskTypeJournalCleanup prunes finished upload journal entries.
	TaskTypeJournalCleanup = "journal:cleanup"
)

// UploadForwardPayload identifies the journaled job to forward. The
// upstream token rides along because the worker has no session.
type UploadForwardPayload struct {
	JobID uuid.UUID `json:"job_id"`
	Token string    `json:"token"`
}

// NewUploadForwardTask constructs an Asynq task.
func NewUploadForwardTask(payload UploadForwardPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUploadForward, data, asynq.Queue(QueueDefault)), nil
}

// JournalCleanupPayload carries the retention window.
type JournalCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewJournalCleanupTask constructs an Asynq task.
func NewJournalCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(JournalCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeJournalCleanup, data, asynq.Queue(QueueDefault)), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueUploadForward queues a spooled upload for forwarding.
func (c *Client) EnqueueUploadForward(ctx context.Context, jobID uuid.UUID, token string) error {
	task, err := NewUploadForwardTask(UploadForwardPayload{JobID: jobID, Token: token})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(0))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
