// Package producthistory serves the purchase-history listing and the
// spreadsheet ingestion flow.
package producthistory

import (
	"time"

	"github.com/google/uuid"
)

// Upload job states. pending → uploading → {succeeded | failed}. A failed
// job whose spool file is still present may be retried; an uploading job
// cannot be cancelled.
const (
	StatusPending   = "pending"
	StatusUploading = "uploading"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// UploadJob is one journaled ingestion submission.
type UploadJob struct {
	ID          uuid.UUID `json:"id"`
	StoreID     string    `json:"storeId"`
	FileName    string    `json:"fileName"`
	FilePath    string    `json:"-"`
	SizeBytes   int64     `json:"sizeBytes"`
	ContentType string    `json:"contentType"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Terminal reports whether the job reached a final state.
func (j UploadJob) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}
