package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobType classifies the background operations the job manager executes.
type JobType string

const (
	JobTypeFullIndex   JobType = "full_index"
	JobTypeCleanupSync JobType = "cleanup_sync"
	JobTypeDelete      JobType = "delete"
)

// JobStatus tracks a sync job through its lifecycle.
//
// Lifecycle: pending -> running -> completed | failed (terminal).
// A retried job returns to pending with RetryCount incremented.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// SyncJob is the immutable description of one background operation against a
// store's knowledge base. Runtime state lives on the struct but the identity
// fields never change after submission.
//
// The JobID is derived from (type, storeID) plus a submission nonce so
// duplicate submissions are distinguishable from retries of the same job.
type SyncJob struct {
	JobID   string  `json:"job_id" badgerhold:"key"`
	StoreID string  `json:"store_id"`
	Type    JobType `json:"type"`

	// Priority orders competing jobs; lower values run first.
	Priority int `json:"priority"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// DataTypes restricts cleanup_sync runs; empty means all data types.
	DataTypes []DataType `json:"data_types,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewSyncJob creates a pending job for the given operation and store.
// The nonce distinguishes independent submissions of the same (type, store)
// pair; callers obtain it from common.NewJobNonce.
func NewSyncJob(jobType JobType, storeID, nonce string, maxRetries int) *SyncJob {
	return &SyncJob{
		JobID:      fmt.Sprintf("job_%s_%s_%s", jobType, storeID, nonce),
		StoreID:    storeID,
		Type:       jobType,
		MaxRetries: maxRetries,
		Status:     JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// InFlightKey identifies the (type, store) pair used to coalesce duplicate
// submissions while a job is still pending or running.
func (j *SyncJob) InFlightKey() string {
	return string(j.Type) + ":" + j.StoreID
}

// MarkStarted transitions the job to running.
func (j *SyncJob) MarkStarted() {
	j.Status = JobStatusRunning
	now := time.Now().UTC()
	j.StartedAt = &now
}

// MarkCompleted transitions the job to its successful terminal state.
func (j *SyncJob) MarkCompleted() {
	j.Status = JobStatusCompleted
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// MarkFailed transitions the job to failed with the given error message.
// Whether the failure is terminal depends on CanRetry.
func (j *SyncJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.Error = errMsg
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// MarkFailedFatal transitions the job to failed and discards any remaining
// retry budget. Used for errors retrying cannot fix, such as revoked
// credentials.
func (j *SyncJob) MarkFailedFatal(errMsg string) {
	j.RetryCount = j.MaxRetries
	j.MarkFailed(errMsg)
}

// CanRetry reports whether the job has retry budget left.
func (j *SyncJob) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// PrepareRetry resets the job to pending with an incremented retry count.
func (j *SyncJob) PrepareRetry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.Error = ""
}

// IsTerminal reports whether the job has finished for good.
func (j *SyncJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		(j.Status == JobStatusFailed && !j.CanRetry())
}

// Validate checks the job is well formed before it is enqueued.
func (j *SyncJob) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.StoreID == "" {
		return fmt.Errorf("store ID is required")
	}
	switch j.Type {
	case JobTypeFullIndex, JobTypeCleanupSync, JobTypeDelete:
	default:
		return fmt.Errorf("unknown job type: %s", j.Type)
	}
	if j.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// ToJSON serializes the job for queue storage.
func (j *SyncJob) ToJSON() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync job: %w", err)
	}
	return data, nil
}

// SyncJobFromJSON deserializes a job from queue storage.
func SyncJobFromJSON(data []byte) (*SyncJob, error) {
	var job SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync job: %w", err)
	}
	return &job, nil
}

// JobResult is the structured outcome of one job execution attempt.
type JobResult struct {
	JobID           string   `json:"job_id"`
	Success         bool     `json:"success"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Operations      []string `json:"operations"`
	Error           string   `json:"error,omitempty"`
	// ReconnectRequired is set when the failure was a credential rejection;
	// the merchant must re-authorize the store before syncs can resume.
	ReconnectRequired bool `json:"reconnect_required,omitempty"`
}
