package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
	"github.com/ternarybob/taberna/internal/services/events"
)

// memQueue records enqueued jobs.
type memQueue struct {
	mu   sync.Mutex
	jobs []*models.SyncJob
}

func (q *memQueue) Enqueue(ctx context.Context, job *models.SyncJob, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Receive(ctx context.Context) (*models.SyncJob, func() error, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil, context.DeadlineExceeded
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, func() error { return nil }, nil
}

func (q *memQueue) Close() error { return nil }

// memJobStorage is an in-memory JobStorage.
type memJobStorage struct {
	mu   sync.Mutex
	jobs map[string]*models.SyncJob
}

func newMemJobStorage() *memJobStorage {
	return &memJobStorage{jobs: make(map[string]*models.SyncJob)}
}

func (s *memJobStorage) SaveJob(ctx context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.JobID] = &copied
	return nil
}

func (s *memJobStorage) GetJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[jobID], nil
}

func (s *memJobStorage) GetInFlightJob(ctx context.Context, jobType models.JobType, storeID string) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Type == jobType && job.StoreID == storeID &&
			(job.Status == models.JobStatusPending || job.Status == models.JobStatusRunning) {
			return job, nil
		}
	}
	return nil, nil
}

func (s *memJobStorage) ListJobsByStore(ctx context.Context, storeID string) ([]*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.SyncJob
	for _, job := range s.jobs {
		if job.StoreID == storeID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *memJobStorage) DeleteJobsByStore(ctx context.Context, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.StoreID == storeID {
			delete(s.jobs, id)
		}
	}
	return nil
}

func newTestManager() (interfaces.JobService, *memQueue, *memJobStorage, *[]interfaces.Event) {
	queue := &memQueue{}
	storage := newMemJobStorage()
	bus := events.NewService(common.GetLogger())

	var published []interfaces.Event
	bus.Subscribe(func(e interfaces.Event) { published = append(published, e) })

	manager := NewManager(queue, storage, bus, &common.JobsConfig{MaxRetries: 3}, common.GetLogger())
	return manager, queue, storage, &published
}

func TestSubmitIndexJobPersistsAndEnqueues(t *testing.T) {
	manager, queue, storage, published := newTestManager()

	jobID, err := manager.SubmitIndexJob(context.Background(), "store-1")
	require.NoError(t, err)
	assert.Contains(t, jobID, "job_full_index_store-1_")

	stored, err := storage.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Equal(t, 3, stored.MaxRetries)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobID, queue.jobs[0].JobID)

	require.Len(t, *published, 1)
	assert.Equal(t, interfaces.EventJobQueued, (*published)[0].Type)
}

func TestSubmitCoalescesDuplicates(t *testing.T) {
	manager, queue, _, _ := newTestManager()
	ctx := context.Background()

	first, err := manager.SubmitIndexJob(ctx, "store-1")
	require.NoError(t, err)

	second, err := manager.SubmitIndexJob(ctx, "store-1")
	require.NoError(t, err)
	assert.Equal(t, first, second, "duplicate submission returns the in-flight job ID")
	assert.Len(t, queue.jobs, 1, "no duplicate enqueue")

	// Different job type is not coalesced.
	third, err := manager.SubmitDeleteJob(ctx, "store-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	// Different store is not coalesced.
	fourth, err := manager.SubmitIndexJob(ctx, "store-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, fourth)
}

func TestSubmitAfterTerminalStateCreatesNewJob(t *testing.T) {
	manager, _, storage, _ := newTestManager()
	ctx := context.Background()

	first, err := manager.SubmitIndexJob(ctx, "store-1")
	require.NoError(t, err)

	stored, _ := storage.GetJob(ctx, first)
	stored.MarkCompleted()
	require.NoError(t, storage.SaveJob(ctx, stored))

	second, err := manager.SubmitIndexJob(ctx, "store-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "completed jobs do not block new submissions")
}

func TestSubmitCleanupJobCarriesDataTypes(t *testing.T) {
	manager, queue, _, _ := newTestManager()

	jobID, err := manager.SubmitCleanupJob(context.Background(), "store-1",
		[]models.DataType{models.DataTypeProducts})
	require.NoError(t, err)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobID, queue.jobs[0].JobID)
	assert.Equal(t, []models.DataType{models.DataTypeProducts}, queue.jobs[0].DataTypes)
}

func TestSubmitRequiresStoreID(t *testing.T) {
	manager, _, _, _ := newTestManager()

	_, err := manager.SubmitIndexJob(context.Background(), "")
	assert.Error(t, err)
}
