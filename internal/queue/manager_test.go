package queue

import (
	"context"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

func testQueue(t *testing.T, visibility time.Duration, maxReceive int) interfaces.QueueManager {
	t.Helper()
	opts := badgerdb.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mgr, err := NewManager(db, "sync", visibility, maxReceive, common.GetLogger())
	require.NoError(t, err)
	return mgr
}

func TestEnqueueReceiveAck(t *testing.T) {
	q := testQueue(t, time.Minute, 5)
	ctx := context.Background()

	job := models.NewSyncJob(models.JobTypeFullIndex, "store-1", "abcd0001", 3)
	require.NoError(t, q.Enqueue(ctx, job, 0))

	received, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, received.JobID)
	assert.Equal(t, models.JobTypeFullIndex, received.Type)

	require.NoError(t, ack())

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage, "acknowledged job is gone")
}

func TestReceiveEmptyQueue(t *testing.T) {
	q := testQueue(t, time.Minute, 5)

	_, _, err := q.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestEnqueueRejectsInvalidJob(t *testing.T) {
	q := testQueue(t, time.Minute, 5)

	err := q.Enqueue(context.Background(), &models.SyncJob{JobID: "job-x"}, 0)
	assert.Error(t, err, "jobs without store or type must be refused")
}

func TestDelayedJobInvisibleUntilDue(t *testing.T) {
	q := testQueue(t, time.Minute, 5)
	ctx := context.Background()

	job := models.NewSyncJob(models.JobTypeCleanupSync, "store-1", "abcd0002", 3)
	require.NoError(t, q.Enqueue(ctx, job, 150*time.Millisecond))

	_, _, err := q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage, "delayed job is not yet visible")

	time.Sleep(200 * time.Millisecond)

	received, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, received.JobID)
	require.NoError(t, ack())
}

func TestUnackedJobResurfacesAfterVisibilityTimeout(t *testing.T) {
	q := testQueue(t, 150*time.Millisecond, 5)
	ctx := context.Background()

	job := models.NewSyncJob(models.JobTypeFullIndex, "store-1", "abcd0003", 3)
	require.NoError(t, q.Enqueue(ctx, job, 0))

	_, _, err := q.Receive(ctx)
	require.NoError(t, err)

	// Invisible while the first receiver holds it.
	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	time.Sleep(200 * time.Millisecond)

	received, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, received.JobID, "unacknowledged job came back")
	require.NoError(t, ack())
}

func TestPoisonJobDroppedAfterMaxReceives(t *testing.T) {
	q := testQueue(t, 50*time.Millisecond, 2)
	ctx := context.Background()

	job := models.NewSyncJob(models.JobTypeFullIndex, "store-1", "abcd0004", 3)
	require.NoError(t, q.Enqueue(ctx, job, 0))

	for i := 0; i < 2; i++ {
		_, _, err := q.Receive(ctx)
		require.NoError(t, err)
		time.Sleep(80 * time.Millisecond)
	}

	_, _, err := q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage, "poison job is dropped, not redelivered forever")
}

func TestQueueOrdersByVisibility(t *testing.T) {
	q := testQueue(t, time.Minute, 5)
	ctx := context.Background()

	first := models.NewSyncJob(models.JobTypeFullIndex, "store-1", "abcd0005", 3)
	second := models.NewSyncJob(models.JobTypeFullIndex, "store-2", "abcd0006", 3)
	require.NoError(t, q.Enqueue(ctx, first, 0))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, second, 0))

	received, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, received.JobID, "oldest visible job first")
	require.NoError(t, ack())
}
