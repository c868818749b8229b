// Durable job queue on Badger. Jobs are stored under a data key and indexed
// by visibility timestamp; Receive scans the index for the first ready entry
// and pushes its visibility forward, so an unacknowledged job resurfaces
// after the visibility timeout.

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// ErrNoMessage is returned by Receive when no job is ready.
var ErrNoMessage = errors.New("no messages in queue")

type queueMessage struct {
	ID           string          `json:"id"`
	Job          *models.SyncJob `json:"job"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAt    time.Time       `json:"visible_at"`
	ReceiveCount int             `json:"receive_count"`
}

// Manager implements a persistent queue over a raw Badger handle.
type Manager struct {
	db                *badgerdb.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

// NewManager creates a Badger-backed queue manager.
func NewManager(db *badgerdb.DB, queueName string, visibilityTimeout time.Duration, maxReceive int, logger arbor.ILogger) (interfaces.QueueManager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 5
	}
	return &Manager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
		logger:            logger,
	}, nil
}

// Enqueue adds a job, visible after the given delay (zero for immediately).
func (m *Manager) Enqueue(ctx context.Context, job *models.SyncJob, delay time.Duration) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("refusing to enqueue invalid job: %w", err)
	}

	msg := queueMessage{
		ID:         uuid.New().String(),
		Job:        job,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now().Add(delay),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(m.msgKey(msg.ID), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(msg.VisibleAt, msg.ID), []byte{})
	})
}

// Receive claims the next visible job. The returned function acknowledges
// the job by deleting it; without the ack the job resurfaces after the
// visibility timeout.
func (m *Manager) Receive(ctx context.Context) (*models.SyncJob, func() error, error) {
	var claimed queueMessage
	var claimedID string

	err := m.db.Update(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			indexKey := it.Item().KeyCopy(nil)
			ts, id, err := m.parseIndexKey(indexKey)
			if err != nil {
				continue
			}
			if ts.After(now) {
				// Index keys sort by timestamp; nothing further is ready.
				break
			}

			item, err := txn.Get(m.msgKey(id))
			if err != nil {
				if errors.Is(err, badgerdb.ErrKeyNotFound) {
					// Dangling index entry; clean it up and keep scanning.
					if err := txn.Delete(indexKey); err != nil {
						return err
					}
					continue
				}
				return err
			}

			var msg queueMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}

			if msg.ReceiveCount >= m.maxReceive {
				// Poison pill: drop it rather than loop forever.
				m.logger.Warn().
					Str("job_id", msg.Job.JobID).
					Int("receive_count", msg.ReceiveCount).
					Msg("Dropping job that exceeded max receive count")
				if err := txn.Delete(indexKey); err != nil {
					return err
				}
				if err := txn.Delete(m.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			msg.ReceiveCount++
			msg.VisibleAt = time.Now().Add(m.visibilityTimeout)

			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(m.msgKey(id), data); err != nil {
				return err
			}
			if err := txn.Delete(indexKey); err != nil {
				return err
			}
			if err := txn.Set(m.indexKey(msg.VisibleAt, id), []byte{}); err != nil {
				return err
			}

			claimed = msg
			claimedID = id
			return nil
		}
		return ErrNoMessage
	})
	if err != nil {
		return nil, nil, err
	}

	deleteFn := func() error {
		return m.db.Update(func(txn *badgerdb.Txn) error {
			item, err := txn.Get(m.msgKey(claimedID))
			if err != nil {
				if errors.Is(err, badgerdb.ErrKeyNotFound) {
					return nil // already acknowledged
				}
				return err
			}
			var current queueMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}
			if err := txn.Delete(m.indexKey(current.VisibleAt, claimedID)); err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
				return err
			}
			return txn.Delete(m.msgKey(claimedID))
		})
	}

	return claimed.Job, deleteFn, nil
}

// Close is a no-op; the Badger handle is owned by the storage layer.
func (m *Manager) Close() error {
	return nil
}

func (m *Manager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *Manager) indexKey(visibleAt time.Time, id string) []byte {
	// Zero-padded nanos keep lexical order equal to time order.
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), id))
}

func (m *Manager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := fmt.Sprintf("queue:%s:index:", m.queueName)
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid index key")
	}
	suffix := string(key[len(prefix):])
	if len(suffix) < 21 {
		return time.Time{}, "", fmt.Errorf("invalid index key suffix")
	}
	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
