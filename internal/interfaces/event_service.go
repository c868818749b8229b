package interfaces

import "github.com/ternarybob/taberna/internal/models"

// EventType classifies job lifecycle events published to the outbound
// notification channel.
type EventType string

const (
	EventJobQueued    EventType = "job_queued"
	EventJobStarted   EventType = "job_started"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventJobRetried   EventType = "job_retried"
)

// Event is one job lifecycle notification. Delivery beyond the subscriber
// boundary is entirely the receiver's responsibility.
type Event struct {
	Type    EventType         `json:"type"`
	JobID   string            `json:"job_id"`
	StoreID string            `json:"store_id"`
	JobType models.JobType    `json:"job_type"`
	Result  *models.JobResult `json:"result,omitempty"`
}

// EventHandler consumes published events.
type EventHandler func(Event)

// EventService is the in-process pub/sub bus for job lifecycle events.
type EventService interface {
	Publish(event Event)
	Subscribe(handler EventHandler) (unsubscribe func())
}
