// Package feed carries change notifications from the task surfaces to the
// rotation engine's listener. Delivery is at least once: a publisher may
// retry, so every notification carries a unique id consumers dedup on.
package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	TypeInstanceCreated   EventType = "created"
	TypeInstanceCompleted EventType = "completed"
	TypeInstanceDeleted   EventType = "deleted"
	TypeSkipRequested     EventType = "skip_requested"
)

// Notification describes one change to a task instance (or a manual skip
// request, which carries no instance).
type Notification struct {
	ID                   string    `json:"id"`
	Type                 EventType `json:"type"`
	GroupID              int64     `json:"group_id"`
	InstanceID           int64     `json:"instance_id,omitempty"`
	RotationDefinitionID int64     `json:"rotation_definition_id,omitempty"`
	FirstAssignee        int64     `json:"first_assignee,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// New builds a notification with a fresh id and timestamp.
func New(t EventType, groupID, instanceID, definitionID, firstAssignee int64) Notification {
	return Notification{
		ID:                   uuid.NewString(),
		Type:                 t,
		GroupID:              groupID,
		InstanceID:           instanceID,
		RotationDefinitionID: definitionID,
		FirstAssignee:        firstAssignee,
		OccurredAt:           time.Now().UTC(),
	}
}

const busBuffer = 256

// Bus is the in-process transport for notifications. It stands in for
// whatever external feed (database triggers, a broker) a deployment wires
// up; consumers must tolerate redelivery either way.
type Bus struct {
	mu     sync.Mutex
	ch     chan Notification
	closed bool
}

func NewBus() *Bus {
	return &Bus{ch: make(chan Notification, busBuffer)}
}

// Publish enqueues a notification. It blocks when the buffer is full rather
// than dropping: losing a completion event would stall the rotation until
// the next manual trigger.
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ch <- n
}

// Notifications returns the consumer channel. The bus has a single consumer,
// the rotation listener.
func (b *Bus) Notifications() <-chan Notification {
	return b.ch
}

// Close stops the bus. Pending notifications remain readable until drained.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
