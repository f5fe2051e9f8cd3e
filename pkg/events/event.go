package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "INTERVIEW_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by all publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes emitted by the interview services.
const (
	TypeSessionStarted     = "SESSION_STARTED"
	TypeInterviewCompleted = "INTERVIEW_COMPLETED"
	TypeSummaryFailed      = "SUMMARY_FAILED"
	TypeSessionArchived    = "SESSION_ARCHIVED"
)

// NewSessionEvent builds an event carrying a session id plus extra fields.
func NewSessionEvent(eventType, sessionID string, extra map[string]interface{}) BaseEvent {
	data := map[string]interface{}{"session_id": sessionID}
	for k, v := range extra {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
