package events

import "time"

const (
	TypeModeSwitched = "MODE_SWITCHED"
	TypeResultSaved  = "RESULT_SAVED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MODE_SWITCHED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

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

// NewModeSwitched records a user moving between modes.
func NewModeSwitched(userID, previous, next, reason string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeModeSwitched,
		Data: map[string]interface{}{
			"user_id":       userID,
			"previous_mode": previous,
			"new_mode":      next,
			"reason":        reason,
		},
		OccurredAt: at,
	}
}

// NewResultSaved records a feature result reaching the database.
func NewResultSaved(resultID, userID, mode, resultType string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeResultSaved,
		Data: map[string]interface{}{
			"result_id":   resultID,
			"user_id":     userID,
			"mode":        mode,
			"result_type": resultType,
		},
		OccurredAt: at,
	}
}

// StringField reads a string value from an event payload.
func StringField(e Event, key string) string {
	v, _ := e.Payload()[key].(string)
	return v
}
