package mode

import (
	"context"
	"time"

	"geoassist-be/pkg/store"

	"github.com/google/uuid"
)

type SwitchReason string

const (
	ReasonEntered SwitchReason = "entered"
	ReasonExited  SwitchReason = "exited"
	ReasonExpired SwitchReason = "expired"
)

// SwitchEvent describes one change of a user's active mode.
type SwitchEvent struct {
	SessionID uuid.UUID    `json:"session_id"`
	UserID    string       `json:"user_id"`
	Previous  store.Mode   `json:"previous_mode"`
	Next      store.Mode   `json:"new_mode"`
	Reason    SwitchReason `json:"reason"`
	At        time.Time    `json:"timestamp"`
}

// Observer is notified after every mode switch, outside of any user lane.
// Implementations must not block for long; delivery is best effort.
type Observer interface {
	ModeSwitched(ctx context.Context, ev SwitchEvent)
}

type ObserverFunc func(ctx context.Context, ev SwitchEvent)

func (f ObserverFunc) ModeSwitched(ctx context.Context, ev SwitchEvent) {
	f(ctx, ev)
}
