package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode identifies the feature a user is currently interacting with.
type Mode string

const (
	ModeNone     Mode = "NONE"
	ModeLocation Mode = "LOCATION"
	ModeWorkbook Mode = "WORKBOOK"
	ModeArchive  Mode = "ARCHIVE"
	ModeGeotags  Mode = "GEOTAGS"
	ModeKML      Mode = "KML"
	ModeOCR      Mode = "OCR"
)

var allModes = []Mode{ModeNone, ModeLocation, ModeWorkbook, ModeArchive, ModeGeotags, ModeKML, ModeOCR}

// Modes returns the closed set of modes, NONE first.
func Modes() []Mode {
	out := make([]Mode, len(allModes))
	copy(out, allModes)
	return out
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" {
		return ModeNone, nil
	}
	if !m.Valid() {
		return ModeNone, fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	for _, known := range allModes {
		if m == known {
			return true
		}
	}
	return false
}

// OrNone maps the zero value to ModeNone.
func (m Mode) OrNone() Mode {
	if m == "" {
		return ModeNone
	}
	return m
}

func (m Mode) String() string {
	return string(m.OrNone())
}

// ModeSession is the per-user record of the active mode. It is stored by value
// and replaced whole on every change.
type ModeSession struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	CurrentMode    Mode      `json:"current_mode"`
	PreviousMode   Mode      `json:"previous_mode"`
	EnteredAt      time.Time `json:"entered_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewModeSession opens a session for userID in mode, remembering previous.
func NewModeSession(userID string, mode, previous Mode, now time.Time) ModeSession {
	return ModeSession{
		ID:             uuid.New(),
		UserID:         userID,
		CurrentMode:    mode.OrNone(),
		PreviousMode:   previous.OrNone(),
		EnteredAt:      now,
		LastActivityAt: now,
	}
}

// IdleFor reports how long the session has been inactive at now.
func (s ModeSession) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}

// Touched returns a copy with LastActivityAt moved to now.
func (s ModeSession) Touched(now time.Time) ModeSession {
	s.LastActivityAt = now
	return s
}

// FeatureKey builds the storage key of the feature state owned by userID in mode.
func FeatureKey(userID string, mode Mode) string {
	return string(mode.OrNone()) + ":" + userID
}
