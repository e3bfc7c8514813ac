package mode

import (
	"errors"
	"fmt"
	"strings"

	"geoassist-be/pkg/store"
)

var (
	ErrStateExpired      = errors.New("mode session expired")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrModeNotRegistered = errors.New("mode not registered")
)

// ModeMismatchError rejects an event addressed to a mode the user is not in.
// Expired is set when the user was in Requested but the session timed out.
type ModeMismatchError struct {
	Requested store.Mode
	Current   store.Mode
	Expired   bool
}

func (e *ModeMismatchError) Error() string {
	if e.Expired {
		return fmt.Sprintf("mode %s expired", e.Requested)
	}
	return fmt.Sprintf("mode mismatch: requested %s, current %s", e.Requested, e.Current)
}

func (e *ModeMismatchError) Unwrap() error {
	if e.Expired {
		return ErrStateExpired
	}
	return nil
}

// Guidance is the user-facing explanation, naming the command that fixes it.
func (e *ModeMismatchError) Guidance() string {
	switch {
	case e.Expired:
		return fmt.Sprintf("Your %s session timed out. Send %s to start again.",
			strings.ToLower(string(e.Requested)), EntryCommand(e.Requested))
	case e.Current == store.ModeNone:
		return fmt.Sprintf("No mode is active. Send %s first.", EntryCommand(e.Requested))
	default:
		return fmt.Sprintf("You are in %s mode. Send /exit to leave it, or %s to switch.",
			strings.ToLower(string(e.Current)), EntryCommand(e.Requested))
	}
}

// EntryCommand is the chat command that enters m.
func EntryCommand(m store.Mode) string {
	if m.OrNone() == store.ModeNone {
		return "/exit"
	}
	return "/" + strings.ToLower(string(m))
}
