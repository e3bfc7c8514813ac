package workflow

import (
	"strings"

	"geoassist-be/pkg/geo"
)

// PointFrom extracts a validated coordinate from a location share or from
// coordinate text.
func PointFrom(ev Event) (geo.Point, error) {
	if ev.Point != nil {
		if err := ev.Point.Validate(); err != nil {
			return geo.Point{}, InvalidWrap("coordinate", err)
		}
		return *ev.Point, nil
	}
	if ev.Kind == EventText {
		p, err := geo.ParsePoint(ev.Text)
		if err != nil {
			return geo.Point{}, InvalidWrap("coordinate", err)
		}
		return p, nil
	}
	return geo.Point{}, Invalid("coordinate", "message carries no location")
}

// NormalizeCommand lowercases a command and strips the leading slash.
func NormalizeCommand(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}

// IsCommand reports whether ev is one of the given commands.
func (ev Event) IsCommand(names ...string) bool {
	if ev.Kind != EventCommand {
		return false
	}
	cmd := NormalizeCommand(ev.Command)
	for _, n := range names {
		if cmd == n {
			return true
		}
	}
	return false
}

// CommandName returns the normalized command of ev, or "" for other kinds.
func (ev Event) CommandName() string {
	if ev.Kind != EventCommand {
		return ""
	}
	return NormalizeCommand(ev.Command)
}

// CommandSet is implemented by workflows that own mode-scoped commands.
type CommandSet interface {
	Commands() []string
}
