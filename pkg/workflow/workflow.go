// Package workflow defines the contract every mode implements: a small,
// explicit state machine driven one event at a time.
package workflow

import (
	"context"
	"time"

	"geoassist-be/pkg/geo"
)

// Step names a state inside a mode's state machine.
type Step string

type EventKind string

const (
	EventText     EventKind = "text"
	EventCommand  EventKind = "command"
	EventLocation EventKind = "location"
	EventFile     EventKind = "file"
)

// FileRef points at a file the transport already stored locally.
type FileRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Event is one inbound user update after transport classification.
// Point is set for location shares and for text that parses as coordinates.
type Event struct {
	Kind       EventKind  `json:"kind"`
	Text       string     `json:"text,omitempty"`
	Command    string     `json:"command,omitempty"`
	Args       string     `json:"args,omitempty"`
	Point      *geo.Point `json:"point,omitempty"`
	File       *FileRef   `json:"file,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
}

func Text(text string) Event {
	return Event{Kind: EventText, Text: text, ReceivedAt: time.Now()}
}

func Command(name, args string) Event {
	return Event{Kind: EventCommand, Command: name, Args: args, ReceivedAt: time.Now()}
}

func Location(p geo.Point) Event {
	return Event{Kind: EventLocation, Point: &p, ReceivedAt: time.Now()}
}

func File(f FileRef) Event {
	return Event{Kind: EventFile, File: &f, ReceivedAt: time.Now()}
}

// Result is a typed outcome handed to the persistence collaborator.
type Result interface {
	ResultType() string
}

// Reply is what a workflow answers to an event. Err is set on corrective
// replies, in which case the step did not advance.
type Reply struct {
	Text     string   `json:"text"`
	Keyboard []string `json:"keyboard,omitempty"`
	Results  []Result `json:"-"`
	Err      error    `json:"-"`
}

// Corrective builds a reply for a rejected event.
func Corrective(err error, text string) Reply {
	return Reply{Text: text, Err: err}
}

func (r Reply) Rejected() bool {
	return r.Err != nil
}

// Workflow is implemented by every mode.
//
// Initialize is called once on mode entry and sets the initial step.
// HandleEvent never panics and never advances the step on a rejected event.
// Cleanup releases feature state and owned resources; it is a no-op when the
// user has no state.
type Workflow interface {
	Intro() string
	Initialize(userID string) Step
	HandleEvent(ctx context.Context, userID string, ev Event) (Reply, Step)
	Cleanup(userID string)
}

// Inspector is implemented by workflows that expose their current step.
type Inspector interface {
	Step(userID string) (Step, bool)
}
