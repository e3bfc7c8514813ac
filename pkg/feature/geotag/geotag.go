// Package geotag implements the GEOTAGS mode: photos are paired with a
// location, either one by one or against a sticky location.
package geotag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"

	"github.com/araddon/dateparse"
)

const (
	StepAwaitingPhoto    workflow.Step = "AWAITING_PHOTO"
	StepAwaitingLocation workflow.Step = "AWAITING_LOCATION"
)

const (
	CmdSticky   = "sticky"
	CmdUnsticky = "unsticky"
	CmdTime     = "time"
	CmdCancel   = "cancel"
	CmdStatus   = "status"
)

const (
	evPhoto       = "photo"
	evStickyPhoto = "sticky_photo"
	evLocation    = "location"
	evCancel      = "cancel"
)

type State struct {
	Step       workflow.Step
	Photo      *workflow.FileRef
	Sticky     *geo.Point
	LastPoint  *geo.Point
	CapturedAt *time.Time
	Tagged     int
}

// GeoTag is one photo bound to a location.
type GeoTag struct {
	Photo      workflow.FileRef `json:"photo"`
	Point      geo.Point        `json:"point"`
	CapturedAt time.Time        `json:"captured_at"`
	Sticky     bool             `json:"sticky"`
}

func (GeoTag) ResultType() string { return "geotag" }

type Workflow struct {
	states   *workflow.States[State]
	machine  *workflow.Machine
	remover  workflow.FileRemover
	location *time.Location
	now      func() time.Time
}

func New(remover workflow.FileRemover, loc *time.Location, opts ...memory.Option) *Workflow {
	if loc == nil {
		loc = time.UTC
	}
	return &Workflow{
		states: workflow.NewStates[State](store.ModeGeotags, opts...),
		machine: workflow.NewMachine(StepAwaitingPhoto,
			workflow.Transition{Event: evPhoto, From: []workflow.Step{StepAwaitingPhoto}, To: StepAwaitingLocation},
			workflow.Transition{Event: evStickyPhoto, From: []workflow.Step{StepAwaitingPhoto}, To: StepAwaitingPhoto},
			workflow.Transition{Event: evLocation, From: []workflow.Step{StepAwaitingLocation}, To: StepAwaitingPhoto},
			workflow.Transition{Event: evCancel, From: []workflow.Step{StepAwaitingLocation}, To: StepAwaitingPhoto},
		),
		remover:  remover,
		location: loc,
		now:      time.Now,
	}
}

func (w *Workflow) Intro() string {
	return "Geotag mode. Send a photo, then its location. " +
		"/sticky <lat,lon> tags every following photo with one location, /unsticky stops it."
}

func (w *Workflow) Commands() []string {
	return []string{CmdSticky, CmdUnsticky, CmdTime}
}

func (w *Workflow) Initialize(userID string) workflow.Step {
	w.states.Save(userID, State{Step: w.machine.Initial()})
	return w.machine.Initial()
}

// Cleanup drops the state and deletes a photo still waiting for its location.
func (w *Workflow) Cleanup(userID string) {
	st, ok := w.states.Load(userID)
	if !ok {
		return
	}
	w.states.Delete(userID)
	if st.Photo != nil {
		workflow.RemoveFiles(w.remover, *st.Photo)
	}
}

func (w *Workflow) Step(userID string) (workflow.Step, bool) {
	st, ok := w.states.Load(userID)
	return st.Step, ok
}

func (w *Workflow) State(userID string) (State, bool) {
	return w.states.Load(userID)
}

func (w *Workflow) HandleEvent(ctx context.Context, userID string, ev workflow.Event) (workflow.Reply, workflow.Step) {
	st, ok := w.states.Load(userID)
	if !ok {
		st = State{Step: w.machine.Initial()}
	}

	var reply workflow.Reply
	switch {
	case ev.Kind == workflow.EventCommand:
		reply, st = w.handleCommand(ctx, st, ev)
	case ev.Kind == workflow.EventFile && st.Step == StepAwaitingPhoto:
		reply, st = w.handlePhoto(ctx, st, ev.File)
	case ev.Kind == workflow.EventFile:
		reply = workflow.Corrective(fmt.Errorf("%w: photo at %s", workflow.ErrIllegalTransition, st.Step),
			"Send the location for the previous photo first, or /cancel.")
	case (ev.Kind == workflow.EventLocation || ev.Kind == workflow.EventText) && st.Step == StepAwaitingLocation:
		reply, st = w.handleLocation(ctx, st, ev)
	case ev.Kind == workflow.EventLocation || ev.Kind == workflow.EventText:
		reply = workflow.Corrective(fmt.Errorf("%w: location at %s", workflow.ErrIllegalTransition, st.Step),
			"Send a photo first. Use /sticky <lat,lon> to reuse one location for many photos.")
	default:
		reply = workflow.Corrective(workflow.Invalid("event", string(ev.Kind)), w.prompt(st))
	}

	w.states.Save(userID, st)
	return reply, st.Step
}

func (w *Workflow) handlePhoto(ctx context.Context, st State, f *workflow.FileRef) (workflow.Reply, State) {
	if f == nil || !f.IsImage() {
		return workflow.Corrective(workflow.Invalid("photo", "file is not an image"), "Only photos can be geotagged."), st
	}

	if st.Sticky != nil {
		next, err := w.machine.Fire(ctx, st.Step, evStickyPhoto)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		tag := w.tag(st, *f, *st.Sticky, true)
		st = w.tagged(st, next, *st.Sticky)
		return w.tagReply(tag, st), st
	}

	next, err := w.machine.Fire(ctx, st.Step, evPhoto)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}
	photo := *f
	st.Photo = &photo
	st.Step = next
	return workflow.Reply{
		Text:     fmt.Sprintf("Photo %s received. Now send its location.", photo.Name),
		Keyboard: []string{"/cancel"},
	}, st
}

func (w *Workflow) handleLocation(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	p, err := workflow.PointFrom(ev)
	if err != nil {
		return workflow.Corrective(err, "That is not a valid coordinate. "+w.prompt(st)), st
	}
	return w.tagPending(ctx, st, p, false)
}

func (w *Workflow) tagPending(ctx context.Context, st State, p geo.Point, sticky bool) (workflow.Reply, State) {
	next, err := w.machine.Fire(ctx, st.Step, evLocation)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}
	tag := w.tag(st, *st.Photo, p, sticky)
	st = w.tagged(st, next, p)
	return w.tagReply(tag, st), st
}

func (w *Workflow) tag(st State, photo workflow.FileRef, p geo.Point, sticky bool) GeoTag {
	capturedAt := w.now().In(w.location)
	if st.CapturedAt != nil {
		capturedAt = *st.CapturedAt
	}
	return GeoTag{Photo: photo, Point: p, CapturedAt: capturedAt, Sticky: sticky}
}

// tagged moves st past a finished tag. The custom capture time applies to
// one photo only.
func (w *Workflow) tagged(st State, next workflow.Step, p geo.Point) State {
	return State{
		Step:      next,
		Sticky:    st.Sticky,
		LastPoint: &p,
		Tagged:    st.Tagged + 1,
	}
}

func (w *Workflow) tagReply(tag GeoTag, st State) workflow.Reply {
	return workflow.Reply{
		Text: fmt.Sprintf("Tagged %s at %s (%s). Photos tagged: %d.",
			tag.Photo.Name, tag.Point.Label(), tag.CapturedAt.Format("2006-01-02 15:04"), st.Tagged),
		Results: []workflow.Result{tag},
	}
}

func (w *Workflow) handleCommand(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	switch ev.CommandName() {
	case CmdSticky:
		return w.handleSticky(ctx, st, ev)

	case CmdUnsticky:
		if st.Sticky == nil {
			return workflow.Corrective(workflow.Invalid("sticky", "no sticky location set"), "Sticky location is not active."), st
		}
		st.LastPoint = st.Sticky
		st.Sticky = nil
		return workflow.Reply{Text: "Sticky location cleared. " + w.prompt(st)}, st

	case CmdTime:
		raw := strings.TrimSpace(ev.Args)
		if raw == "" {
			st.CapturedAt = nil
			return workflow.Reply{Text: "Capture time reset to the time of tagging."}, st
		}
		t, err := dateparse.ParseIn(raw, w.location)
		if err != nil {
			return workflow.Corrective(workflow.InvalidWrap("timestamp", err),
				"Could not read that time. Try something like 2024-03-01 14:30."), st
		}
		st.CapturedAt = &t
		return workflow.Reply{Text: fmt.Sprintf("The next photo will be tagged at %s.", t.Format("2006-01-02 15:04"))}, st

	case CmdCancel:
		if st.Step == StepAwaitingPhoto {
			return workflow.Corrective(workflow.ErrNothingToCancel, "Nothing to cancel. "+w.prompt(st)), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evCancel)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		workflow.RemoveFiles(w.remover, *st.Photo)
		st.Photo = nil
		st.Step = next
		return workflow.Reply{Text: "Photo discarded. " + w.prompt(st)}, st

	case CmdStatus:
		sticky := "off"
		if st.Sticky != nil {
			sticky = st.Sticky.Label()
		}
		return workflow.Reply{Text: fmt.Sprintf("Step: %s\nSticky location: %s\nPhotos tagged: %d", st.Step, sticky, st.Tagged)}, st
	}

	return workflow.Corrective(workflow.Invalid("command", ev.Command),
		fmt.Sprintf("Unknown command /%s. %s", ev.CommandName(), w.prompt(st))), st
}

// handleSticky pins a location. Without arguments the last sticky location is
// restored. A photo waiting for its location is tagged right away.
func (w *Workflow) handleSticky(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	var p geo.Point
	switch {
	case strings.TrimSpace(ev.Args) != "":
		parsed, err := geo.ParsePoint(ev.Args)
		if err != nil {
			return workflow.Corrective(workflow.InvalidWrap("coordinate", err), "Usage: /sticky <lat,lon>"), st
		}
		p = parsed
	case ev.Point != nil:
		p = *ev.Point
	case st.LastPoint != nil:
		p = *st.LastPoint
	default:
		return workflow.Corrective(workflow.Invalid("coordinate", "no location given"), "Usage: /sticky <lat,lon>"), st
	}

	st.Sticky = &p
	st.LastPoint = &p
	if st.Step == StepAwaitingLocation {
		return w.tagPending(ctx, st, p, true)
	}
	return workflow.Reply{
		Text:     fmt.Sprintf("Sticky location set to %s. Every photo is tagged there until /unsticky.", p.Label()),
		Keyboard: []string{"/unsticky"},
	}, st
}

func (w *Workflow) prompt(st State) string {
	if st.Step == StepAwaitingLocation {
		return "Send the location of the photo."
	}
	return "Send a photo."
}
