// Package workbook implements the WORKBOOK mode: a location followed by a
// label is recorded as one workbook row.
package workbook

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
	StepAwaitingPoint workflow.Step = "AWAITING_POINT"
	StepAwaitingLabel workflow.Step = "AWAITING_LABEL"
)

const (
	CmdCancel = "cancel"
	CmdStatus = "status"
)

const (
	evPoint  = "point"
	evLabel  = "label"
	evCancel = "cancel"
)

// timestampSeparator splits "label @ timestamp".
const timestampSeparator = "@"

type State struct {
	Step     workflow.Step
	Point    *geo.Point
	Recorded int
}

// Entry is one recorded workbook row.
type Entry struct {
	Label      string    `json:"label"`
	Point      geo.Point `json:"point"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (Entry) ResultType() string { return "workbook_entry" }

type Workflow struct {
	states   *workflow.States[State]
	machine  *workflow.Machine
	location *time.Location
	now      func() time.Time
}

func New(loc *time.Location, opts ...memory.Option) *Workflow {
	if loc == nil {
		loc = time.UTC
	}
	return &Workflow{
		states: workflow.NewStates[State](store.ModeWorkbook, opts...),
		machine: workflow.NewMachine(StepAwaitingPoint,
			workflow.Transition{Event: evPoint, From: []workflow.Step{StepAwaitingPoint}, To: StepAwaitingLabel},
			workflow.Transition{Event: evLabel, From: []workflow.Step{StepAwaitingLabel}, To: StepAwaitingPoint},
			workflow.Transition{Event: evCancel, From: []workflow.Step{StepAwaitingLabel}, To: StepAwaitingPoint},
		),
		location: loc,
		now:      time.Now,
	}
}

func (w *Workflow) Intro() string {
	return "Workbook mode. Send a location, then a label for it. " +
		"Append \"@ 2024-03-01 14:30\" to the label to record a custom time."
}

func (w *Workflow) Initialize(userID string) workflow.Step {
	w.states.Save(userID, State{Step: w.machine.Initial()})
	return w.machine.Initial()
}

func (w *Workflow) Cleanup(userID string) {
	w.states.Delete(userID)
}

func (w *Workflow) Step(userID string) (workflow.Step, bool) {
	st, ok := w.states.Load(userID)
	return st.Step, ok
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
	case st.Step == StepAwaitingPoint && (ev.Kind == workflow.EventLocation || ev.Kind == workflow.EventText):
		reply, st = w.handlePoint(ctx, st, ev)
	case st.Step == StepAwaitingLabel && ev.Kind == workflow.EventText && ev.Point == nil:
		reply, st = w.handleLabel(ctx, st, ev.Text)
	case st.Step == StepAwaitingLabel && ev.Kind == workflow.EventLocation:
		reply = workflow.Corrective(workflow.Invalid("label", "expected text"),
			"Send a label for the previous location first, or /cancel.")
	default:
		reply = workflow.Corrective(workflow.Invalid("event", string(ev.Kind)), w.prompt(st))
	}

	w.states.Save(userID, st)
	return reply, st.Step
}

func (w *Workflow) handlePoint(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	p, err := workflow.PointFrom(ev)
	if err != nil {
		return workflow.Corrective(err, "That is not a valid coordinate. "+w.prompt(st)), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evPoint)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}
	st.Point = &p
	st.Step = next
	return workflow.Reply{
		Text:     fmt.Sprintf("Location received: %s\nNow send a label.", p.Label()),
		Keyboard: []string{"/cancel"},
	}, st
}

func (w *Workflow) handleLabel(ctx context.Context, st State, text string) (workflow.Reply, State) {
	label, recordedAt, err := w.parseLabel(text)
	if err != nil {
		return workflow.Corrective(err, fmt.Sprintf("%s. %s", err.Error(), w.prompt(st))), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evLabel)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}

	entry := Entry{Label: label, Point: *st.Point, RecordedAt: recordedAt}
	st = State{Step: next, Recorded: st.Recorded + 1}

	return workflow.Reply{
		Text: fmt.Sprintf("Saved \"%s\" at %s (%s). Rows this session: %d.\nSend the next location.",
			entry.Label, entry.Point.Label(), entry.RecordedAt.Format("2006-01-02 15:04"), st.Recorded),
		Results: []workflow.Result{entry},
	}, st
}

// parseLabel splits an optional custom timestamp off the label.
func (w *Workflow) parseLabel(text string) (string, time.Time, error) {
	label := strings.TrimSpace(text)
	recordedAt := w.now().In(w.location)

	if i := strings.LastIndex(label, timestampSeparator); i >= 0 {
		raw := strings.TrimSpace(label[i+1:])
		label = strings.TrimSpace(label[:i])
		t, err := dateparse.ParseIn(raw, w.location)
		if err != nil {
			return "", time.Time{}, workflow.InvalidWrap("timestamp", err)
		}
		recordedAt = t
	}
	if label == "" {
		return "", time.Time{}, workflow.Invalid("label", "label is empty")
	}
	return label, recordedAt, nil
}

func (w *Workflow) handleCommand(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	switch ev.CommandName() {
	case CmdCancel:
		if st.Step == StepAwaitingPoint {
			return workflow.Corrective(workflow.ErrNothingToCancel, "Nothing to cancel. "+w.prompt(st)), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evCancel)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		st.Step = next
		st.Point = nil
		return workflow.Reply{Text: "Location discarded. " + w.prompt(st)}, st
	case CmdStatus:
		return workflow.Reply{Text: fmt.Sprintf("Step: %s\nRows this session: %d", st.Step, st.Recorded)}, st
	}
	return workflow.Corrective(workflow.Invalid("command", ev.Command),
		fmt.Sprintf("Unknown command /%s. %s", ev.CommandName(), w.prompt(st))), st
}

func (w *Workflow) prompt(st State) string {
	if st.Step == StepAwaitingLabel {
		return "Send a label for the location."
	}
	return "Send a location."
}
