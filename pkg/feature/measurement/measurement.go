// Package measurement implements the two-point distance and travel-time
// workflow of the LOCATION mode.
package measurement

import (
	"context"
	"fmt"
	"strings"

	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"
)

const (
	StepAwaitingFirstPoint  workflow.Step = "AWAITING_FIRST_POINT"
	StepAwaitingSecondPoint workflow.Step = "AWAITING_SECOND_POINT"
	StepComplete            workflow.Step = "COMPLETE"
)

const (
	CmdCancel  = "cancel"
	CmdProfile = "profile"
	CmdStatus  = "status"
)

// Machine events. profile and status never change the step and are handled
// outside the table.
const (
	evPoint  = "point"
	evReset  = "reset"
	evCancel = "cancel"
)

// State is the per-user measurement session.
type State struct {
	Step        workflow.Step
	FirstPoint  *geo.Point
	SecondPoint *geo.Point
	Profile     geo.TravelProfile
}

// Measurement is the persisted outcome of a completed measurement.
type Measurement struct {
	From            geo.Point         `json:"from"`
	To              geo.Point         `json:"to"`
	Profile         geo.TravelProfile `json:"profile"`
	DistanceMeters  float64           `json:"distance_meters"`
	DurationSeconds float64           `json:"duration_seconds"`
	DistanceText    string            `json:"distance_text"`
	DurationText    string            `json:"duration_text"`
}

func (Measurement) ResultType() string { return "measurement" }

type Workflow struct {
	states         *workflow.States[State]
	machine        *workflow.Machine
	defaultProfile geo.TravelProfile
}

func New(defaultProfile geo.TravelProfile, opts ...memory.Option) *Workflow {
	if !defaultProfile.Valid() {
		defaultProfile = geo.ProfileCar
	}
	return &Workflow{
		states: workflow.NewStates[State](store.ModeLocation, opts...),
		machine: workflow.NewMachine(StepAwaitingFirstPoint,
			workflow.Transition{Event: evPoint, From: []workflow.Step{StepAwaitingFirstPoint}, To: StepAwaitingSecondPoint},
			workflow.Transition{Event: evPoint, From: []workflow.Step{StepAwaitingSecondPoint}, To: StepComplete},
			workflow.Transition{Event: evReset, From: []workflow.Step{StepComplete}, To: StepAwaitingFirstPoint},
			workflow.Transition{Event: evCancel, From: []workflow.Step{StepAwaitingSecondPoint}, To: StepAwaitingFirstPoint},
		),
		defaultProfile: defaultProfile,
	}
}

func (w *Workflow) Intro() string {
	return fmt.Sprintf("Location mode. Send the first point (share a location or type \"lat, lon\"). "+
		"Travel profile: %s. Change it with /profile foot|motorcycle|car.", w.defaultProfile.Label())
}

func (w *Workflow) Commands() []string {
	return []string{CmdProfile}
}

func (w *Workflow) Initialize(userID string) workflow.Step {
	st := w.initial(w.defaultProfile)
	w.states.Save(userID, st)
	return st.Step
}

func (w *Workflow) Cleanup(userID string) {
	w.states.Delete(userID)
}

func (w *Workflow) Step(userID string) (workflow.Step, bool) {
	st, ok := w.states.Load(userID)
	return st.Step, ok
}

// State returns a copy of the user's measurement state.
func (w *Workflow) State(userID string) (State, bool) {
	return w.states.Load(userID)
}

func (w *Workflow) HandleEvent(ctx context.Context, userID string, ev workflow.Event) (workflow.Reply, workflow.Step) {
	st, ok := w.states.Load(userID)
	if !ok {
		st = w.initial(w.defaultProfile)
	}

	var reply workflow.Reply
	switch ev.Kind {
	case workflow.EventLocation, workflow.EventText:
		reply, st = w.handlePoint(ctx, st, ev)
	case workflow.EventCommand:
		reply, st = w.handleCommand(ctx, st, ev)
	default:
		reply = workflow.Corrective(workflow.Invalid("event", "files are not accepted here"),
			"Location mode expects locations. "+w.prompt(st))
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

	if st.Step == StepAwaitingFirstPoint {
		st.FirstPoint = &p
		st.SecondPoint = nil
		st.Step = next
		return workflow.Reply{
			Text:     fmt.Sprintf("Point 1 received: %s\nNow send the second point.", p.Label()),
			Keyboard: []string{"/cancel"},
		}, st
	}

	st.SecondPoint = &p
	st.Step = next
	est := geo.Measure(*st.FirstPoint, p, st.Profile)
	result := Measurement{
		From:            est.From,
		To:              est.To,
		Profile:         est.Profile,
		DistanceMeters:  est.Meters,
		DurationSeconds: est.Duration.Seconds(),
		DistanceText:    geo.FormatDistance(est.Meters),
		DurationText:    geo.FormatDuration(est.Duration),
	}

	reset, err := w.machine.Fire(ctx, st.Step, evReset)
	if err != nil {
		reset = w.machine.Initial()
	}
	st = State{Step: reset, Profile: st.Profile}

	return workflow.Reply{
		Text: fmt.Sprintf("Point 2 received: %s\n\nFrom: %s\nTo: %s\nDistance: %s\nEstimated time %s: %s\n\nSend a new first point to measure again.",
			p.Label(), result.From.Label(), result.To.Label(), result.DistanceText, result.Profile.Label(), result.DurationText),
		Results: []workflow.Result{result},
	}, st
}

func (w *Workflow) handleCommand(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	switch ev.CommandName() {
	case CmdCancel:
		if st.Step == StepAwaitingFirstPoint {
			return workflow.Corrective(workflow.ErrNothingToCancel, "Nothing to cancel. "+w.prompt(st)), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evCancel)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		st = State{Step: next, Profile: st.Profile}
		return workflow.Reply{Text: "Measurement cancelled. " + w.prompt(st)}, st

	case CmdProfile:
		profile, err := geo.ParseProfile(ev.Args)
		if err != nil {
			return workflow.Corrective(workflow.InvalidWrap("profile", err),
				"Unknown travel profile. Choose foot, motorcycle or car."), st
		}
		st.Profile = profile
		return workflow.Reply{Text: fmt.Sprintf("Travel profile set to %s. %s", profile.Label(), w.prompt(st))}, st

	case CmdStatus:
		return workflow.Reply{Text: w.status(st)}, st
	}

	return workflow.Corrective(workflow.Invalid("command", ev.Command),
		fmt.Sprintf("Unknown command /%s. %s", ev.CommandName(), w.prompt(st))), st
}

func (w *Workflow) initial(profile geo.TravelProfile) State {
	return State{Step: w.machine.Initial(), Profile: profile}
}

func (w *Workflow) prompt(st State) string {
	if st.Step == StepAwaitingSecondPoint {
		return "Send the second point."
	}
	return "Send the first point."
}

func (w *Workflow) status(st State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step: %s\nProfile: %s", st.Step, st.Profile.Label())
	if st.FirstPoint != nil {
		fmt.Fprintf(&b, "\nPoint 1: %s", st.FirstPoint.Label())
	}
	return b.String()
}
