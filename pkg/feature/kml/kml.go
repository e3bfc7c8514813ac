// Package kml implements the KML mode: users draw named lines point by point
// and export the finished lines as a KML document.
package kml

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
	StepIdle    workflow.Step = "IDLE"
	StepDrawing workflow.Step = "DRAWING"
)

const (
	CmdStart  = "start"
	CmdEnd    = "end"
	CmdCancel = "cancel"
	CmdExport = "export"
	CmdLines  = "lines"
	CmdStatus = "status"
)

const (
	evStart  = "start"
	evPoint  = "point"
	evEnd    = "end"
	evCancel = "cancel"
	evExport = "export"
)

const minLinePoints = 2

type Line struct {
	Name   string      `json:"name"`
	Points []geo.Point `json:"points"`
}

// Length returns the summed haversine length of the line in meters.
func (l Line) Length() float64 {
	total := 0.0
	for i := 1; i < len(l.Points); i++ {
		total += geo.Distance(l.Points[i-1], l.Points[i])
	}
	return total
}

type State struct {
	Step       workflow.Step
	ActiveLine *Line
	Lines      []Line
}

// Document is the exported KML file.
type Document struct {
	Name    string `json:"name"`
	Lines   int    `json:"lines"`
	Content string `json:"content"`
}

func (Document) ResultType() string { return "kml_document" }

type Workflow struct {
	states  *workflow.States[State]
	machine *workflow.Machine
}

func New(opts ...memory.Option) *Workflow {
	return &Workflow{
		states: workflow.NewStates[State](store.ModeKML, opts...),
		machine: workflow.NewMachine(StepIdle,
			workflow.Transition{Event: evStart, From: []workflow.Step{StepIdle}, To: StepDrawing},
			workflow.Transition{Event: evPoint, From: []workflow.Step{StepDrawing}, To: StepDrawing},
			workflow.Transition{Event: evEnd, From: []workflow.Step{StepDrawing}, To: StepIdle},
			workflow.Transition{Event: evCancel, From: []workflow.Step{StepDrawing}, To: StepIdle},
			workflow.Transition{Event: evExport, From: []workflow.Step{StepIdle}, To: StepIdle},
		),
	}
}

func (w *Workflow) Intro() string {
	return "KML mode. /start <name> begins a line, send locations to extend it, " +
		"/end finishes it, /export builds the KML file."
}

func (w *Workflow) Commands() []string {
	return []string{CmdStart, CmdEnd, CmdExport, CmdLines}
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

func (w *Workflow) State(userID string) (State, bool) {
	return w.states.Load(userID)
}

func (w *Workflow) HandleEvent(ctx context.Context, userID string, ev workflow.Event) (workflow.Reply, workflow.Step) {
	st, ok := w.states.Load(userID)
	if !ok {
		st = State{Step: w.machine.Initial()}
	}

	var reply workflow.Reply
	switch ev.Kind {
	case workflow.EventLocation, workflow.EventText:
		reply, st = w.handlePoint(ctx, st, ev)
	case workflow.EventCommand:
		reply, st = w.handleCommand(ctx, st, ev)
	default:
		reply = workflow.Corrective(workflow.Invalid("event", string(ev.Kind)), "KML mode accepts locations and commands only. "+w.prompt(st))
	}

	w.states.Save(userID, st)
	return reply, st.Step
}

func (w *Workflow) handlePoint(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	if st.Step == StepIdle {
		return workflow.Corrective(fmt.Errorf("%w: point at %s", workflow.ErrIllegalTransition, st.Step),
			"No line is being drawn. "+w.prompt(st)), st
	}
	p, err := workflow.PointFrom(ev)
	if err != nil {
		return workflow.Corrective(err, "That is not a valid coordinate. "+w.prompt(st)), st
	}
	next, err := w.machine.Fire(ctx, st.Step, evPoint)
	if err != nil {
		return workflow.Corrective(err, w.prompt(st)), st
	}

	line := cloneLine(*st.ActiveLine)
	line.Points = append(line.Points, p)
	st.ActiveLine = &line
	st.Step = next

	return workflow.Reply{
		Text: fmt.Sprintf("Point %d added to \"%s\": %s (length %s)",
			len(line.Points), line.Name, p.Label(), geo.FormatDistance(line.Length())),
		Keyboard: []string{"/end", "/cancel"},
	}, st
}

func (w *Workflow) handleCommand(ctx context.Context, st State, ev workflow.Event) (workflow.Reply, State) {
	cmd := ev.CommandName()
	switch cmd {
	case CmdStart:
		name := strings.TrimSpace(ev.Args)
		if name == "" {
			return workflow.Corrective(workflow.Invalid("name", "line name is required"), "Usage: /start <line name>"), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evStart)
		if err != nil {
			return workflow.Corrective(err, fmt.Sprintf("Line \"%s\" is still open. /end or /cancel it first.", st.ActiveLine.Name)), st
		}
		st.ActiveLine = &Line{Name: name}
		st.Step = next
		return workflow.Reply{Text: fmt.Sprintf("Drawing \"%s\". Send locations to add points.", name)}, st

	case CmdEnd:
		if st.Step != StepDrawing {
			return workflow.Corrective(fmt.Errorf("%w: end at %s", workflow.ErrIllegalTransition, st.Step), "No line is being drawn."), st
		}
		if len(st.ActiveLine.Points) < minLinePoints {
			return workflow.Corrective(workflow.Invalid("line", "needs at least two points"),
				fmt.Sprintf("A line needs at least %d points.", minLinePoints)), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evEnd)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		finished := *st.ActiveLine
		st.Lines = append(cloneLines(st.Lines), finished)
		st.ActiveLine = nil
		st.Step = next
		return workflow.Reply{
			Text: fmt.Sprintf("Line \"%s\" saved: %d points, %s. Finished lines: %d.",
				finished.Name, len(finished.Points), geo.FormatDistance(finished.Length()), len(st.Lines)),
			Keyboard: []string{"/export"},
		}, st

	case CmdCancel:
		if st.Step != StepDrawing {
			return workflow.Corrective(workflow.ErrNothingToCancel, "Nothing to cancel."), st
		}
		next, err := w.machine.Fire(ctx, st.Step, evCancel)
		if err != nil {
			return workflow.Corrective(err, w.prompt(st)), st
		}
		name := st.ActiveLine.Name
		st.ActiveLine = nil
		st.Step = next
		return workflow.Reply{Text: fmt.Sprintf("Line \"%s\" discarded.", name)}, st

	case CmdExport:
		next, err := w.machine.Fire(ctx, st.Step, evExport)
		if err != nil {
			return workflow.Corrective(err, "Finish the current line with /end before exporting."), st
		}
		if len(st.Lines) == 0 {
			return workflow.Corrective(workflow.Invalid("lines", "no finished lines"), "There are no finished lines to export."), st
		}
		name := strings.TrimSpace(ev.Args)
		if name == "" {
			name = "lines"
		}
		content, err := Encode(name, st.Lines)
		if err != nil {
			return workflow.Corrective(err, "Could not build the KML file."), st
		}
		doc := Document{Name: name + ".kml", Lines: len(st.Lines), Content: content}
		st = State{Step: next}
		return workflow.Reply{
			Text:    fmt.Sprintf("Exported %d line(s) to %s.", doc.Lines, doc.Name),
			Results: []workflow.Result{doc},
		}, st

	case CmdLines, CmdStatus:
		return workflow.Reply{Text: w.summary(st)}, st
	}

	return workflow.Corrective(workflow.Invalid("command", ev.Command),
		fmt.Sprintf("Unknown command /%s. %s", cmd, w.prompt(st))), st
}

func (w *Workflow) prompt(st State) string {
	if st.Step == StepDrawing {
		return fmt.Sprintf("Send a location to extend \"%s\", or /end.", st.ActiveLine.Name)
	}
	return "Use /start <name> to draw a line."
}

func (w *Workflow) summary(st State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Finished lines: %d", len(st.Lines))
	for _, l := range st.Lines {
		fmt.Fprintf(&b, "\n- %s: %d points, %s", l.Name, len(l.Points), geo.FormatDistance(l.Length()))
	}
	if st.ActiveLine != nil {
		fmt.Fprintf(&b, "\nDrawing: %s (%d points)", st.ActiveLine.Name, len(st.ActiveLine.Points))
	}
	return b.String()
}

// State values are shared with concurrent readers of the store, so slices are
// copied before they are appended to.
func cloneLine(l Line) Line {
	pts := make([]geo.Point, len(l.Points), len(l.Points)+1)
	copy(pts, l.Points)
	return Line{Name: l.Name, Points: pts}
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines), len(lines)+1)
	copy(out, lines)
	return out
}
