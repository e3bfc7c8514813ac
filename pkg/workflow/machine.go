package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// Transition is one row of a transition table.
type Transition struct {
	Event string
	From  []Step
	To    Step
}

// Machine is a declarative transition table. It holds no per-user state: the
// current step lives in the feature state and is passed in on every call.
type Machine struct {
	initial Step
	events  fsm.Events
}

func NewMachine(initial Step, transitions ...Transition) *Machine {
	events := make(fsm.Events, 0, len(transitions))
	for _, t := range transitions {
		src := make([]string, len(t.From))
		for i, s := range t.From {
			src[i] = string(s)
		}
		events = append(events, fsm.EventDesc{Name: t.Event, Src: src, Dst: string(t.To)})
	}
	return &Machine{initial: initial, events: events}
}

func (m *Machine) Initial() Step {
	return m.initial
}

func (m *Machine) at(step Step) *fsm.FSM {
	if step == "" {
		step = m.initial
	}
	return fsm.NewFSM(string(step), m.events, nil)
}

// Can reports whether event is defined for step.
func (m *Machine) Can(step Step, event string) bool {
	return m.at(step).Can(event)
}

// Fire applies event at step and returns the destination. Self-transitions are
// legal. Undefined pairs return ErrIllegalTransition and the original step.
func (m *Machine) Fire(ctx context.Context, step Step, event string) (Step, error) {
	f := m.at(step)
	err := f.Event(ctx, event)
	if err == nil {
		return Step(f.Current()), nil
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return Step(f.Current()), nil
	}
	return Step(f.Current()), fmt.Errorf("%w: %s at %s", ErrIllegalTransition, event, step)
}
