package workflow

import (
	"context"
	"errors"
	"testing"

	"geoassist-be/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stepIdle    Step = "IDLE"
	stepRunning Step = "RUNNING"
	stepDone    Step = "DONE"
)

func testMachine() *Machine {
	return NewMachine(stepIdle,
		Transition{Event: "start", From: []Step{stepIdle}, To: stepRunning},
		Transition{Event: "tick", From: []Step{stepRunning}, To: stepRunning},
		Transition{Event: "finish", From: []Step{stepRunning}, To: stepDone},
		Transition{Event: "reset", From: []Step{stepRunning, stepDone}, To: stepIdle},
	)
}

func TestMachineFire(t *testing.T) {
	m := testMachine()
	ctx := context.Background()

	next, err := m.Fire(ctx, stepIdle, "start")
	require.NoError(t, err)
	assert.Equal(t, stepRunning, next)

	next, err = m.Fire(ctx, stepRunning, "tick")
	require.NoError(t, err, "self-transition is legal")
	assert.Equal(t, stepRunning, next)

	next, err = m.Fire(ctx, stepRunning, "finish")
	require.NoError(t, err)
	assert.Equal(t, stepDone, next)

	next, err = m.Fire(ctx, stepDone, "reset")
	require.NoError(t, err)
	assert.Equal(t, stepIdle, next)
}

func TestMachineRejectsUndefinedPairs(t *testing.T) {
	m := testMachine()
	ctx := context.Background()

	next, err := m.Fire(ctx, stepIdle, "finish")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, stepIdle, next)

	next, err = m.Fire(ctx, stepRunning, "launch")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, stepRunning, next)
}

func TestMachineEmptyStepIsInitial(t *testing.T) {
	m := testMachine()
	assert.True(t, m.Can("", "start"))
	assert.False(t, m.Can(stepIdle, "reset"))
	assert.Equal(t, stepIdle, m.Initial())
}

type stubGeocoder struct {
	addr string
	err  error
}

func (s stubGeocoder) ReverseGeocode(context.Context, geo.Point) (string, error) {
	return s.addr, s.err
}

func TestResolveAddress(t *testing.T) {
	ctx := context.Background()
	p := geo.NewPoint(-7.257056, 112.648)

	got, err := ResolveAddress(ctx, stubGeocoder{addr: "Surabaya"}, p)
	require.NoError(t, err)
	assert.Equal(t, "Surabaya", got.Address)

	got, err = ResolveAddress(ctx, stubGeocoder{err: errors.New("timeout")}, p)
	var collab *CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "geocoder", collab.Collaborator)
	assert.Equal(t, "-7.257056, 112.648000", got.Address)

	got, err = ResolveAddress(ctx, nil, p)
	require.NoError(t, err)
	assert.Equal(t, p.String(), got.Address)

	p.Address = "known"
	got, _ = ResolveAddress(ctx, stubGeocoder{addr: "other"}, p)
	assert.Equal(t, "known", got.Address)
}

func TestInvalidInputError(t *testing.T) {
	err := InvalidWrap("coordinate", geo.ErrOutOfRange)
	assert.ErrorIs(t, err, geo.ErrOutOfRange)
	assert.Contains(t, err.Error(), "invalid coordinate")

	assert.Equal(t, "invalid input: empty", Invalid("", "empty").Error())
}
