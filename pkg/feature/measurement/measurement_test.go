package measurement

import (
	"context"
	"errors"
	"testing"

	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "user-1"

var (
	surabaya = geo.Point{Latitude: -7.257056, Longitude: 112.648000, Address: "Surabaya"}
	sidoarjo = geo.Point{Latitude: -7.6382862, Longitude: 112.7372882, Address: "Sidoarjo"}
)

func newWorkflow(t *testing.T) *Workflow {
	t.Helper()
	w := New(geo.ProfileCar)
	require.Equal(t, StepAwaitingFirstPoint, w.Initialize(user))
	return w
}

func TestMeasurementHappyPath(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.Location(surabaya))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingSecondPoint, step)
	assert.Contains(t, reply.Text, "Surabaya")

	reply, step = w.HandleEvent(ctx, user, workflow.Location(sidoarjo))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingFirstPoint, step, "workflow resets after a result")
	require.Len(t, reply.Results, 1)

	m, ok := reply.Results[0].(Measurement)
	require.True(t, ok)
	assert.InDelta(t, 43518.98, m.DistanceMeters, 1)
	assert.InDelta(t, 3133.37, m.DurationSeconds, 0.1)
	assert.Equal(t, geo.ProfileCar, m.Profile)
	assert.Equal(t, "43.52 km", m.DistanceText)
	assert.Equal(t, "52 min", m.DurationText)
	assert.Contains(t, reply.Text, "43.52 km")

	st, ok := w.State(user)
	require.True(t, ok)
	assert.Nil(t, st.FirstPoint)
	assert.Nil(t, st.SecondPoint)
	assert.Equal(t, geo.ProfileCar, st.Profile)
}

func TestMeasurementSamePointTwice(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	w.HandleEvent(ctx, user, workflow.Location(surabaya))
	reply, _ := w.HandleEvent(ctx, user, workflow.Location(surabaya))

	require.Len(t, reply.Results, 1)
	m := reply.Results[0].(Measurement)
	assert.Equal(t, 0.0, m.DistanceMeters)
	assert.Equal(t, 0.0, m.DurationSeconds)
	assert.Equal(t, "0 m", m.DistanceText)
}

func TestMeasurementAcceptsTextCoordinates(t *testing.T) {
	w := newWorkflow(t)
	reply, step := w.HandleEvent(context.Background(), user, workflow.Text("-7.257056, 112.648"))

	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingSecondPoint, step)
	assert.Contains(t, reply.Text, "-7.257056, 112.648000", "coordinates stand in for the address")
}

func TestMeasurementRejectsInvalidInputWithoutAdvancing(t *testing.T) {
	ctx := context.Background()
	bad := []workflow.Event{
		workflow.Text("somewhere nice"),
		workflow.Text("123, 456"),
		workflow.Location(geo.NewPoint(95, 10)),
		workflow.File(workflow.FileRef{Name: "photo.jpg"}),
	}

	for _, step := range []workflow.Step{StepAwaitingFirstPoint, StepAwaitingSecondPoint} {
		w := newWorkflow(t)
		if step == StepAwaitingSecondPoint {
			w.HandleEvent(ctx, user, workflow.Location(surabaya))
		}
		before, _ := w.State(user)

		for _, ev := range bad {
			reply, got := w.HandleEvent(ctx, user, ev)
			assert.True(t, reply.Rejected(), "event %+v", ev)
			var invalid *workflow.InvalidInputError
			assert.True(t, errors.As(reply.Err, &invalid))
			assert.Equal(t, step, got)
		}

		after, _ := w.State(user)
		assert.Equal(t, before, after, "rejections are idempotent")
	}
}

func TestMeasurementCancel(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.Command("cancel", ""))
	assert.ErrorIs(t, reply.Err, workflow.ErrNothingToCancel)
	assert.Contains(t, reply.Text, "Nothing to cancel")
	assert.Equal(t, StepAwaitingFirstPoint, step)

	w.HandleEvent(ctx, user, workflow.Location(surabaya))
	reply, step = w.HandleEvent(ctx, user, workflow.Command("/cancel", ""))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingFirstPoint, step)

	st, _ := w.State(user)
	assert.Nil(t, st.FirstPoint, "cancel discards the first point")
}

func TestMeasurementProfile(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	w.HandleEvent(ctx, user, workflow.Location(surabaya))
	reply, step := w.HandleEvent(ctx, user, workflow.Command("profile", "foot"))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingSecondPoint, step, "profile change keeps the step")

	reply, _ = w.HandleEvent(ctx, user, workflow.Location(sidoarjo))
	m := reply.Results[0].(Measurement)
	assert.Equal(t, geo.ProfileFoot, m.Profile)
	assert.Equal(t, "8 h 42 min", m.DurationText)

	reply, _ = w.HandleEvent(ctx, user, workflow.Command("profile", "teleport"))
	assert.True(t, reply.Rejected())
}

func TestMeasurementUnknownCommand(t *testing.T) {
	w := newWorkflow(t)
	reply, step := w.HandleEvent(context.Background(), user, workflow.Command("dance", ""))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingFirstPoint, step)
}

func TestMeasurementCleanup(t *testing.T) {
	w := newWorkflow(t)
	w.Cleanup(user)
	_, ok := w.Step(user)
	assert.False(t, ok)

	// no state: still a no-op
	w.Cleanup(user)
	w.Cleanup("never-seen")
}
