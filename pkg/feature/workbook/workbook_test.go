package workbook

import (
	"context"
	"testing"
	"time"

	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "u-7"

func newWorkflow(t *testing.T) *Workflow {
	t.Helper()
	w := New(time.UTC)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	w.Initialize(user)
	return w
}

func TestWorkbookRecordsEntry(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.Location(geo.NewPoint(-6.2, 106.8)))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingLabel, step)

	reply, step = w.HandleEvent(ctx, user, workflow.Text("Warehouse A"))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPoint, step)
	require.Len(t, reply.Results, 1)

	entry := reply.Results[0].(Entry)
	assert.Equal(t, "Warehouse A", entry.Label)
	assert.Equal(t, geo.NewPoint(-6.2, 106.8), entry.Point)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), entry.RecordedAt)
}

func TestWorkbookCustomTimestamp(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	w.HandleEvent(ctx, user, workflow.Location(geo.NewPoint(1, 1)))
	reply, _ := w.HandleEvent(ctx, user, workflow.Text("Gate @ 2024-02-10 14:30"))
	require.False(t, reply.Rejected())

	entry := reply.Results[0].(Entry)
	assert.Equal(t, "Gate", entry.Label)
	assert.Equal(t, time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC), entry.RecordedAt)
}

func TestWorkbookRejectsUnparseableTimestamp(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	w.HandleEvent(ctx, user, workflow.Location(geo.NewPoint(1, 1)))
	reply, step := w.HandleEvent(ctx, user, workflow.Text("Gate @ sometime soon"))

	var invalid *workflow.InvalidInputError
	require.ErrorAs(t, reply.Err, &invalid)
	assert.Equal(t, "timestamp", invalid.Field)
	assert.Equal(t, StepAwaitingLabel, step)

	reply, step = w.HandleEvent(ctx, user, workflow.Text("   "))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingLabel, step)
}

func TestWorkbookTransitionTableIsTotal(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.File(workflow.FileRef{Name: "x.pdf"}))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPoint, step)

	reply, step = w.HandleEvent(ctx, user, workflow.Text("not a point"))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPoint, step)

	w.HandleEvent(ctx, user, workflow.Location(geo.NewPoint(1, 1)))
	reply, step = w.HandleEvent(ctx, user, workflow.Location(geo.NewPoint(2, 2)))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingLabel, step)

	reply, step = w.HandleEvent(ctx, user, workflow.File(workflow.FileRef{Name: "x.pdf"}))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingLabel, step)
}

func TestWorkbookCancel(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, _ := w.HandleEvent(ctx, user, workflow.Command("cancel", ""))
	assert.ErrorIs(t, reply.Err, workflow.ErrNothingToCancel)

	w.HandleEvent(ctx, user, workflow.Location(geo.NewPoint(1, 1)))
	reply, step := w.HandleEvent(ctx, user, workflow.Command("cancel", ""))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPoint, step)
}
