package kml

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "user-1"

var (
	p1 = geo.Point{Latitude: -7.257056, Longitude: 112.648000}
	p2 = geo.Point{Latitude: -7.3, Longitude: 112.7}
	p3 = geo.Point{Latitude: -7.6382862, Longitude: 112.7372882}
)

func newWorkflow(t *testing.T) *Workflow {
	t.Helper()
	w := New()
	require.Equal(t, StepIdle, w.Initialize(user))
	return w
}

func drawLine(t *testing.T, w *Workflow, name string, points ...geo.Point) {
	t.Helper()
	ctx := context.Background()
	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdStart, name))
	require.False(t, reply.Rejected(), reply.Text)
	require.Equal(t, StepDrawing, step)
	for _, p := range points {
		reply, step = w.HandleEvent(ctx, user, workflow.Location(p))
		require.False(t, reply.Rejected(), reply.Text)
		require.Equal(t, StepDrawing, step)
	}
	reply, step = w.HandleEvent(ctx, user, workflow.Command(CmdEnd, ""))
	require.False(t, reply.Rejected(), reply.Text)
	require.Equal(t, StepIdle, step)
}

func TestKMLDrawAndExport(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	drawLine(t, w, "road", p1, p2, p3)
	drawLine(t, w, "river", p3, p1)

	st, ok := w.State(user)
	require.True(t, ok)
	require.Len(t, st.Lines, 2)
	assert.Len(t, st.Lines[0].Points, 3)
	assert.Nil(t, st.ActiveLine)

	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdExport, "survey"))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepIdle, step)
	require.Len(t, reply.Results, 1)

	doc, ok := reply.Results[0].(Document)
	require.True(t, ok)
	assert.Equal(t, "survey.kml", doc.Name)
	assert.Equal(t, 2, doc.Lines)
	assert.Contains(t, doc.Content, "112.648000,-7.257056,0")

	var parsed kmlRoot
	require.NoError(t, xml.Unmarshal([]byte(doc.Content), &parsed))
	require.Len(t, parsed.Document.Placemarks, 2)
	assert.Equal(t, "road", parsed.Document.Placemarks[0].Name)

	st, _ = w.State(user)
	assert.Empty(t, st.Lines, "export clears finished lines")
}

func TestKMLPointWhileIdleRejected(t *testing.T) {
	w := newWorkflow(t)

	reply, step := w.HandleEvent(context.Background(), user, workflow.Location(p1))
	assert.True(t, reply.Rejected())
	assert.True(t, errors.Is(reply.Err, workflow.ErrIllegalTransition))
	assert.Equal(t, StepIdle, step)
}

func TestKMLEndNeedsTwoPoints(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	w.HandleEvent(ctx, user, workflow.Command(CmdStart, "short"))
	w.HandleEvent(ctx, user, workflow.Location(p1))

	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdEnd, ""))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepDrawing, step)

	var invalid *workflow.InvalidInputError
	assert.True(t, errors.As(reply.Err, &invalid))
}

func TestKMLStartWhileDrawingRejected(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	w.HandleEvent(ctx, user, workflow.Command(CmdStart, "first"))
	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdStart, "second"))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepDrawing, step)

	st, _ := w.State(user)
	assert.Equal(t, "first", st.ActiveLine.Name)
}

func TestKMLCancel(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, _ := w.HandleEvent(ctx, user, workflow.Command(CmdCancel, ""))
	assert.True(t, errors.Is(reply.Err, workflow.ErrNothingToCancel))

	w.HandleEvent(ctx, user, workflow.Command(CmdStart, "draft"))
	w.HandleEvent(ctx, user, workflow.Location(p1))
	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdCancel, ""))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepIdle, step)

	st, _ := w.State(user)
	assert.Nil(t, st.ActiveLine)
	assert.Empty(t, st.Lines)
}

func TestKMLExportRules(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	reply, _ := w.HandleEvent(ctx, user, workflow.Command(CmdExport, ""))
	assert.True(t, reply.Rejected(), "nothing to export")

	w.HandleEvent(ctx, user, workflow.Command(CmdStart, "open"))
	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdExport, ""))
	assert.True(t, reply.Rejected(), "export while drawing")
	assert.Equal(t, StepDrawing, step)
}

func TestKMLInvalidCoordinateKeepsStep(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	w.HandleEvent(ctx, user, workflow.Command(CmdStart, "line"))

	reply, step := w.HandleEvent(ctx, user, workflow.Text("north of here"))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepDrawing, step)

	reply, _ = w.HandleEvent(ctx, user, workflow.File(workflow.FileRef{Name: "a.jpg"}))
	assert.True(t, reply.Rejected())
}

func TestLineLength(t *testing.T) {
	l := Line{Points: []geo.Point{p1, p3}}
	assert.InDelta(t, 43518.98, l.Length(), 1)
	assert.Zero(t, Line{Points: []geo.Point{p1}}.Length())
}

func TestKMLCleanup(t *testing.T) {
	w := newWorkflow(t)
	w.Cleanup(user)
	_, ok := w.State(user)
	assert.False(t, ok)
	w.Cleanup(user)
}
