package geotag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "user-1"

var (
	site   = geo.Point{Latitude: -7.257056, Longitude: 112.648000, Address: "Site A"}
	photo1 = workflow.FileRef{ID: "f1", Name: "one.jpg", Path: "/tmp/one.jpg", MimeType: "image/jpeg"}
	photo2 = workflow.FileRef{ID: "f2", Name: "two.png", Path: "/tmp/two.png"}
)

type fakeRemover struct {
	mu      sync.Mutex
	removed []workflow.FileRef
}

func (r *fakeRemover) Remove(files ...workflow.FileRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, files...)
	return nil
}

func newWorkflow(t *testing.T) (*Workflow, *fakeRemover) {
	t.Helper()
	r := &fakeRemover{}
	w := New(r, time.UTC)
	w.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	require.Equal(t, StepAwaitingPhoto, w.Initialize(user))
	return w, r
}

func TestGeotagPhotoThenLocation(t *testing.T) {
	w, _ := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.File(photo1))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingLocation, step)

	reply, step = w.HandleEvent(ctx, user, workflow.Location(site))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPhoto, step)
	require.Len(t, reply.Results, 1)

	tag := reply.Results[0].(GeoTag)
	assert.Equal(t, photo1, tag.Photo)
	assert.Equal(t, site, tag.Point)
	assert.False(t, tag.Sticky)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), tag.CapturedAt)

	st, _ := w.State(user)
	assert.Nil(t, st.Photo)
	assert.Equal(t, 1, st.Tagged)
}

func TestGeotagStickyLocation(t *testing.T) {
	w, _ := newWorkflow(t)
	ctx := context.Background()

	reply, _ := w.HandleEvent(ctx, user, workflow.Command(CmdSticky, "-7.25, 112.64"))
	require.False(t, reply.Rejected(), reply.Text)

	for _, p := range []workflow.FileRef{photo1, photo2} {
		reply, step := w.HandleEvent(ctx, user, workflow.File(p))
		require.False(t, reply.Rejected())
		assert.Equal(t, StepAwaitingPhoto, step, "sticky photos are tagged immediately")
		require.Len(t, reply.Results, 1)
		tag := reply.Results[0].(GeoTag)
		assert.True(t, tag.Sticky)
		assert.InDelta(t, -7.25, tag.Point.Latitude, 1e-9)
	}

	reply, _ = w.HandleEvent(ctx, user, workflow.Command(CmdUnsticky, ""))
	require.False(t, reply.Rejected())

	_, step := w.HandleEvent(ctx, user, workflow.File(photo1))
	assert.Equal(t, StepAwaitingLocation, step)

	// sticky without arguments restores the previous location and tags the pending photo
	reply, step = w.HandleEvent(ctx, user, workflow.Command(CmdSticky, ""))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPhoto, step)
	require.Len(t, reply.Results, 1)
}

func TestGeotagUnstickyWithoutSticky(t *testing.T) {
	w, _ := newWorkflow(t)
	reply, _ := w.HandleEvent(context.Background(), user, workflow.Command(CmdUnsticky, ""))
	assert.True(t, reply.Rejected())
}

func TestGeotagCustomTimeAppliesOnce(t *testing.T) {
	w, _ := newWorkflow(t)
	ctx := context.Background()

	reply, _ := w.HandleEvent(ctx, user, workflow.Command(CmdTime, "2024-02-10 14:30"))
	require.False(t, reply.Rejected())

	w.HandleEvent(ctx, user, workflow.File(photo1))
	reply, _ = w.HandleEvent(ctx, user, workflow.Location(site))
	require.Len(t, reply.Results, 1)
	assert.Equal(t, time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC), reply.Results[0].(GeoTag).CapturedAt)

	w.HandleEvent(ctx, user, workflow.File(photo2))
	reply, _ = w.HandleEvent(ctx, user, workflow.Location(site))
	assert.Equal(t, w.now(), reply.Results[0].(GeoTag).CapturedAt)
}

func TestGeotagInvalidTime(t *testing.T) {
	w, _ := newWorkflow(t)
	reply, _ := w.HandleEvent(context.Background(), user, workflow.Command(CmdTime, "whenever"))
	require.True(t, reply.Rejected())

	var invalid *workflow.InvalidInputError
	require.True(t, errors.As(reply.Err, &invalid))
	assert.Equal(t, "timestamp", invalid.Field)
}

func TestGeotagCancelRemovesPendingPhoto(t *testing.T) {
	w, r := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.Command(CmdCancel, ""))
	assert.True(t, errors.Is(reply.Err, workflow.ErrNothingToCancel))
	assert.Equal(t, StepAwaitingPhoto, step)

	w.HandleEvent(ctx, user, workflow.File(photo1))
	reply, step = w.HandleEvent(ctx, user, workflow.Command(CmdCancel, ""))
	require.False(t, reply.Rejected())
	assert.Equal(t, StepAwaitingPhoto, step)
	assert.Equal(t, []workflow.FileRef{photo1}, r.removed)
}

func TestGeotagTransitionTableIsTotal(t *testing.T) {
	w, _ := newWorkflow(t)
	ctx := context.Background()

	reply, step := w.HandleEvent(ctx, user, workflow.Location(site))
	assert.True(t, reply.Rejected(), "location before photo")
	assert.Equal(t, StepAwaitingPhoto, step)

	reply, _ = w.HandleEvent(ctx, user, workflow.File(workflow.FileRef{Name: "notes.pdf", MimeType: "application/pdf"}))
	assert.True(t, reply.Rejected(), "not an image")

	w.HandleEvent(ctx, user, workflow.File(photo1))
	reply, step = w.HandleEvent(ctx, user, workflow.File(photo2))
	assert.True(t, reply.Rejected(), "second photo while one is pending")
	assert.Equal(t, StepAwaitingLocation, step)

	reply, step = w.HandleEvent(ctx, user, workflow.Text("somewhere"))
	assert.True(t, reply.Rejected())
	assert.Equal(t, StepAwaitingLocation, step)
}

func TestGeotagCleanupRemovesPendingPhoto(t *testing.T) {
	w, r := newWorkflow(t)
	w.HandleEvent(context.Background(), user, workflow.File(photo2))

	w.Cleanup(user)
	_, ok := w.State(user)
	assert.False(t, ok)
	assert.Equal(t, []workflow.FileRef{photo2}, r.removed)

	w.Cleanup(user)
	assert.Len(t, r.removed, 1)
}
