package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geoassist-be/internal/entity"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/events"
	"geoassist-be/pkg/mode"
	"geoassist-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakeEventPublisher) Publish(ctx context.Context, event events.Event) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakeEventPublisher) list() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func switchEvent(prev, next store.Mode, reason mode.SwitchReason) mode.SwitchEvent {
	return mode.SwitchEvent{
		SessionID: uuid.New(),
		UserID:    "user-1",
		Previous:  prev,
		Next:      next,
		Reason:    reason,
		At:        time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestActivityPublishesSwitchesAndResults(t *testing.T) {
	pub := &fakeEventPublisher{}
	stats := memory.NewActivityStatsRepository()
	svc := NewActivityService(pub, stats, logger.NewNopLogger(), false)

	// a cancelled request context must not stop the announcement
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.ModeSwitched(ctx, switchEvent(store.ModeNone, store.ModeKML, mode.ReasonEntered))
	svc.ResultSaved(ctx, &entity.FeatureResult{Id: uuid.New(), UserId: "user-1", Mode: "KML", ResultType: "kml_document"})

	got := pub.list()
	require.Len(t, got, 2)
	assert.Equal(t, events.TypeModeSwitched, got[0].EventType())
	assert.Equal(t, "KML", events.StringField(got[0], "new_mode"))
	assert.Equal(t, events.TypeResultSaved, got[1].EventType())

	// counted only when read back from the bus
	all, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, ev := range got {
		require.NoError(t, svc.Record(context.Background(), ev))
	}
	all, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"switch:entered:KML": 1, "result:kml_document": 1}, all)
}

func TestActivityCountsLocallyWithoutBus(t *testing.T) {
	svc := NewActivityService(nil, memory.NewActivityStatsRepository(), logger.NewNopLogger(), true)
	ctx := context.Background()

	svc.ModeSwitched(ctx, switchEvent(store.ModeNone, store.ModeOCR, mode.ReasonEntered))
	svc.ModeSwitched(ctx, switchEvent(store.ModeOCR, store.ModeNone, mode.ReasonExpired))
	svc.ModeSwitched(ctx, switchEvent(store.ModeNone, store.ModeOCR, mode.ReasonEntered))

	all, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"switch:entered:OCR": 2, "switch:expired:OCR": 1}, all)
	assert.Equal(t, []string{"switch:entered:OCR", "switch:expired:OCR"}, SortedStatFields(all))
}

func TestActivityPublishFailureIsSwallowed(t *testing.T) {
	pub := &fakeEventPublisher{err: errors.New("nats down")}
	svc := NewActivityService(pub, memory.NewActivityStatsRepository(), logger.NewNopLogger(), false)

	assert.NotPanics(t, func() {
		svc.ModeSwitched(context.Background(), switchEvent(store.ModeKML, store.ModeNone, mode.ReasonExited))
	})
	assert.Len(t, pub.list(), 1)
}

func TestStatFieldIgnoresUnknownEvents(t *testing.T) {
	assert.Empty(t, StatField(events.BaseEvent{Type: "OTHER"}))
	assert.Equal(t, "switch:exited:KML",
		StatField(events.NewModeSwitched("u", "KML", "NONE", "exited", time.Now())))
}
