// Package mode owns the per-user active mode. It is the only place that
// creates or destroys a ModeSession and the single entry point through which
// events reach a feature workflow.
package mode

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"
)

const (
	DefaultTTL    = 30 * time.Minute
	defaultShards = 32
	logModule     = "MODE"
)

// Manager tracks which mode every user is in and routes events to the
// registered workflows.
type Manager struct {
	mu        sync.RWMutex
	workflows map[store.Mode]workflow.Workflow

	sessions *memory.Store[store.ModeSession]
	lanes    *lanes

	ttls       map[store.Mode]time.Duration
	defaultTTL time.Duration
	shards     int
	now        func() time.Time

	geocoder    workflow.Geocoder
	persistence workflow.Persistence
	observers   []Observer
	logger      logger.ILogger
}

type Option func(*Manager)

// WithTTL sets the idle timeout of one mode.
func WithTTL(m store.Mode, d time.Duration) Option {
	return func(mg *Manager) {
		if d > 0 {
			mg.ttls[m] = d
		}
	}
}

// WithDefaultTTL sets the idle timeout of modes without their own TTL.
func WithDefaultTTL(d time.Duration) Option {
	return func(mg *Manager) {
		if d > 0 {
			mg.defaultTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(mg *Manager) { mg.now = now }
}

func WithShards(n int) Option {
	return func(mg *Manager) { mg.shards = n }
}

func WithGeocoder(g workflow.Geocoder) Option {
	return func(mg *Manager) { mg.geocoder = g }
}

func WithPersistence(p workflow.Persistence) Option {
	return func(mg *Manager) { mg.persistence = p }
}

func WithObserver(o Observer) Option {
	return func(mg *Manager) { mg.observers = append(mg.observers, o) }
}

func WithLogger(l logger.ILogger) Option {
	return func(mg *Manager) { mg.logger = l }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		workflows:  make(map[store.Mode]workflow.Workflow),
		ttls:       make(map[store.Mode]time.Duration),
		defaultTTL: DefaultTTL,
		shards:     defaultShards,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.NewNopLogger()
	}
	if m.shards < 1 {
		m.shards = defaultShards
	}
	m.sessions = memory.NewStore[store.ModeSession](memory.WithShards(m.shards), memory.WithClock(m.now))
	m.lanes = newLanes(m.shards)
	return m
}

// RegisterMode binds a workflow to a mode. Called at startup.
func (m *Manager) RegisterMode(mode store.Mode, wf workflow.Workflow) error {
	if !mode.Valid() || mode == store.ModeNone {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if wf == nil {
		return fmt.Errorf("register %s: nil workflow", mode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workflows[mode]; exists {
		return fmt.Errorf("register %s: already registered", mode)
	}
	m.workflows[mode] = wf
	return nil
}

// Workflow returns the workflow registered for mode.
func (m *Manager) Workflow(mode store.Mode) (workflow.Workflow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.workflows[mode]
	return wf, ok
}

// RegisteredModes returns the registered modes in a stable order.
func (m *Manager) RegisteredModes() []store.Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Mode, 0, len(m.workflows))
	for mode := range m.workflows {
		out = append(out, mode)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TTL returns the idle timeout applied to mode.
func (m *Manager) TTL(mode store.Mode) time.Duration {
	if d, ok := m.ttls[mode]; ok {
		return d
	}
	return m.defaultTTL
}

func (m *Manager) expired(s store.ModeSession, now time.Time) bool {
	return s.IdleFor(now) > m.TTL(s.CurrentMode)
}

// EnterMode makes mode the user's active mode. The previous mode is cleaned up
// first; entering the current mode again returns the session unchanged.
func (m *Manager) EnterMode(ctx context.Context, userID string, mode store.Mode) (store.ModeSession, error) {
	mode = mode.OrNone()
	if !mode.Valid() {
		return store.ModeSession{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	var wf workflow.Workflow
	if mode != store.ModeNone {
		var ok bool
		if wf, ok = m.Workflow(mode); !ok {
			return store.ModeSession{}, fmt.Errorf("%w: %s", ErrModeNotRegistered, mode)
		}
	}

	var switches []SwitchEvent
	sess := func() store.ModeSession {
		release := m.lanes.acquire(userID)
		defer release()

		now := m.now()
		cur, ok := m.sessions.Get(userID)
		if ok && m.expired(cur, now) {
			switches = append(switches, m.expireLocked(userID, cur, now))
			ok = false
		}

		prev := store.ModeNone
		if ok {
			prev = cur.CurrentMode
			if prev == mode {
				return cur
			}
		}
		if mode == store.ModeNone && !ok {
			return store.NewModeSession(userID, store.ModeNone, store.ModeNone, now)
		}

		if prev != store.ModeNone {
			m.cleanup(userID, prev)
		}

		next := store.NewModeSession(userID, mode, prev, now)
		reason := ReasonEntered
		if mode == store.ModeNone {
			// absence of a session is NONE
			m.sessions.Delete(userID)
			reason = ReasonExited
		} else {
			wf.Initialize(userID)
			m.sessions.Put(userID, next)
		}
		switches = append(switches, SwitchEvent{
			SessionID: next.ID,
			UserID:    userID,
			Previous:  prev,
			Next:      mode,
			Reason:    reason,
			At:        now,
		})
		return next
	}()

	m.notify(ctx, switches...)
	return sess, nil
}

// ExitToNone leaves whatever mode is active.
func (m *Manager) ExitToNone(ctx context.Context, userID string) (store.ModeSession, error) {
	return m.EnterMode(ctx, userID, store.ModeNone)
}

// CurrentMode reports NONE when the user has no session or it expired.
func (m *Manager) CurrentMode(userID string) store.Mode {
	s, ok := m.Session(userID)
	if !ok {
		return store.ModeNone
	}
	return s.CurrentMode
}

// Session returns the live session of userID.
func (m *Manager) Session(userID string) (store.ModeSession, bool) {
	s, ok := m.sessions.Get(userID)
	if !ok || m.expired(s, m.now()) {
		return store.ModeSession{}, false
	}
	return s, true
}

// StaleSession returns a stored session that is past its TTL but not swept
// yet. Dispatching to its mode reports the expiry and releases its state.
func (m *Manager) StaleSession(userID string) (store.ModeSession, bool) {
	s, ok := m.sessions.Get(userID)
	if !ok || !m.expired(s, m.now()) {
		return store.ModeSession{}, false
	}
	return s, true
}

// Touch refreshes the activity time of a live session.
func (m *Manager) Touch(userID string) bool {
	release := m.lanes.acquire(userID)
	defer release()
	return m.touchLocked(userID, m.now())
}

func (m *Manager) touchLocked(userID string, now time.Time) bool {
	s, ok := m.sessions.Get(userID)
	if !ok || m.expired(s, now) {
		return false
	}
	m.sessions.Put(userID, s.Touched(now))
	return true
}

// Dispatch hands ev to the workflow of mode when it is the user's active mode.
// Events of one user are processed one at a time in arrival order.
func (m *Manager) Dispatch(ctx context.Context, userID string, mode store.Mode, ev workflow.Event) (workflow.Reply, error) {
	wf, ok := m.Workflow(mode)
	if !ok {
		return workflow.Reply{}, fmt.Errorf("%w: %s", ErrModeNotRegistered, mode)
	}

	var switches []SwitchEvent
	reply, err := func() (workflow.Reply, error) {
		release := m.lanes.acquire(userID)
		defer release()

		now := m.now()
		cur, ok := m.sessions.Get(userID)
		if !ok {
			return workflow.Reply{}, &ModeMismatchError{Requested: mode, Current: store.ModeNone}
		}
		if m.expired(cur, now) {
			switches = append(switches, m.expireLocked(userID, cur, now))
			return workflow.Reply{}, &ModeMismatchError{
				Requested: mode,
				Current:   store.ModeNone,
				Expired:   cur.CurrentMode == mode,
			}
		}
		if cur.CurrentMode != mode {
			return workflow.Reply{}, &ModeMismatchError{Requested: mode, Current: cur.CurrentMode}
		}

		ev = m.enrich(ctx, ev)
		reply, step := wf.HandleEvent(ctx, userID, ev)
		m.touchLocked(userID, m.now())

		if reply.Err != nil {
			m.logger.Debug(logModule, "Event rejected", map[string]interface{}{
				"user_id": userID,
				"mode":    mode,
				"step":    step,
				"kind":    ev.Kind,
				"error":   reply.Err.Error(),
			})
		}
		return reply, nil
	}()

	m.notify(ctx, switches...)
	if err != nil {
		return reply, err
	}

	if m.persistence != nil {
		for _, r := range reply.Results {
			m.persistence.SaveResult(ctx, userID, r)
		}
	}
	return reply, nil
}

// enrich turns coordinate text into a point and resolves its address. The
// geocoder is called without any store lock held; failures fall back to the
// literal coordinates.
func (m *Manager) enrich(ctx context.Context, ev workflow.Event) workflow.Event {
	if ev.Kind == workflow.EventText && ev.Point == nil {
		if p, err := geo.ParsePoint(ev.Text); err == nil {
			ev.Point = &p
		}
	}
	if ev.Point == nil || m.geocoder == nil || ev.Point.Validate() != nil {
		return ev
	}

	resolved, err := workflow.ResolveAddress(ctx, m.geocoder, *ev.Point)
	if err != nil {
		m.logger.Warn(logModule, "Reverse geocoding failed, using coordinates", map[string]interface{}{
			"point": ev.Point.String(),
			"error": err.Error(),
		})
	}
	ev.Point = &resolved
	return ev
}

// Sweep evicts every session idle past its mode TTL and cleans up its feature
// state. Users with an event in flight are skipped until the next pass.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	type eviction struct {
		userID  string
		session store.ModeSession
		release func()
	}

	var evicted []eviction
	m.sessions.SweepFunc(now, func(userID string, s store.ModeSession, _ time.Time) bool {
		if !m.expired(s, now) {
			return false
		}
		release, ok := m.lanes.tryAcquire(userID)
		if !ok {
			return false
		}
		evicted = append(evicted, eviction{userID: userID, session: s, release: release})
		return true
	})

	switches := make([]SwitchEvent, 0, len(evicted))
	for _, e := range evicted {
		func() {
			defer e.release()
			m.cleanup(e.userID, e.session.CurrentMode)
		}()
		switches = append(switches, SwitchEvent{
			SessionID: e.session.ID,
			UserID:    e.userID,
			Previous:  e.session.CurrentMode,
			Next:      store.ModeNone,
			Reason:    ReasonExpired,
			At:        now,
		})
	}
	m.notify(ctx, switches...)
	return len(evicted)
}

// expireLocked drops an expired session found on the request path. The
// caller holds the user's lane.
func (m *Manager) expireLocked(userID string, s store.ModeSession, now time.Time) SwitchEvent {
	m.sessions.Delete(userID)
	m.cleanup(userID, s.CurrentMode)
	return SwitchEvent{
		SessionID: s.ID,
		UserID:    userID,
		Previous:  s.CurrentMode,
		Next:      store.ModeNone,
		Reason:    ReasonExpired,
		At:        now,
	}
}

func (m *Manager) cleanup(userID string, mode store.Mode) {
	if wf, ok := m.Workflow(mode); ok {
		wf.Cleanup(userID)
	}
}

func (m *Manager) notify(ctx context.Context, switches ...SwitchEvent) {
	for _, ev := range switches {
		m.logger.Info(logModule, "Mode switched", map[string]interface{}{
			"user_id":       ev.UserID,
			"previous_mode": ev.Previous,
			"new_mode":      ev.Next,
			"reason":        ev.Reason,
			"timestamp":     ev.At,
		})
		for _, o := range m.observers {
			o.ModeSwitched(ctx, ev)
		}
	}
}

// ActiveSessions is the number of users with a session, expired ones
// included until the next sweep.
func (m *Manager) ActiveSessions() int {
	return m.sessions.Len()
}
