package service

import (
	"context"
	"sort"
	"time"

	"geoassist-be/internal/entity"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/contract"
	"geoassist-be/pkg/events"
	"geoassist-be/pkg/mode"
)

const publishTimeout = 3 * time.Second

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IActivityService interface {
	mode.Observer
	ResultListener
	// Record counts an event read back from the bus.
	Record(ctx context.Context, event events.Event) error
	Stats(ctx context.Context) (map[string]int64, error)
}

// activityService writes the mode switch audit trail and announces switches
// and stored results on the event bus. Counters are fed from the bus so every
// instance contributes; without a bus they are counted in place.
type activityService struct {
	publisher    EventPublisher
	stats        contract.ActivityStatsRepository
	audit        logger.ILogger
	countLocally bool
}

func NewActivityService(
	publisher EventPublisher,
	stats contract.ActivityStatsRepository,
	audit logger.ILogger,
	countLocally bool,
) IActivityService {
	return &activityService{
		publisher:    publisher,
		stats:        stats,
		audit:        audit,
		countLocally: countLocally,
	}
}

func (s *activityService) ModeSwitched(ctx context.Context, ev mode.SwitchEvent) {
	s.audit.Info("AUDIT", "Mode switched", map[string]interface{}{
		"session_id":    ev.SessionID.String(),
		"user_id":       ev.UserID,
		"previous_mode": ev.Previous.String(),
		"new_mode":      ev.Next.String(),
		"reason":        string(ev.Reason),
		"timestamp":     ev.At,
	})
	s.emit(ctx, events.NewModeSwitched(ev.UserID, ev.Previous.String(), ev.Next.String(), string(ev.Reason), ev.At))
}

func (s *activityService) ResultSaved(ctx context.Context, result *entity.FeatureResult) {
	s.emit(ctx, events.NewResultSaved(result.Id.String(), result.UserId, result.Mode, result.ResultType, result.CreatedAt))
}

func (s *activityService) emit(ctx context.Context, event events.Event) {
	if s.countLocally {
		if err := s.Record(ctx, event); err != nil {
			s.audit.Warn("AUDIT", "Failed to count activity", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}
	if s.publisher == nil {
		return
	}

	// the caller's request may finish before the bus answers
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.audit.Warn("AUDIT", "Failed to publish activity event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

// StatField names the counter an event increments.
func StatField(event events.Event) string {
	switch event.EventType() {
	case events.TypeModeSwitched:
		return "switch:" + events.StringField(event, "reason") + ":" + modeOfSwitch(event)
	case events.TypeResultSaved:
		return "result:" + events.StringField(event, "result_type")
	}
	return ""
}

// expirations and exits are counted against the mode left, entries against
// the mode entered
func modeOfSwitch(event events.Event) string {
	if events.StringField(event, "reason") == string(mode.ReasonEntered) {
		return events.StringField(event, "new_mode")
	}
	return events.StringField(event, "previous_mode")
}

func (s *activityService) Record(ctx context.Context, event events.Event) error {
	field := StatField(event)
	if field == "" {
		return nil
	}
	return s.stats.Increment(ctx, field)
}

func (s *activityService) Stats(ctx context.Context) (map[string]int64, error) {
	return s.stats.All(ctx)
}

// SortedStatFields lists counter names in a stable order.
func SortedStatFields(stats map[string]int64) []string {
	fields := make([]string, 0, len(stats))
	for f := range stats {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
