package service

import (
	"context"
	"encoding/json"
	"time"

	"geoassist-be/internal/dto"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// resultModes maps a result type to the mode that produces it.
var resultModes = map[string]store.Mode{
	"measurement":        store.ModeLocation,
	"workbook_entry":     store.ModeWorkbook,
	"kml_document":       store.ModeKML,
	"geotag":             store.ModeGeotags,
	"archive":            store.ModeArchive,
	"archive_extraction": store.ModeArchive,
	"extracted_text":     store.ModeOCR,
}

// ModeOfResult reports the mode a result type belongs to, NONE if unknown.
func ModeOfResult(resultType string) store.Mode {
	if m, ok := resultModes[resultType]; ok {
		return m
	}
	return store.ModeNone
}

type IPublisherService interface {
	workflow.Persistence
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
}

func NewPublisherService(topicName string, publisher message.Publisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		logger:    log,
	}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

// SaveResult queues a finished result for storage. Failures are logged and
// never reach the user.
func (ps *publisherService) SaveResult(ctx context.Context, userID string, result workflow.Result) {
	fields := map[string]interface{}{
		"user_id":     userID,
		"result_type": result.ResultType(),
	}

	payload, err := json.Marshal(result)
	if err != nil {
		ps.logger.Error("PERSISTENCE", "Failed to encode result", withError(fields, err))
		return
	}

	msg, err := json.Marshal(dto.PublishFeatureResultMessage{
		UserId:     userID,
		Mode:       ModeOfResult(result.ResultType()).String(),
		ResultType: result.ResultType(),
		Payload:    payload,
		ProducedAt: time.Now(),
	})
	if err != nil {
		ps.logger.Error("PERSISTENCE", "Failed to encode result message", withError(fields, err))
		return
	}

	if err := ps.Publish(ctx, msg); err != nil {
		ps.logger.Error("PERSISTENCE", "Failed to publish result", withError(fields, err))
		return
	}
	ps.logger.Debug("PERSISTENCE", "Result queued", fields)
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
