package service

import (
	"context"
	"encoding/json"
	"time"

	"geoassist-be/internal/dto"
	"geoassist-be/internal/entity"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// ResultListener is told about every stored result.
type ResultListener interface {
	ResultSaved(ctx context.Context, result *entity.FeatureResult)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	repo       contract.FeatureResultRepository
	listener   ResultListener
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	repo contract.FeatureResultRepository,
	listener ResultListener,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		repo:       repo,
		listener:   listener,
		logger:     log,
	}
}

// Consume subscribes to the results topic and stores messages until ctx is
// done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishFeatureResultMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal result message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	createdAt := payload.ProducedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result := &entity.FeatureResult{
		Id:         uuid.New(),
		UserId:     payload.UserId,
		Mode:       payload.Mode,
		ResultType: payload.ResultType,
		Payload:    payload.Payload,
		CreatedAt:  createdAt,
	}

	if err := cs.repo.Create(ctx, result); err != nil {
		cs.logger.Error("CONSUMER", "Failed to store result", map[string]interface{}{
			"user_id":     payload.UserId,
			"result_type": payload.ResultType,
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info("CONSUMER", "Result stored", map[string]interface{}{
		"result_id":   result.Id.String(),
		"user_id":     result.UserId,
		"mode":        result.Mode,
		"result_type": result.ResultType,
	})
	if cs.listener != nil {
		cs.listener.ResultSaved(ctx, result)
	}
	msg.Ack()
}
