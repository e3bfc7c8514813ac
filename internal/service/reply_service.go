package service

import (
	"context"
	"encoding/json"
	"time"

	"geoassist-be/internal/dto"
	"geoassist-be/pkg/workflow"
)

// ReplyPublisher routes an encoded reply to the user's chat gateway.
type ReplyPublisher interface {
	Publish(ctx context.Context, userID string, data []byte) error
}

type IReplyService interface {
	workflow.Sender
}

type replyService struct {
	publisher ReplyPublisher
}

func NewReplyService(publisher ReplyPublisher) IReplyService {
	return &replyService{publisher: publisher}
}

// Send is attempted once; the caller decides what a failure means.
func (s *replyService) Send(ctx context.Context, userID, text string, keyboard []string) error {
	data, err := json.Marshal(dto.BotReplyMessage{
		UserId:   userID,
		Text:     text,
		Keyboard: keyboard,
		SentAt:   time.Now(),
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, userID, data)
}
