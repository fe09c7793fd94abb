package service

import (
	"context"
	"encoding/json"

	"athena-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IPublisherService interface {
	PublishSessionDeleted(ctx context.Context, sessionId, userId uuid.UUID) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
}

func NewPublisherService(publisher message.Publisher, topicName string) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
	}
}

func (p *publisherService) PublishSessionDeleted(ctx context.Context, sessionId, userId uuid.UUID) error {
	payload, err := json.Marshal(dto.SessionDeletedMessage{
		SessionId: sessionId,
		UserId:    userId,
	})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topicName, msg)
}
