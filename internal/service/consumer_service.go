package service

import (
	"context"
	"encoding/json"

	"athena-be/internal/dto"
	"athena-be/internal/pkg/logger"
	"athena-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
)

const logModuleCleanup = "CLEANUP"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService hard-purges deleted sessions and their messages. It is
// the compensating pass behind the transactional soft-delete cascade.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     logger,
	}
}

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
	var payload dto.SessionDeletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(logModuleCleanup, "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // poison message, retrying will not help
		return
	}

	purged, err := cs.purge(ctx, payload)
	if err != nil {
		cs.logger.Error(logModuleCleanup, "Failed to purge deleted session", map[string]interface{}{
			"session_id": payload.SessionId.String(),
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info(logModuleCleanup, "Purged deleted session", map[string]interface{}{
		"session_id": payload.SessionId.String(),
		"purged":     purged,
	})
	msg.Ack()
}

// purge removes the session's messages and then the session row itself,
// both already soft deleted, in one transaction.
func (cs *consumerService) purge(ctx context.Context, payload dto.SessionDeletedMessage) (int64, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	purged, err := uow.ChatMessageRepository().DeleteByChatSessionIdUnscoped(ctx, payload.SessionId)
	if err != nil {
		return 0, err
	}
	if err := uow.ChatSessionRepository().DeleteUnscoped(ctx, payload.SessionId); err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return purged, nil
}
