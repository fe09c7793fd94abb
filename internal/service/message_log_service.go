package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"athena-be/internal/constant"
	"athena-be/internal/entity"
	"athena-be/internal/pkg/logger"
	"athena-be/internal/repository/specification"
	"athena-be/internal/repository/unitofwork"
	"athena-be/pkg/athena/conversation"

	"github.com/google/uuid"
)

const logModuleStore = "STORE"

type IMessageLogService interface {
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*entity.ChatMessage, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*entity.ChatMessage, error)
}

type messageLogService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	clock      *monotonicClock
}

var _ conversation.MessageLog = (*messageLogService)(nil)

func NewMessageLogService(uowFactory unitofwork.RepositoryFactory, logger logger.ILogger) IMessageLogService {
	return &messageLogService{
		uowFactory: uowFactory,
		logger:     logger,
		clock:      &monotonicClock{now: time.Now},
	}
}

func (s *messageLogService) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionID},
		specification.OldestFirst(),
	)
	if err != nil {
		return nil, storeError("list messages", err)
	}
	return messages, nil
}

// AppendMessage checks the role only; content is stored as given.
func (s *messageLogService) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*entity.ChatMessage, error) {
	if role != constant.ChatMessageRoleUser && role != constant.ChatMessageRoleModel {
		return nil, storeError("append message", fmt.Errorf("%w: %q", ErrInvalidRole, role))
	}

	msg := &entity.ChatMessage{
		ChatSessionId: sessionID,
		Role:          role,
		Content:       content,
		CreatedAt:     s.clock.Next(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().Create(ctx, msg); err != nil {
		return nil, storeError("append message", err)
	}

	s.logger.Debug(logModuleStore, "Chat message appended", map[string]interface{}{
		"session_id": sessionID.String(),
		"message_id": msg.Id.String(),
		"role":       role,
	})
	return msg, nil
}

// monotonicClock hands out strictly increasing microsecond timestamps.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
