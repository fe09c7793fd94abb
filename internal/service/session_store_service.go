package service

import (
	"context"
	"errors"
	"time"

	"athena-be/internal/entity"
	"athena-be/internal/pkg/logger"
	"athena-be/internal/repository/specification"
	"athena-be/internal/repository/unitofwork"
	"athena-be/pkg/athena/conversation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ISessionStoreService interface {
	ListSessions(ctx context.Context, owner uuid.UUID) ([]*entity.ChatSession, error)
	FindSession(ctx context.Context, owner, id uuid.UUID) (*entity.ChatSession, error)
	CreateSession(ctx context.Context, owner uuid.UUID, title string) (*entity.ChatSession, error)
	DeleteSession(ctx context.Context, owner, id uuid.UUID) error
}

type sessionStoreService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IPublisherService
	logger     logger.ILogger
	clock      *monotonicClock
}

var _ conversation.SessionStore = (*sessionStoreService)(nil)

func NewSessionStoreService(
	uowFactory unitofwork.RepositoryFactory,
	publisher IPublisherService,
	logger logger.ILogger,
) ISessionStoreService {
	return &sessionStoreService{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger,
		clock:      &monotonicClock{now: time.Now},
	}
}

func (s *sessionStoreService) ListSessions(ctx context.Context, owner uuid.UUID) ([]*entity.ChatSession, error) {
	if owner == uuid.Nil {
		return nil, storeError("list sessions", conversation.ErrAuthMissing)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: owner},
		specification.NewestFirst(),
	)
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	return sessions, nil
}

func (s *sessionStoreService) FindSession(ctx context.Context, owner, id uuid.UUID) (*entity.ChatSession, error) {
	if owner == uuid.Nil {
		return nil, storeError("find session", conversation.ErrAuthMissing)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: owner},
	)
	if err != nil {
		return nil, storeError("find session", err)
	}
	if session == nil {
		return nil, storeError("find session", ErrSessionNotFound)
	}
	return session, nil
}

func (s *sessionStoreService) CreateSession(ctx context.Context, owner uuid.UUID, title string) (*entity.ChatSession, error) {
	if owner == uuid.Nil {
		return nil, storeError("create session", conversation.ErrAuthMissing)
	}
	if title == "" {
		return nil, storeError("create session", errors.New("title is empty"))
	}

	session := &entity.ChatSession{
		UserId:    owner,
		Title:     title,
		CreatedAt: s.clock.Next(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, storeError("create session", err)
	}

	s.logger.Info(logModuleStore, "Chat session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    owner.String(),
	})
	return session, nil
}

// DeleteSession removes the session and its messages in one transaction,
// then hands the session to the cleanup consumer for a hard purge.
func (s *sessionStoreService) DeleteSession(ctx context.Context, owner, id uuid.UUID) error {
	if owner == uuid.Nil {
		return storeError("delete session", conversation.ErrAuthMissing)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return storeError("delete session", err)
	}
	defer uow.Rollback()

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: owner},
	)
	if err != nil {
		return storeError("delete session", err)
	}
	if session == nil {
		return storeError("delete session", ErrSessionNotFound)
	}

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, id); err != nil {
		return storeError("delete messages", err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrSessionNotFound
		}
		return storeError("delete session", err)
	}

	if err := uow.Commit(); err != nil {
		return storeError("delete session", err)
	}

	s.logger.Info(logModuleStore, "Chat session deleted", map[string]interface{}{
		"session_id": id.String(),
		"user_id":    owner.String(),
	})

	if s.publisher != nil {
		if err := s.publisher.PublishSessionDeleted(ctx, id, owner); err != nil {
			s.logger.Warn(logModuleStore, "Failed to queue session cleanup", map[string]interface{}{
				"session_id": id.String(),
				"error":      err.Error(),
			})
		}
	}
	return nil
}
