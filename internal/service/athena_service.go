package service

import (
	"context"

	"athena-be/internal/dto"
	"athena-be/internal/pkg/logger"
	"athena-be/internal/repository/memory"
	"athena-be/pkg/athena/conversation"
	"athena-be/pkg/athena/registry"
	"athena-be/pkg/events"

	"github.com/google/uuid"
)

type IAthenaService interface {
	GetActiveModel(ctx context.Context) *dto.ActiveModelResponse
	ListSessions(ctx context.Context, userId uuid.UUID) ([]dto.SessionSummaryResponse, error)
	NewConversation(ctx context.Context, userId uuid.UUID) (*dto.ConversationViewResponse, error)
	SelectSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ConversationViewResponse, error)
	DeleteSession(ctx context.Context, userId, sessionId uuid.UUID, confirmed bool) (*dto.ConversationViewResponse, error)
	Compose(ctx context.Context, userId uuid.UUID, chat string) (*dto.ConversationViewResponse, error)
	Send(ctx context.Context, userId uuid.UUID, chat *string) (*dto.ConversationViewResponse, error)
	GetView(ctx context.Context, userId uuid.UUID) (*dto.ConversationViewResponse, error)
}

type athenaService struct {
	views     *memory.ViewRepository
	sessions  ISessionStoreService
	messages  IMessageLogService
	generator conversation.Generator
	selection *registry.Selection
	events    events.Publisher
	logger    logger.ILogger
}

func NewAthenaService(
	views *memory.ViewRepository,
	sessions ISessionStoreService,
	messages IMessageLogService,
	generator conversation.Generator,
	selection *registry.Selection,
	eventPublisher events.Publisher,
	logger logger.ILogger,
) IAthenaService {
	return &athenaService{
		views:     views,
		sessions:  sessions,
		messages:  messages,
		generator: generator,
		selection: selection,
		events:    eventPublisher,
		logger:    logger,
	}
}

func (s *athenaService) view(ctx context.Context, userId uuid.UUID) (*conversation.Controller, error) {
	if userId == uuid.Nil {
		return nil, conversation.ErrAuthMissing
	}
	return s.views.GetOrCreate(userId, func() *conversation.Controller {
		ctrl := conversation.NewController(conversation.Dependencies{
			Sessions:  s.sessions,
			Messages:  s.messages,
			Generator: s.generator,
			Models:    s.selection,
			Events:    s.events,
			Logger:    s.logger,
		}, userId)
		ctrl.RefreshSessions(ctx)
		return ctrl
	}), nil
}

func (s *athenaService) GetActiveModel(ctx context.Context) *dto.ActiveModelResponse {
	return &dto.ActiveModelResponse{
		Model:      s.selection.ModelID(),
		Discovered: s.selection.Discovered(),
		Fallback:   s.selection.Fallback(),
	}
}

func (s *athenaService) ListSessions(ctx context.Context, userId uuid.UUID) ([]dto.SessionSummaryResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	return toSessionSummaries(ctrl.RefreshSessions(ctx)), nil
}

func (s *athenaService) NewConversation(ctx context.Context, userId uuid.UUID) (*dto.ConversationViewResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	ctrl.NewConversation()
	return toViewResponse(ctrl.Snapshot()), nil
}

func (s *athenaService) SelectSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ConversationViewResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SelectSession(ctx, sessionId); err != nil {
		return nil, err
	}
	return toViewResponse(ctrl.Snapshot()), nil
}

func (s *athenaService) DeleteSession(ctx context.Context, userId, sessionId uuid.UUID, confirmed bool) (*dto.ConversationViewResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := ctrl.DeleteSession(ctx, sessionId, confirmed); err != nil {
		return nil, err
	}
	return toViewResponse(ctrl.Snapshot()), nil
}

func (s *athenaService) Compose(ctx context.Context, userId uuid.UUID, chat string) (*dto.ConversationViewResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	ctrl.Compose(chat)
	return toViewResponse(ctrl.Snapshot()), nil
}

// Send composes chat when given, then submits the draft. The submission is
// detached from the request context so a client disconnect does not abort it.
func (s *athenaService) Send(ctx context.Context, userId uuid.UUID, chat *string) (*dto.ConversationViewResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	submitCtx := context.WithoutCancel(ctx)
	if chat != nil {
		err = ctrl.SubmitText(submitCtx, *chat)
	} else {
		err = ctrl.Submit(submitCtx)
	}
	if err != nil {
		return nil, err
	}
	return toViewResponse(ctrl.Snapshot()), nil
}

func (s *athenaService) GetView(ctx context.Context, userId uuid.UUID) (*dto.ConversationViewResponse, error) {
	ctrl, err := s.view(ctx, userId)
	if err != nil {
		return nil, err
	}
	return toViewResponse(ctrl.Snapshot()), nil
}

func toSessionSummaries(sessions []conversation.SessionSummary) []dto.SessionSummaryResponse {
	res := make([]dto.SessionSummaryResponse, 0, len(sessions))
	for _, s := range sessions {
		res = append(res, dto.SessionSummaryResponse{
			Id:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
		})
	}
	return res
}

func toViewResponse(v conversation.View) *dto.ConversationViewResponse {
	res := &dto.ConversationViewResponse{
		State:         string(v.State),
		ChatSessionId: v.SessionID,
		Draft:         v.Draft,
		Sending:       v.Sending(),
		Messages:      make([]dto.ChatEntryResponse, 0, len(v.Entries)),
		Sessions:      toSessionSummaries(v.Sessions),
	}
	for _, e := range v.Entries {
		entry := dto.ChatEntryResponse{
			LocalId:   e.LocalID,
			Role:      e.Role,
			Chat:      e.Content,
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
		}
		if e.ServerID != uuid.Nil {
			id := e.ServerID
			entry.ServerId = &id
		}
		if e.SessionID != uuid.Nil {
			id := e.SessionID
			entry.SessionId = &id
		}
		res.Messages = append(res.Messages, entry)
	}
	return res
}
