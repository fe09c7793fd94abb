package conversation

import (
	"context"
	"errors"

	"athena-be/internal/entity"

	"github.com/google/uuid"
)

var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrSendInFlight = errors.New("a send is already in flight")
	ErrAuthMissing  = errors.New("no authenticated user")
	ErrNotConfirmed = errors.New("deletion requires explicit confirmation")
)

type SessionStore interface {
	ListSessions(ctx context.Context, owner uuid.UUID) ([]*entity.ChatSession, error)
	FindSession(ctx context.Context, owner, id uuid.UUID) (*entity.ChatSession, error)
	CreateSession(ctx context.Context, owner uuid.UUID, title string) (*entity.ChatSession, error)
	DeleteSession(ctx context.Context, owner, id uuid.UUID) error
}

type MessageLog interface {
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*entity.ChatMessage, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*entity.ChatMessage, error)
}

type Generator interface {
	Generate(ctx context.Context, modelID, systemInstruction, userQuery string) (string, error)
}

// ModelSource yields the active model id. It never performs discovery.
type ModelSource interface {
	ModelID() string
}
