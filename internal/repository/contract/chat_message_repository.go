package contract

import (
	"context"

	"athena-be/internal/entity"
	"athena-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
	DeleteByChatSessionIdUnscoped(ctx context.Context, sessionId uuid.UUID) (int64, error) // Hard delete
	DeleteOrphansUnscoped(ctx context.Context) (int64, error)                              // Hard delete messages without a live session
	CountOrphansUnscoped(ctx context.Context) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
}
