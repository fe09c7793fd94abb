package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is append-only; there is no update path.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	CreatedAt     time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
