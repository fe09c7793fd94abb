package dto

import (
	"time"

	"github.com/google/uuid"
)

// SessionDeletedMessage is the payload handed to the cleanup consumer.
type SessionDeletedMessage struct {
	SessionId uuid.UUID `json:"session_id"`
	UserId    uuid.UUID `json:"user_id"`
}

type SessionPathParams struct {
	Id string `params:"id" validate:"required,uuid"`
}

type DeleteSessionQuery struct {
	Confirm bool `query:"confirm"`
}

// ComposeRequest requires the chat field to be present; an empty string is
// a valid draft.
type ComposeRequest struct {
	Chat *string `json:"chat" validate:"required"`
}

type ActiveModelResponse struct {
	Model      string `json:"model"`
	Discovered bool   `json:"discovered"`
	Fallback   string `json:"fallback"`
}

type SessionSummaryResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatEntryResponse struct {
	LocalId   uuid.UUID  `json:"local_id"`
	ServerId  *uuid.UUID `json:"server_id,omitempty"`
	SessionId *uuid.UUID `json:"session_id,omitempty"`
	Role      string     `json:"role"`
	Chat      string     `json:"chat"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type ConversationViewResponse struct {
	State         string                   `json:"state"`
	ChatSessionId *uuid.UUID               `json:"chat_session_id"`
	Draft         string                   `json:"draft"`
	Sending       bool                     `json:"sending"`
	Messages      []ChatEntryResponse      `json:"messages"`
	Sessions      []SessionSummaryResponse `json:"sessions"`
}
