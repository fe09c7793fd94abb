package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// NewestFirst orders sessions for the sidebar listing.
func NewestFirst() Specification {
	return OrderBy{Field: "created_at", Desc: true}
}

// OldestFirst orders a message log for replay.
func OldestFirst() Specification {
	return OrderBy{Field: "created_at", Desc: false}
}
