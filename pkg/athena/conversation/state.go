package conversation

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "idle"
	StateComposing State = "composing"
	StateSending   State = "sending"
)

type EntryStatus string

const (
	// EntryPending is shown before its persistence call has returned.
	EntryPending   EntryStatus = "pending"
	EntryConfirmed EntryStatus = "confirmed"
	EntryFailed    EntryStatus = "failed"
	// EntryEphemeral is a synthetic error bubble that is never persisted.
	EntryEphemeral EntryStatus = "ephemeral"
)

type Entry struct {
	LocalID   uuid.UUID
	ServerID  uuid.UUID
	SessionID uuid.UUID
	Role      string
	Content   string
	CreatedAt time.Time
	Status    EntryStatus
}

type SessionSummary struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
}

// View is a copy of the controller's state; mutating it has no effect.
type View struct {
	State     State
	SessionID *uuid.UUID
	Draft     string
	Entries   []Entry
	Sessions  []SessionSummary
}

func (v View) Sending() bool {
	return v.State == StateSending
}
