// Package conversation orchestrates one user's conversation view: session
// selection, optimistic message display, persistence and generation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"athena-be/internal/constant"
	"athena-be/internal/entity"
	"athena-be/internal/pkg/logger"
	"athena-be/pkg/athena/generation"
	"athena-be/pkg/athena/prompt"
	"athena-be/pkg/events"

	"github.com/google/uuid"
)

const logModule = "ATHENA"

type Dependencies struct {
	Sessions    SessionStore
	Messages    MessageLog
	Generator   Generator
	Models      ModelSource
	Events      events.Publisher // optional
	Logger      logger.ILogger
	Instruction string
}

// Controller holds a single conversation view. All methods are safe for
// concurrent use; at most one Submit runs at a time.
type Controller struct {
	deps  Dependencies
	owner uuid.UUID

	mu       sync.Mutex
	state    State
	draft    string
	current  uuid.UUID
	entries  []Entry
	sessions []SessionSummary
	// epoch changes whenever the view switches to another conversation.
	epoch uint64
}

func NewController(deps Dependencies, owner uuid.UUID) *Controller {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Instruction == "" {
		deps.Instruction = constant.AthenaSystemInstructionV1
	}
	return &Controller{
		deps:  deps,
		owner: owner,
		state: StateIdle,
	}
}

func (c *Controller) Owner() uuid.UUID {
	return c.owner
}

// Compose records the current input text.
func (c *Controller) Compose(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
	if c.state != StateSending {
		c.state = c.settledState()
	}
}

// NewConversation clears the current session and message list. It touches
// no store and may be called any number of times.
func (c *Controller) NewConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetViewLocked()
}

// SelectSession makes id current and replaces the message list with its
// log. Until the load returns the previous content stays visible.
func (c *Controller) SelectSession(ctx context.Context, id uuid.UUID) error {
	if c.owner == uuid.Nil {
		return ErrAuthMissing
	}
	if _, err := c.deps.Sessions.FindSession(ctx, c.owner, id); err != nil {
		return err
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.current = id
	c.mu.Unlock()

	messages, err := c.deps.Messages.ListMessages(ctx, id)
	if err != nil {
		c.deps.Logger.Error(logModule, "Failed to load messages", map[string]interface{}{
			"session_id": id.String(),
			"error":      err.Error(),
		})
		return err
	}

	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, confirmedEntry(m))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil
	}
	c.entries = entries
	return nil
}

// RefreshSessions reloads the owner's listing. A failed load is logged and
// leaves an empty listing.
func (c *Controller) RefreshSessions(ctx context.Context) []SessionSummary {
	var listing []SessionSummary
	if c.owner != uuid.Nil {
		sessions, err := c.deps.Sessions.ListSessions(ctx, c.owner)
		if err != nil {
			c.deps.Logger.Error(logModule, "Failed to list sessions", map[string]interface{}{
				"user_id": c.owner.String(),
				"error":   err.Error(),
			})
		}
		listing = make([]SessionSummary, 0, len(sessions))
		for _, s := range sessions {
			listing = append(listing, SessionSummary{ID: s.Id, Title: s.Title, CreatedAt: s.CreatedAt})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = listing
	return append([]SessionSummary(nil), listing...)
}

// DeleteSession removes a session and its messages. Nothing happens unless
// confirmed is true. The listing is refreshed whatever the outcome.
func (c *Controller) DeleteSession(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if c.owner == uuid.Nil {
		return ErrAuthMissing
	}

	err := c.deps.Sessions.DeleteSession(ctx, c.owner, id)
	if err != nil {
		c.deps.Logger.Error(logModule, "Failed to delete session", map[string]interface{}{
			"session_id": id.String(),
			"error":      err.Error(),
		})
	} else {
		c.mu.Lock()
		if c.current == id {
			c.resetViewLocked()
		}
		c.mu.Unlock()
		c.publish(ctx, constant.EventSessionDeleted, map[string]interface{}{
			"session_id": id.String(),
			"user_id":    c.owner.String(),
		})
	}

	c.RefreshSessions(ctx)
	return err
}

// Submit sends the current draft, trimmed. Guard failures return an error
// and change nothing; every other failure is rendered into the message list.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, nil)
}

// SubmitText composes text and submits it under the same lock, so a
// concurrent send can neither overwrite nor steal the text. While a send is
// in flight the draft is left untouched.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	return c.submit(ctx, &text)
}

func (c *Controller) submit(ctx context.Context, text *string) error {
	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	if text != nil {
		c.draft = *text
		c.state = c.settledState()
	}
	query := strings.TrimSpace(c.draft)
	if query == "" {
		c.mu.Unlock()
		return ErrEmptyInput
	}
	if c.owner == uuid.Nil {
		c.mu.Unlock()
		return ErrAuthMissing
	}

	c.state = StateSending
	c.draft = ""
	epoch := c.epoch
	sessionID := c.current
	localID := uuid.New()
	c.entries = append(c.entries, Entry{
		LocalID:   localID,
		SessionID: sessionID,
		Role:      constant.ChatMessageRoleUser,
		Content:   query,
		CreatedAt: time.Now(),
		Status:    EntryPending,
	})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = c.settledState()
		c.mu.Unlock()
	}()

	if err := c.send(ctx, epoch, sessionID, localID, query); err != nil {
		c.deps.Logger.Error(logModule, "Send failed", map[string]interface{}{
			"user_id": c.owner.String(),
			"error":   err.Error(),
		})
		c.appendEntry(epoch, Entry{
			LocalID:   uuid.New(),
			SessionID: c.currentSessionFor(epoch, sessionID),
			Role:      constant.ChatMessageRoleModel,
			Content:   constant.ChatErrorPrefix + err.Error(),
			CreatedAt: time.Now(),
			Status:    EntryEphemeral,
		})
	}
	return nil
}

func (c *Controller) send(ctx context.Context, epoch uint64, sessionID, localID uuid.UUID, query string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	// (a) first message of a new conversation creates the session
	if sessionID == uuid.Nil {
		session, err := c.deps.Sessions.CreateSession(ctx, c.owner, prompt.DeriveTitle(query))
		if err != nil {
			c.markEntry(epoch, localID, EntryFailed, uuid.Nil, uuid.Nil)
			return err
		}
		sessionID = session.Id

		c.mu.Lock()
		if c.epoch == epoch {
			c.current = sessionID
			c.setEntrySessionLocked(localID, sessionID)
		}
		c.mu.Unlock()

		c.publish(ctx, constant.EventSessionCreated, map[string]interface{}{
			"session_id": sessionID.String(),
			"user_id":    c.owner.String(),
			"title":      session.Title,
		})
		c.RefreshSessions(ctx)
	}

	// (b) persist the user message
	userMsg, err := c.deps.Messages.AppendMessage(ctx, sessionID, constant.ChatMessageRoleUser, query)
	if err != nil {
		c.markEntry(epoch, localID, EntryFailed, sessionID, uuid.Nil)
		return err
	}
	c.markEntry(epoch, localID, EntryConfirmed, sessionID, userMsg.Id)
	c.publishAppended(ctx, userMsg)

	// (c) the cached selection or its fallback, never a fresh discovery
	modelID := c.deps.Models.ModelID()

	// (d) generation errors become the visible answer
	content, genErr := c.deps.Generator.Generate(ctx, modelID, c.deps.Instruction, query)
	if genErr != nil {
		content = generation.FormatError(genErr)
	}

	// (e) persist the answer, then show it
	modelMsg, err := c.deps.Messages.AppendMessage(ctx, sessionID, constant.ChatMessageRoleModel, content)
	if err != nil {
		c.deps.Logger.Error(logModule, "Failed to persist model message", map[string]interface{}{
			"session_id": sessionID.String(),
			"error":      err.Error(),
		})
		c.appendEntry(epoch, Entry{
			LocalID:   uuid.New(),
			SessionID: sessionID,
			Role:      constant.ChatMessageRoleModel,
			Content:   content,
			CreatedAt: time.Now(),
			Status:    EntryFailed,
		})
		return nil
	}
	c.publishAppended(ctx, modelMsg)

	entry := confirmedEntry(modelMsg)
	entry.LocalID = uuid.New()
	c.appendEntry(epoch, entry)
	return nil
}

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:    c.state,
		Draft:    c.draft,
		Entries:  append([]Entry(nil), c.entries...),
		Sessions: append([]SessionSummary(nil), c.sessions...),
	}
	if c.current != uuid.Nil {
		id := c.current
		v.SessionID = &id
	}
	return v
}

func (c *Controller) resetViewLocked() {
	c.epoch++
	c.current = uuid.Nil
	c.entries = nil
	if c.state != StateSending {
		c.state = c.settledState()
	}
}

func (c *Controller) settledState() State {
	if strings.TrimSpace(c.draft) != "" {
		return StateComposing
	}
	return StateIdle
}

func (c *Controller) appendEntry(epoch uint64, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.entries = append(c.entries, e)
}

func (c *Controller) markEntry(epoch uint64, localID uuid.UUID, status EntryStatus, sessionID, serverID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	for i := range c.entries {
		if c.entries[i].LocalID == localID {
			c.entries[i].Status = status
			if sessionID != uuid.Nil {
				c.entries[i].SessionID = sessionID
			}
			if serverID != uuid.Nil {
				c.entries[i].ServerID = serverID
			}
			return
		}
	}
}

func (c *Controller) setEntrySessionLocked(localID, sessionID uuid.UUID) {
	for i := range c.entries {
		if c.entries[i].LocalID == localID {
			c.entries[i].SessionID = sessionID
			return
		}
	}
}

func (c *Controller) currentSessionFor(epoch uint64, fallback uuid.UUID) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch == epoch && c.current != uuid.Nil {
		return c.current
	}
	return fallback
}

func (c *Controller) publishAppended(ctx context.Context, m *entity.ChatMessage) {
	c.publish(ctx, constant.EventMessageAppended, map[string]interface{}{
		"session_id": m.ChatSessionId.String(),
		"message_id": m.Id.String(),
		"role":       m.Role,
	})
}

func (c *Controller) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.deps.Events == nil {
		return
	}
	err := c.deps.Events.Publish(ctx, events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	})
	if err != nil {
		c.deps.Logger.Warn(logModule, "Failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func confirmedEntry(m *entity.ChatMessage) Entry {
	return Entry{
		ServerID:  m.Id,
		LocalID:   m.Id,
		SessionID: m.ChatSessionId,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Status:    EntryConfirmed,
	}
}

// IsGuardError reports whether err is a Submit precondition failure.
func IsGuardError(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrSendInFlight) || errors.Is(err, ErrAuthMissing)
}
