package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"athena-be/internal/constant"
	"athena-be/internal/entity"
	"athena-be/pkg/athena/generation"
	"athena-be/pkg/athena/registry"
	"athena-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu        sync.Mutex
	sessions  []*entity.ChatSession
	messages  []*entity.ChatMessage
	createErr error
	appendErr map[string]error
	listErr   error
	deleteErr error
	clock     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{appendErr: map[string]error{}, clock: time.Now()}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

func (f *fakeStore) ListSessions(_ context.Context, owner uuid.UUID) ([]*entity.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*entity.ChatSession
	for _, s := range f.sessions {
		if s.UserId == owner {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) FindSession(_ context.Context, owner, id uuid.UUID) (*entity.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Id == id && s.UserId == owner {
			return s, nil
		}
	}
	return nil, errors.New("session not found")
}

func (f *fakeStore) CreateSession(_ context.Context, owner uuid.UUID, title string) (*entity.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	s := &entity.ChatSession{Id: uuid.New(), UserId: owner, Title: title, CreatedAt: f.tick()}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, owner, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ChatSessionId != id {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	for i, s := range f.sessions {
		if s.Id == id && s.UserId == owner {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return errors.New("session not found")
}

func (f *fakeStore) ListMessages(_ context.Context, sessionID uuid.UUID) ([]*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ChatMessage
	for _, m := range f.messages {
		if m.ChatSessionId == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, sessionID uuid.UUID, role, content string) (*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.appendErr[role]; err != nil {
		return nil, err
	}
	m := &entity.ChatMessage{Id: uuid.New(), ChatSessionId: sessionID, Role: role, Content: content, CreatedAt: f.tick()}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeStore) count(role string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.Role == role {
			n++
		}
	}
	return n
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	models  []string
	queries []string
	entered chan struct{}
	release chan struct{}
}

func (g *fakeGenerator) Generate(_ context.Context, modelID, _, query string) (string, error) {
	g.mu.Lock()
	g.models = append(g.models, modelID)
	g.queries = append(g.queries, query)
	g.mu.Unlock()
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	return g.reply, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queries)
}

type fixture struct {
	store     *fakeStore
	gen       *fakeGenerator
	selection *registry.Selection
	events    *events.Recorder
	ctrl      *Controller
}

func newFixture(owner uuid.UUID) *fixture {
	f := &fixture{
		store:     newFakeStore(),
		gen:       &fakeGenerator{reply: "Big-O describes how cost grows with input size."},
		selection: registry.NewSelection("gemini-pro"),
		events:    events.NewRecorder(32),
	}
	f.ctrl = NewController(Dependencies{
		Sessions:  f.store,
		Messages:  f.store,
		Generator: f.gen,
		Models:    f.selection,
		Events:    f.events,
	}, owner)
	return f
}

func TestSubmit_FirstMessageCreatesSession(t *testing.T) {
	f := newFixture(uuid.New())
	f.selection.Assign("gemini-flash-8b")
	ctx := context.Background()

	f.ctrl.Compose("Explain Big-O notation")
	require.NoError(t, f.ctrl.Submit(ctx))

	require.Len(t, f.store.sessions, 1)
	session := f.store.sessions[0]
	assert.Equal(t, "Explain Big-O notation", session.Title)

	msgs, _ := f.store.ListMessages(ctx, session.Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "Explain Big-O notation", msgs[0].Content)
	assert.Equal(t, constant.ChatMessageRoleModel, msgs[1].Role)
	assert.Equal(t, f.gen.reply, msgs[1].Content)

	view := f.ctrl.Snapshot()
	require.NotNil(t, view.SessionID)
	assert.Equal(t, session.Id, *view.SessionID)
	assert.Equal(t, StateIdle, view.State)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, EntryConfirmed, view.Entries[0].Status)
	assert.Equal(t, msgs[0].Id, view.Entries[0].ServerID)
	assert.NotEqual(t, msgs[0].Id, view.Entries[0].LocalID)
	assert.Equal(t, EntryConfirmed, view.Entries[1].Status)
	require.Len(t, view.Sessions, 1)

	assert.Equal(t, []string{"gemini-flash-8b"}, f.gen.models)

	var types []string
	for _, e := range f.events.Drain() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{
		constant.EventSessionCreated,
		constant.EventMessageAppended,
		constant.EventMessageAppended,
	}, types)
}

func TestSubmit_LongFirstMessageTitleTruncated(t *testing.T) {
	f := newFixture(uuid.New())
	f.ctrl.Compose("Summarise chapter four of the operating systems syllabus please")
	require.NoError(t, f.ctrl.Submit(context.Background()))

	assert.Equal(t, "Summarise chapter four of the operating ...", f.store.sessions[0].Title)
}

func TestSubmit_TrimsDraftEverywhere(t *testing.T) {
	f := newFixture(uuid.New())
	ctx := context.Background()

	f.ctrl.Compose("  Explain Big-O notation\n")
	require.NoError(t, f.ctrl.Submit(ctx))

	msgs, _ := f.store.ListMessages(ctx, f.store.sessions[0].Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Explain Big-O notation", msgs[0].Content)
	assert.Equal(t, []string{"Explain Big-O notation"}, f.gen.queries)
	assert.Equal(t, "Explain Big-O notation", f.ctrl.Snapshot().Entries[0].Content)
}

func TestSubmit_RateLimitedPersistsFormattedError(t *testing.T) {
	f := newFixture(uuid.New())
	f.gen.err = &generation.GenerationError{Kind: generation.KindStatus, Status: 429, Message: "rate limited"}
	ctx := context.Background()

	f.ctrl.Compose("Explain Big-O notation")
	require.NoError(t, f.ctrl.Submit(ctx))

	msgs, _ := f.store.ListMessages(ctx, f.store.sessions[0].Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, "⚠️ Error: rate limited", msgs[1].Content)
	assert.Equal(t, 1, f.gen.calls())

	view := f.ctrl.Snapshot()
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "⚠️ Error: rate limited", view.Entries[1].Content)
	assert.Equal(t, EntryConfirmed, view.Entries[1].Status)
}

func TestSubmit_EmptyInputIsNoOp(t *testing.T) {
	f := newFixture(uuid.New())

	for _, input := range []string{"", "   ", "\n\t"} {
		f.ctrl.Compose(input)
		assert.ErrorIs(t, f.ctrl.Submit(context.Background()), ErrEmptyInput)
	}

	assert.Empty(t, f.store.sessions)
	assert.Empty(t, f.store.messages)
	assert.Zero(t, f.gen.calls())
	assert.Empty(t, f.ctrl.Snapshot().Entries)
}

func TestSubmit_NoOwnerIsNoOp(t *testing.T) {
	f := newFixture(uuid.Nil)

	f.ctrl.Compose("hello")
	assert.ErrorIs(t, f.ctrl.Submit(context.Background()), ErrAuthMissing)
	assert.Empty(t, f.store.sessions)
	assert.Zero(t, f.gen.calls())
}

func TestSubmit_RejectedWhileInFlight(t *testing.T) {
	f := newFixture(uuid.New())
	f.gen.entered = make(chan struct{}, 1)
	f.gen.release = make(chan struct{})
	ctx := context.Background()

	f.ctrl.Compose("first")
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Submit(ctx) }()
	<-f.gen.entered

	f.ctrl.Compose("second")
	assert.ErrorIs(t, f.ctrl.Submit(ctx), ErrSendInFlight)
	assert.Equal(t, StateSending, f.ctrl.Snapshot().State)

	close(f.gen.release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, f.gen.calls())
	view := f.ctrl.Snapshot()
	assert.Equal(t, StateComposing, view.State)
	assert.Equal(t, "second", view.Draft)
}

func TestSubmitText_InFlightKeepsTextOfFirstSend(t *testing.T) {
	f := newFixture(uuid.New())
	f.gen.entered = make(chan struct{}, 1)
	f.gen.release = make(chan struct{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.ctrl.SubmitText(ctx, "first") }()
	<-f.gen.entered

	assert.ErrorIs(t, f.ctrl.SubmitText(ctx, "second"), ErrSendInFlight)
	assert.Empty(t, f.ctrl.Snapshot().Draft)

	close(f.gen.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"first"}, f.gen.queries)
	msgs, _ := f.store.ListMessages(ctx, f.store.sessions[0].Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, StateIdle, f.ctrl.Snapshot().State)
}

func TestSubmitText_EmptyLeavesComposedDraft(t *testing.T) {
	f := newFixture(uuid.New())

	assert.ErrorIs(t, f.ctrl.SubmitText(context.Background(), "   "), ErrEmptyInput)

	view := f.ctrl.Snapshot()
	assert.Equal(t, "   ", view.Draft)
	assert.Equal(t, StateIdle, view.State)
	assert.Zero(t, f.gen.calls())
}

func TestSubmit_FallbackModelWhenDiscoveryFoundNothing(t *testing.T) {
	f := newFixture(uuid.New())

	f.ctrl.Compose("hello")
	require.NoError(t, f.ctrl.Submit(context.Background()))

	assert.Equal(t, []string{"gemini-pro"}, f.gen.models)
}

func TestSubmit_CreateSessionFailureIsEphemeral(t *testing.T) {
	f := newFixture(uuid.New())
	f.store.createErr = errStoreDown

	f.ctrl.Compose("hello")
	require.NoError(t, f.ctrl.Submit(context.Background()))

	assert.Zero(t, f.gen.calls())
	assert.Empty(t, f.store.messages)

	view := f.ctrl.Snapshot()
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "hello", view.Entries[0].Content)
	assert.Equal(t, EntryFailed, view.Entries[0].Status)
	assert.Equal(t, EntryEphemeral, view.Entries[1].Status)
	assert.Equal(t, constant.ChatMessageRoleModel, view.Entries[1].Role)
	assert.Contains(t, view.Entries[1].Content, "store down")
	assert.Equal(t, StateIdle, view.State)
}

func TestSubmit_UserPersistFailureKeepsOptimisticEntry(t *testing.T) {
	f := newFixture(uuid.New())
	f.store.appendErr[constant.ChatMessageRoleUser] = errStoreDown

	f.ctrl.Compose("hello")
	require.NoError(t, f.ctrl.Submit(context.Background()))

	assert.Zero(t, f.gen.calls())
	view := f.ctrl.Snapshot()
	require.Len(t, view.Entries, 2)
	assert.Equal(t, EntryFailed, view.Entries[0].Status)
	assert.Equal(t, EntryEphemeral, view.Entries[1].Status)
}

func TestSubmit_ModelPersistFailureStillShowsAnswer(t *testing.T) {
	f := newFixture(uuid.New())
	f.store.appendErr[constant.ChatMessageRoleModel] = errStoreDown

	f.ctrl.Compose("hello")
	require.NoError(t, f.ctrl.Submit(context.Background()))

	view := f.ctrl.Snapshot()
	require.Len(t, view.Entries, 2)
	assert.Equal(t, f.gen.reply, view.Entries[1].Content)
	assert.Equal(t, EntryFailed, view.Entries[1].Status)
}

func TestSubmit_ResultsDroppedAfterViewSwitch(t *testing.T) {
	f := newFixture(uuid.New())
	f.gen.entered = make(chan struct{}, 1)
	f.gen.release = make(chan struct{})
	ctx := context.Background()

	f.ctrl.Compose("first")
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Submit(ctx) }()
	<-f.gen.entered

	f.ctrl.NewConversation()
	close(f.gen.release)
	require.NoError(t, <-done)

	view := f.ctrl.Snapshot()
	assert.Nil(t, view.SessionID)
	assert.Empty(t, view.Entries)
	// persisted regardless of what the view shows
	assert.Equal(t, 1, f.store.count(constant.ChatMessageRoleModel))
}

func TestSelectSession_ReplacesEntries(t *testing.T) {
	owner := uuid.New()
	f := newFixture(owner)
	ctx := context.Background()

	f.ctrl.Compose("first conversation")
	require.NoError(t, f.ctrl.Submit(ctx))
	first := f.store.sessions[0].Id

	f.ctrl.NewConversation()
	assert.Empty(t, f.ctrl.Snapshot().Entries)
	f.ctrl.Compose("second conversation")
	require.NoError(t, f.ctrl.Submit(ctx))

	require.NoError(t, f.ctrl.SelectSession(ctx, first))
	view := f.ctrl.Snapshot()
	require.NotNil(t, view.SessionID)
	assert.Equal(t, first, *view.SessionID)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "first conversation", view.Entries[0].Content)
}

func TestSelectSession_ForeignSessionRejected(t *testing.T) {
	f := newFixture(uuid.New())
	foreign, _ := f.store.CreateSession(context.Background(), uuid.New(), "not mine")

	assert.Error(t, f.ctrl.SelectSession(context.Background(), foreign.Id))
	assert.Nil(t, f.ctrl.Snapshot().SessionID)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(uuid.New())
	ctx := context.Background()

	f.ctrl.Compose("hello")
	require.NoError(t, f.ctrl.Submit(ctx))
	id := f.store.sessions[0].Id

	assert.ErrorIs(t, f.ctrl.DeleteSession(ctx, id, false), ErrNotConfirmed)
	require.Len(t, f.store.sessions, 1)

	require.NoError(t, f.ctrl.DeleteSession(ctx, id, true))
	msgs, _ := f.store.ListMessages(ctx, id)
	assert.Empty(t, msgs)

	view := f.ctrl.Snapshot()
	assert.Nil(t, view.SessionID)
	assert.Empty(t, view.Entries)
	assert.Empty(t, view.Sessions)
	assert.Equal(t, StateIdle, view.State)
}

func TestDeleteSession_OtherSessionLeavesViewUntouched(t *testing.T) {
	owner := uuid.New()
	f := newFixture(owner)
	ctx := context.Background()
	other, _ := f.store.CreateSession(ctx, owner, "other")

	f.ctrl.Compose("hello")
	require.NoError(t, f.ctrl.Submit(ctx))

	require.NoError(t, f.ctrl.DeleteSession(ctx, other.Id, true))
	view := f.ctrl.Snapshot()
	require.NotNil(t, view.SessionID)
	assert.Len(t, view.Entries, 2)
	assert.Len(t, view.Sessions, 1)
}

func TestDeleteSession_FailureStillRefreshes(t *testing.T) {
	owner := uuid.New()
	f := newFixture(owner)
	ctx := context.Background()
	s, _ := f.store.CreateSession(ctx, owner, "keep")
	f.store.deleteErr = errStoreDown

	assert.ErrorIs(t, f.ctrl.DeleteSession(ctx, s.Id, true), errStoreDown)
	assert.Len(t, f.ctrl.Snapshot().Sessions, 1)
}

func TestRefreshSessions_FailureYieldsEmptyListing(t *testing.T) {
	f := newFixture(uuid.New())
	f.store.listErr = errStoreDown

	assert.Empty(t, f.ctrl.RefreshSessions(context.Background()))
}

func TestCompose_StateTransitions(t *testing.T) {
	f := newFixture(uuid.New())

	assert.Equal(t, StateIdle, f.ctrl.Snapshot().State)
	f.ctrl.Compose("typing")
	assert.Equal(t, StateComposing, f.ctrl.Snapshot().State)
	f.ctrl.Compose("")
	assert.Equal(t, StateIdle, f.ctrl.Snapshot().State)
}
