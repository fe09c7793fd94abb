package implementation

import (
	"context"
	"testing"
	"time"

	"athena-be/internal/constant"
	"athena-be/internal/entity"
	"athena-be/internal/repository/specification"
	"athena-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestChatSessionRepository_FindAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewChatSessionRepository(newTestDB(t))
	owner := uuid.New()
	base := time.Now().Add(-time.Hour)

	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &entity.ChatSession{
			UserId:    owner,
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Another user's session must not leak into the listing
	require.NoError(t, repo.Create(ctx, &entity.ChatSession{UserId: uuid.New(), Title: "foreign"}))

	sessions, err := repo.FindAll(ctx,
		specification.UserOwnedBy{UserID: owner},
		specification.NewestFirst(),
	)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "third", sessions[0].Title)
	assert.Equal(t, "first", sessions[2].Title)
	for _, s := range sessions {
		assert.NotEqual(t, uuid.Nil, s.Id)
		assert.Equal(t, owner, s.UserId)
	}
}

func TestChatSessionRepository_DeleteMissing(t *testing.T) {
	repo := NewChatSessionRepository(newTestDB(t))

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatSessionRepository_DeleteUnscopedOnlyPurgesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewChatSessionRepository(db)

	live := &entity.ChatSession{UserId: uuid.New(), Title: "live"}
	gone := &entity.ChatSession{UserId: uuid.New(), Title: "gone"}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, gone))
	require.NoError(t, repo.Delete(ctx, gone.Id))

	require.NoError(t, repo.DeleteUnscoped(ctx, live.Id))
	require.NoError(t, repo.DeleteUnscoped(ctx, gone.Id))

	found, err := repo.FindOne(ctx, specification.ByID{ID: live.Id})
	require.NoError(t, err)
	assert.NotNil(t, found)

	var rows int64
	require.NoError(t, db.Unscoped().Table("chat_sessions").Where("id = ?", gone.Id).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestChatSessionRepository_FindOneReturnsNilWhenAbsent(t *testing.T) {
	repo := NewChatSessionRepository(newTestDB(t))

	found, err := repo.FindOne(context.Background(), specification.ByID{ID: uuid.New()})
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestChatMessageRepository_OldestFirstAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)
	messages := NewChatMessageRepository(db)

	session := &entity.ChatSession{UserId: uuid.New(), Title: "Big-O"}
	require.NoError(t, sessions.Create(ctx, session))

	base := time.Now()
	require.NoError(t, messages.Create(ctx, &entity.ChatMessage{
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleModel,
		Content:       "answer",
		CreatedAt:     base.Add(time.Millisecond),
	}))
	require.NoError(t, messages.Create(ctx, &entity.ChatMessage{
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleUser,
		Content:       "question",
		CreatedAt:     base,
	}))

	log, err := messages.FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OldestFirst(),
	)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "question", log[0].Content)
	assert.Equal(t, "answer", log[1].Content)

	require.NoError(t, messages.DeleteByChatSessionId(ctx, session.Id))
	visible, err := messages.FindAll(ctx, specification.ByChatSessionID{ChatSessionID: session.Id})
	require.NoError(t, err)
	assert.Empty(t, visible)

	// Soft-deleted rows are still there for the hard purge
	purged, err := messages.DeleteByChatSessionIdUnscoped(ctx, session.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)
}

func TestChatMessageRepository_DeleteOrphansUnscoped(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)
	messages := NewChatMessageRepository(db)

	live := &entity.ChatSession{UserId: uuid.New(), Title: "live"}
	gone := &entity.ChatSession{UserId: uuid.New(), Title: "gone"}
	require.NoError(t, sessions.Create(ctx, live))
	require.NoError(t, sessions.Create(ctx, gone))

	for _, s := range []*entity.ChatSession{live, gone} {
		require.NoError(t, messages.Create(ctx, &entity.ChatMessage{
			ChatSessionId: s.Id,
			Role:          constant.ChatMessageRoleUser,
			Content:       "hello",
		}))
	}
	require.NoError(t, sessions.Delete(ctx, gone.Id))

	orphans, err := messages.CountOrphansUnscoped(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, orphans)

	purged, err := messages.DeleteOrphansUnscoped(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	remaining, err := messages.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, live.Id, remaining[0].ChatSessionId)
}
