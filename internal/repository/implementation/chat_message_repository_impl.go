package implementation

import (
	"context"
	"time"

	"athena-be/internal/entity"
	"athena-be/internal/mapper"
	"athena-be/internal/model"
	"athena-be/internal/repository/contract"
	"athena-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.ChatMessage{}).Error
}

func (r *ChatMessageRepositoryImpl) DeleteByChatSessionIdUnscoped(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().Where("chat_session_id = ?", sessionId).Delete(&model.ChatMessage{})
	return res.RowsAffected, res.Error
}

func (r *ChatMessageRepositoryImpl) DeleteOrphansUnscoped(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("chat_session_id NOT IN (?)", r.liveSessionIds()).
		Delete(&model.ChatMessage{})
	return res.RowsAffected, res.Error
}

func (r *ChatMessageRepositoryImpl) CountOrphansUnscoped(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.ChatMessage{}).
		Where("chat_session_id NOT IN (?)", r.liveSessionIds()).
		Count(&count).Error
	return count, err
}

// liveSessionIds is a subquery over sessions that are not soft deleted.
func (r *ChatMessageRepositoryImpl) liveSessionIds() *gorm.DB {
	return r.db.Model(&model.ChatSession{}).Select("id").Where("deleted_at IS NULL")
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatMessagesToEntities(models), nil
}
