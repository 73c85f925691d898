package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error)
	ListByMatchID(ctx context.Context, tx *gorm.DB, matchID uuid.UUID) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "MessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (mr *messageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	if len(messages) == 0 {
		return []*types.Message{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

func (mr *messageRepo) ListByMatchID(ctx context.Context, tx *gorm.DB, matchID uuid.UUID) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.Message
	if err := transaction.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
