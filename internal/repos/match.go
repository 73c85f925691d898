package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/types"
)

type MatchRepo interface {
	// Create inserts a match after filling the canonical pair columns.
	// A gorm.ErrDuplicatedKey return means a match for the unordered pair
	// already exists.
	Create(ctx context.Context, tx *gorm.DB, match *types.Match) (*types.Match, error)
	GetByID(ctx context.Context, tx *gorm.DB, matchID uuid.UUID) (*types.Match, error)
	GetByPair(ctx context.Context, tx *gorm.DB, secretA, secretB uuid.UUID) (*types.Match, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Match, error)
}

type matchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMatchRepo(db *gorm.DB, baseLog *logger.Logger) MatchRepo {
	repoLog := baseLog.With("repo", "MatchRepo")
	return &matchRepo{db: db, log: repoLog}
}

func (mr *matchRepo) Create(ctx context.Context, tx *gorm.DB, match *types.Match) (*types.Match, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	if match == nil {
		return nil, errors.New("match required")
	}
	match.PairFirstID, match.PairSecondID = types.CanonicalPair(match.Secret1ID, match.Secret2ID)

	if err := transaction.WithContext(ctx).Create(match).Error; err != nil {
		return nil, err
	}
	return match, nil
}

func (mr *matchRepo) GetByID(ctx context.Context, tx *gorm.DB, matchID uuid.UUID) (*types.Match, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var result types.Match
	err := transaction.WithContext(ctx).
		Where("id = ?", matchID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (mr *matchRepo) GetByPair(ctx context.Context, tx *gorm.DB, secretA, secretB uuid.UUID) (*types.Match, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	first, second := types.CanonicalPair(secretA, secretB)

	var result types.Match
	err := transaction.WithContext(ctx).
		Where("pair_first_id = ? AND pair_second_id = ?", first, second).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (mr *matchRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Match, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.Match
	if err := transaction.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
