package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/types"
)

type SecretRepo interface {
	Create(ctx context.Context, tx *gorm.DB, secrets []*types.Secret) ([]*types.Secret, error)
	GetByID(ctx context.Context, tx *gorm.DB, secretID uuid.UUID) (*types.Secret, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Secret, error)
	// ListCandidates returns the similarity candidate pool for a freshly
	// created secret: every other secret, minus the requester's own secrets
	// and all anonymous secrets when the requester is identified (anonymous
	// authors cannot be messaged, so they are not matchable).
	ListCandidates(ctx context.Context, tx *gorm.DB, excludeSecretID uuid.UUID, requesterID *uuid.UUID) ([]*types.Secret, error)
	ClaimOwner(ctx context.Context, tx *gorm.DB, secretID uuid.UUID, userID uuid.UUID) (int64, error)
	FullDeleteByID(ctx context.Context, tx *gorm.DB, secretID uuid.UUID) error
}

type secretRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSecretRepo(db *gorm.DB, baseLog *logger.Logger) SecretRepo {
	repoLog := baseLog.With("repo", "SecretRepo")
	return &secretRepo{db: db, log: repoLog}
}

func (sr *secretRepo) Create(ctx context.Context, tx *gorm.DB, secrets []*types.Secret) ([]*types.Secret, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(secrets) == 0 {
		return []*types.Secret{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&secrets).Error; err != nil {
		return nil, err
	}

	return secrets, nil
}

func (sr *secretRepo) GetByID(ctx context.Context, tx *gorm.DB, secretID uuid.UUID) (*types.Secret, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Secret
	err := transaction.WithContext(ctx).
		Where("id = ?", secretID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *secretRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Secret, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Secret
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *secretRepo) ListCandidates(ctx context.Context, tx *gorm.DB, excludeSecretID uuid.UUID, requesterID *uuid.UUID) ([]*types.Secret, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	query := transaction.WithContext(ctx).
		Where("id <> ?", excludeSecretID)
	if requesterID != nil {
		query = query.
			Where("user_id IS NOT NULL").
			Where("user_id <> ?", *requesterID)
	}

	var results []*types.Secret
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *secretRepo) ClaimOwner(ctx context.Context, tx *gorm.DB, secretID uuid.UUID, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	// Single atomic transition: only an ownerless row can be claimed.
	res := transaction.WithContext(ctx).
		Model(&types.Secret{}).
		Where("id = ? AND user_id IS NULL", secretID).
		Update("user_id", userID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *secretRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, secretID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Where("id = ?", secretID).
		Delete(&types.Secret{}).Error
}
