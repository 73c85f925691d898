package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/repos"
	"github.com/wsayer1/empathic-weave/internal/requestdata"
	"github.com/wsayer1/empathic-weave/internal/types"
)

type CreateMatchResult struct {
	Match         *types.Match
	AlreadyExists bool
}

type MatchService interface {
	// Create idempotently establishes a match between the caller's secret and
	// a target secret. The unordered secret pair is unique at the storage
	// layer; a duplicate-key insert is resolved to the existing match.
	Create(ctx context.Context, userSecretID, targetSecretID uuid.UUID) (*CreateMatchResult, error)
	ListMine(ctx context.Context) ([]*types.Match, error)
	GetForParticipant(ctx context.Context, matchID uuid.UUID) (*types.Match, error)
}

type matchService struct {
	db         *gorm.DB
	log        *logger.Logger
	matchRepo  repos.MatchRepo
	secretRepo repos.SecretRepo
	secrets    SecretService
	notifier   Notifier
}

func NewMatchService(db *gorm.DB, log *logger.Logger, matchRepo repos.MatchRepo, secretRepo repos.SecretRepo, secrets SecretService, notifier Notifier) MatchService {
	serviceLog := log.With("service", "MatchService")
	return &matchService{
		db:         db,
		log:        serviceLog,
		matchRepo:  matchRepo,
		secretRepo: secretRepo,
		secrets:    secrets,
		notifier:   notifier,
	}
}

func (ms *matchService) Create(ctx context.Context, userSecretID, targetSecretID uuid.UUID) (*CreateMatchResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	if userSecretID == uuid.Nil || targetSecretID == uuid.Nil {
		return nil, fmt.Errorf("missing required parameters: user_secret_id and target_secret_id")
	}
	if userSecretID == targetSecretID {
		return nil, fmt.Errorf("cannot match a secret with itself")
	}

	userSecret, err := ms.secretRepo.GetByID(ctx, nil, userSecretID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user secret: %w", err)
	}
	if userSecret == nil {
		return nil, fmt.Errorf("user secret not found")
	}

	// An anonymous caller secret is claimed explicitly before the insert, so
	// the broker below can assume both secrets are owned.
	if userSecret.UserID == nil {
		claimed, cErr := ms.secrets.Claim(ctx, userSecretID)
		if cErr != nil {
			return nil, cErr
		}
		userSecret = claimed
	}
	if userSecret.UserID == nil || *userSecret.UserID != rd.UserID {
		return nil, fmt.Errorf("user does not own the specified secret")
	}

	targetSecret, err := ms.secretRepo.GetByID(ctx, nil, targetSecretID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target secret: %w", err)
	}
	if targetSecret == nil {
		return nil, fmt.Errorf("target secret not found")
	}
	if targetSecret.UserID == nil {
		return nil, fmt.Errorf("target secret has no associated user")
	}

	match := &types.Match{
		ID:        uuid.New(),
		Secret1ID: userSecret.ID,
		Secret2ID: targetSecret.ID,
		User1ID:   *userSecret.UserID,
		User2ID:   *targetSecret.UserID,
		Status:    types.MatchStatusAccepted,
	}

	created, err := ms.matchRepo.Create(ctx, nil, match)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, gErr := ms.matchRepo.GetByPair(ctx, nil, userSecretID, targetSecretID)
		if gErr != nil {
			return nil, fmt.Errorf("failed to load existing match: %w", gErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("match conflict but existing match not found")
		}
		ms.log.Info("Match already exists", "match_id", existing.ID)
		return &CreateMatchResult{Match: existing, AlreadyExists: true}, nil
	}
	if err != nil {
		ms.log.Error("Failed to create match", "error", err)
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	ms.log.Info("Match created", "match_id", created.ID, "user1_id", created.User1ID, "user2_id", created.User2ID)
	if ms.notifier != nil {
		ms.notifier.MatchCreated(ctx, created)
	}
	return &CreateMatchResult{Match: created}, nil
}

func (ms *matchService) ListMine(ctx context.Context) ([]*types.Match, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	return ms.matchRepo.ListByUserID(ctx, nil, rd.UserID)
}

func (ms *matchService) GetForParticipant(ctx context.Context, matchID uuid.UUID) (*types.Match, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	match, err := ms.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("match not found")
	}
	if match.User1ID != rd.UserID && match.User2ID != rd.UserID {
		return nil, fmt.Errorf("user is not a participant of this match")
	}
	return match, nil
}
