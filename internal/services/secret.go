package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/clients/openai"
	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/repos"
	"github.com/wsayer1/empathic-weave/internal/requestdata"
	"github.com/wsayer1/empathic-weave/internal/types"
)

// matchTopK is how many similar secrets a submission returns.
const matchTopK = 3

// SimilarSecret is the vector-stripped match payload.
type SimilarSecret struct {
	ID         uuid.UUID  `json:"id"`
	SecretText string     `json:"secret_text"`
	UserID     *uuid.UUID `json:"user_id"`
	CreatedAt  time.Time  `json:"created_at"`
	Similarity float64    `json:"similarity"`
}

type ProcessResult struct {
	Secret         *types.Secret   `json:"secret"`
	SimilarSecrets []SimilarSecret `json:"similar_secrets"`
}

type SecretService interface {
	// Process runs the whole submission pipeline: validate, embed, persist,
	// rank similar secrets. userID is nil for anonymous submissions.
	Process(ctx context.Context, secretText string, userID *uuid.UUID) (*ProcessResult, error)
	ListMine(ctx context.Context) ([]*types.Secret, error)
	// Claim attributes an anonymous secret to the authenticated caller.
	// Idempotent: re-claiming a secret the caller already owns is a no-op.
	Claim(ctx context.Context, secretID uuid.UUID) (*types.Secret, error)
	Delete(ctx context.Context, secretID uuid.UUID) error
}

type secretService struct {
	db         *gorm.DB
	log        *logger.Logger
	secretRepo repos.SecretRepo
	oracle     openai.Client
	matcher    Matcher
}

func NewSecretService(db *gorm.DB, log *logger.Logger, secretRepo repos.SecretRepo, oracle openai.Client, matcher Matcher) SecretService {
	serviceLog := log.With("service", "SecretService")
	return &secretService{
		db:         db,
		log:        serviceLog,
		secretRepo: secretRepo,
		oracle:     oracle,
		matcher:    matcher,
	}
}

func (ss *secretService) Process(ctx context.Context, secretText string, userID *uuid.UUID) (*ProcessResult, error) {
	secretText = strings.TrimSpace(secretText)
	if secretText == "" {
		return nil, fmt.Errorf("secret text is required")
	}
	if utf8.RuneCountInString(secretText) > types.MaxSecretTextLength {
		return nil, fmt.Errorf("secret text exceeds %d characters", types.MaxSecretTextLength)
	}

	// Embedding first: a failed oracle call must leave nothing persisted.
	vec, err := ss.oracle.EmbedOne(ctx, secretText)
	if err != nil {
		ss.log.Error("Embedding generation failed", "error", err)
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vec) != types.EmbeddingDim {
		return nil, fmt.Errorf("embedding has unexpected length %d, want %d", len(vec), types.EmbeddingDim)
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding: %w", err)
	}

	secret := &types.Secret{
		ID:         uuid.New(),
		SecretText: secretText,
		UserID:     userID,
		Embedding:  datatypes.JSON(raw),
	}
	if _, err := ss.secretRepo.Create(ctx, nil, []*types.Secret{secret}); err != nil {
		ss.log.Error("Failed to save secret", "error", err)
		return nil, fmt.Errorf("failed to save secret: %w", err)
	}

	result := &ProcessResult{
		Secret:         secret,
		SimilarSecrets: []SimilarSecret{},
	}

	// The similarity query is read-only; if it fails the submission still
	// succeeded, so degrade to an empty match list instead of erroring.
	candidates, err := ss.secretRepo.ListCandidates(ctx, nil, secret.ID, userID)
	if err != nil {
		ss.log.Warn("Candidate fetch failed; returning no matches", "secret_id", secret.ID, "error", err)
		return result, nil
	}

	ranked := ss.matcher.Rank(vec, candidates, matchTopK)
	for _, sc := range ranked {
		result.SimilarSecrets = append(result.SimilarSecrets, SimilarSecret{
			ID:         sc.Secret.ID,
			SecretText: sc.Secret.SecretText,
			UserID:     sc.Secret.UserID,
			CreatedAt:  sc.Secret.CreatedAt,
			Similarity: sc.Similarity,
		})
	}

	ss.log.Info("Secret processed", "secret_id", secret.ID, "candidates", len(candidates), "matches", len(result.SimilarSecrets))
	return result, nil
}

func (ss *secretService) ListMine(ctx context.Context) ([]*types.Secret, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	return ss.secretRepo.ListByUserID(ctx, nil, rd.UserID)
}

func (ss *secretService) Claim(ctx context.Context, secretID uuid.UUID) (*types.Secret, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}

	rows, err := ss.secretRepo.ClaimOwner(ctx, nil, secretID, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim secret: %w", err)
	}

	secret, err := ss.secretRepo.GetByID(ctx, nil, secretID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch secret: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret not found")
	}
	if rows == 0 {
		if secret.UserID == nil || *secret.UserID != rd.UserID {
			return nil, fmt.Errorf("secret already belongs to another user")
		}
		// Already claimed by the caller; nothing to do.
	}
	return secret, nil
}

func (ss *secretService) Delete(ctx context.Context, secretID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("not authenticated")
	}

	secret, err := ss.secretRepo.GetByID(ctx, nil, secretID)
	if err != nil {
		return fmt.Errorf("failed to fetch secret: %w", err)
	}
	if secret == nil {
		return fmt.Errorf("secret not found")
	}
	if secret.UserID == nil || *secret.UserID != rd.UserID {
		return fmt.Errorf("user does not own the specified secret")
	}

	// Matches referencing the secret and their messages go with it (FK cascade).
	if err := ss.secretRepo.FullDeleteByID(ctx, nil, secretID); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	ss.log.Info("Secret deleted", "secret_id", secretID, "user_id", rd.UserID)
	return nil
}
