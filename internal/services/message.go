package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/repos"
	"github.com/wsayer1/empathic-weave/internal/requestdata"
	"github.com/wsayer1/empathic-weave/internal/types"
)

type MessageService interface {
	Send(ctx context.Context, matchID uuid.UUID, content string) (*types.Message, error)
	List(ctx context.Context, matchID uuid.UUID) ([]*types.Message, error)
}

type messageService struct {
	db          *gorm.DB
	log         *logger.Logger
	messageRepo repos.MessageRepo
	matches     MatchService
	notifier    Notifier
}

func NewMessageService(db *gorm.DB, log *logger.Logger, messageRepo repos.MessageRepo, matches MatchService, notifier Notifier) MessageService {
	serviceLog := log.With("service", "MessageService")
	return &messageService{
		db:          db,
		log:         serviceLog,
		messageRepo: messageRepo,
		matches:     matches,
		notifier:    notifier,
	}
}

func (ms *messageService) Send(ctx context.Context, matchID uuid.UUID, content string) (*types.Message, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}

	match, err := ms.matches.GetForParticipant(ctx, matchID)
	if err != nil {
		return nil, err
	}

	message := &types.Message{
		ID:       uuid.New(),
		MatchID:  match.ID,
		SenderID: rd.UserID,
		Content:  content,
	}
	if _, err := ms.messageRepo.Create(ctx, nil, []*types.Message{message}); err != nil {
		ms.log.Error("Failed to create message", "match_id", matchID, "error", err)
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if ms.notifier != nil {
		ms.notifier.MessageCreated(ctx, match, message)
	}
	return message, nil
}

func (ms *messageService) List(ctx context.Context, matchID uuid.UUID) ([]*types.Message, error) {
	match, err := ms.matches.GetForParticipant(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return ms.messageRepo.ListByMatchID(ctx, nil, match.ID)
}
