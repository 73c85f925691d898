package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/types"
)

type fakeMessageRepo struct {
	messages []*types.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error) {
	f.messages = append(f.messages, messages...)
	return messages, nil
}

func (f *fakeMessageRepo) ListByMatchID(ctx context.Context, tx *gorm.DB, matchID uuid.UUID) ([]*types.Message, error) {
	var out []*types.Message
	for _, m := range f.messages {
		if m.MatchID == matchID {
			out = append(out, m)
		}
	}
	return out, nil
}

type messageFixture struct {
	svc         MessageService
	messageRepo *fakeMessageRepo
	notifier    *fakeNotifier
	match       *types.Match
	user1       uuid.UUID
	user2       uuid.UUID
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	user1 := uuid.New()
	user2 := uuid.New()
	matchRepo := newFakeMatchRepo()
	match := &types.Match{
		ID:        uuid.New(),
		Secret1ID: uuid.New(),
		Secret2ID: uuid.New(),
		User1ID:   user1,
		User2ID:   user2,
		Status:    types.MatchStatusAccepted,
	}
	matchRepo.matches[match.ID] = match

	secretRepo := newFakeSecretRepo()
	notifier := &fakeNotifier{}
	secrets := NewSecretService(nil, log, secretRepo, &fakeOracle{vec: testVector(0.5)}, NewLinearMatcher(log))
	matches := NewMatchService(nil, log, matchRepo, secretRepo, secrets, notifier)
	messageRepo := &fakeMessageRepo{}
	return &messageFixture{
		svc:         NewMessageService(nil, log, messageRepo, matches, notifier),
		messageRepo: messageRepo,
		notifier:    notifier,
		match:       match,
		user1:       user1,
		user2:       user2,
	}
}

func TestSendRequiresAuth(t *testing.T) {
	fx := newMessageFixture(t)
	if _, err := fx.svc.Send(context.Background(), fx.match.ID, "hi"); err == nil {
		t.Fatalf("expected error without authenticated caller")
	}
}

func TestSendRejectsEmptyContent(t *testing.T) {
	fx := newMessageFixture(t)
	if _, err := fx.svc.Send(authedCtx(fx.user1), fx.match.ID, "   "); err == nil {
		t.Fatalf("expected error for blank message content")
	}
	if len(fx.messageRepo.messages) != 0 {
		t.Fatalf("blank message persisted")
	}
}

func TestSendRejectsNonParticipant(t *testing.T) {
	fx := newMessageFixture(t)
	if _, err := fx.svc.Send(authedCtx(uuid.New()), fx.match.ID, "hi"); err == nil {
		t.Fatalf("expected error for a non-participant sender")
	}
}

func TestSendPersistsAndNotifies(t *testing.T) {
	fx := newMessageFixture(t)

	msg, err := fx.svc.Send(authedCtx(fx.user2), fx.match.ID, "  we should talk  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Content != "we should talk" {
		t.Fatalf("content=%q, want trimmed text", msg.Content)
	}
	if msg.SenderID != fx.user2 || msg.MatchID != fx.match.ID {
		t.Fatalf("message attribution wrong: sender=%v match=%v", msg.SenderID, msg.MatchID)
	}
	if len(fx.notifier.messageEvents) != 1 || fx.notifier.messageEvents[0].ID != msg.ID {
		t.Fatalf("notifier not invoked for the sent message")
	}
}

func TestListEnforcesMembership(t *testing.T) {
	fx := newMessageFixture(t)

	if _, err := fx.svc.Send(authedCtx(fx.user1), fx.match.ID, "first"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := fx.svc.Send(authedCtx(fx.user2), fx.match.ID, "second"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := fx.svc.List(authedCtx(fx.user1), fx.match.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("messages=%d, want 2", len(got))
	}

	if _, err := fx.svc.List(authedCtx(uuid.New()), fx.match.ID); err == nil {
		t.Fatalf("expected error listing messages as a non-participant")
	}
}
