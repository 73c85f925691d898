package services

import (
	"context"

	"github.com/wsayer1/empathic-weave/internal/clients/redis"
	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/sse"
	"github.com/wsayer1/empathic-weave/internal/types"
)

// Notifier pushes domain events onto the live channels. Events go through
// the Redis bus when one is configured so every replica's hub sees them;
// otherwise they are broadcast to the local hub only.
type Notifier interface {
	MatchCreated(ctx context.Context, match *types.Match)
	MessageCreated(ctx context.Context, match *types.Match, message *types.Message)
}

type notifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus redis.SSEBus
}

func NewNotifier(log *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) Notifier {
	return &notifier{
		log: log.With("service", "Notifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *notifier) MatchCreated(ctx context.Context, match *types.Match) {
	if match == nil {
		return
	}
	for _, userID := range []string{match.User1ID.String(), match.User2ID.String()} {
		n.emit(ctx, sse.SSEMessage{
			Channel: userID,
			Event:   sse.SSEEventMatchCreated,
			Data:    match,
		})
	}
}

func (n *notifier) MessageCreated(ctx context.Context, match *types.Match, message *types.Message) {
	if match == nil || message == nil {
		return
	}
	for _, userID := range []string{match.User1ID.String(), match.User2ID.String()} {
		n.emit(ctx, sse.SSEMessage{
			Channel: userID,
			Event:   sse.SSEEventMessageCreated,
			Data:    message,
		})
	}
}

func (n *notifier) emit(ctx context.Context, msg sse.SSEMessage) {
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("Bus publish failed; falling back to local hub", "channel", msg.Channel, "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}
