package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/match-arena/live"
	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/notify"
	"golang.org/x/sync/errgroup"
)

const notifyConcurrency = 8

// Notifier fans match events out to every participant and to the live match
// room. Delivery is best-effort and always happens after the transaction that
// produced the event has committed; failures are logged, never propagated.
type Notifier struct {
	sink   notify.Sink
	hub    *live.Hub
	logger *slog.Logger
}

func NewNotifier(sink notify.Sink, hub *live.Hub, logger *slog.Logger) *Notifier {
	return &Notifier{sink: sink, hub: hub, logger: logger}
}

// NotifyMembers pushes one notification to each member concurrently.
func (n *Notifier) NotifyMembers(ctx context.Context, members []*models.TeamMember, title, body string, payload map[string]interface{}) {
	if n.sink == nil || len(members) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, member := range members {
		userID := member.UserID
		g.Go(func() error {
			if err := n.sink.Notify(gctx, userID, title, body, payload); err != nil {
				n.logger.WarnContext(gctx, "notification delivery failed",
					slog.Int("user_id", userID),
					slog.String("title", title),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Broadcast pushes an event to the websocket room of the match.
func (n *Notifier) Broadcast(matchID int, eventType string, payload interface{}) {
	if n.hub == nil {
		return
	}
	n.hub.BroadcastToRoom(matchRoom(matchID), live.Message{
		Type:    eventType,
		Payload: payload,
	})
}
