// Package notify delivers intake summaries to the support team.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
)

// Relay posts summaries into the support team's own conversation on the
// messaging channel.
type Relay struct {
	channel     domain.Channel
	destination string
	logger      *zap.Logger
}

// NewRelay creates a relay targeting destination.
func NewRelay(ch domain.Channel, destination string, logger *zap.Logger) *Relay {
	return &Relay{channel: ch, destination: destination, logger: logger}
}

// Deliver opens the destination, sends the summary as one multi-line
// message and closes it again. The destination is closed even when the
// send fails.
func (r *Relay) Deliver(ctx context.Context, summary domain.Summary) error {
	if err := r.channel.OpenConversation(ctx, r.destination); err != nil {
		return fmt.Errorf("open support conversation %q: %w", r.destination, err)
	}
	sendErr := r.channel.SendLines(ctx, summary.Lines())
	if err := r.channel.CloseConversation(ctx); err != nil {
		r.logger.Warn("close support conversation failed", zap.Error(err))
	}
	if sendErr != nil {
		return fmt.Errorf("send summary: %w", sendErr)
	}
	r.logger.Info("support team notified",
		zap.String("destination", r.destination),
		zap.String("kind", string(summary.Kind)),
		zap.String("ticket", summary.TicketRef),
	)
	return nil
}

// Handle adapts Deliver to an events.EventHandler.
func (r *Relay) Handle(ctx context.Context, event events.Event) error {
	return r.Deliver(ctx, event.Summary)
}
