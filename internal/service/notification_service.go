package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
)

// NotificationService turns intake summaries into events and fans them
// out to the support team's channels.
type NotificationService struct {
	dispatcher events.Dispatcher
	handlers   []events.EventHandler
	clock      clock.Clock
	logger     *zap.Logger
}

// NewNotificationService creates the service. Each handler receives every
// incident and update request, in order.
func NewNotificationService(dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger, handlers ...events.EventHandler) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		handlers:   handlers,
		clock:      clk,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{events.EventIncidentReported, events.EventUpdateRequested} {
		n.dispatcher.Subscribe(eventType, n.logEvent)
		for _, handler := range n.handlers {
			n.dispatcher.Subscribe(eventType, handler)
		}
	}
}

// Notify publishes the summary. Handler failures are returned for the
// caller to log; they never undo the ticket that was already stored.
func (n *NotificationService) Notify(ctx context.Context, summary domain.Summary) error {
	if n.dispatcher == nil {
		return nil
	}
	event := events.NewEvent(summary, n.clock.Now())
	if err := n.dispatcher.Publish(ctx, event); err != nil {
		return fmt.Errorf("notify %s: %w", event.Type, err)
	}
	return nil
}

func (n *NotificationService) logEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("contact", event.Contact),
		zap.String("ticket", event.TicketRef),
	)
	return nil
}
