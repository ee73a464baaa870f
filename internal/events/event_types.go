package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentReported EventType = "incident_reported"
	EventUpdateRequested  EventType = "update_requested"
)

// TypeFor maps a summary kind to the event announcing it.
func TypeFor(kind domain.SummaryKind) EventType {
	if kind == domain.SummaryUpdateRequest {
		return EventUpdateRequested
	}
	return EventIncidentReported
}

// Event represents an escalation emitted by the intake dialogue.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	TicketRef string         `json:"ticket_ref,omitempty"`
	Contact   string         `json:"contact"`
	Timestamp time.Time      `json:"timestamp"`
	Summary   domain.Summary `json:"summary"`
}

// NewEvent wraps a summary in an event stamped at now.
func NewEvent(summary domain.Summary, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      TypeFor(summary.Kind),
		TicketRef: summary.TicketRef,
		Contact:   summary.Contact,
		Timestamp: now.UTC(),
		Summary:   summary,
	}
}
