package domain

import "strings"

// Outcome is the terminal result of handling one conversation.
type Outcome string

const (
	OutcomeIgnored          Outcome = "ignored"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeAbandoned        Outcome = "abandoned"
	OutcomeRetriesExhausted Outcome = "retries_exhausted"
	OutcomeTicketCreated    Outcome = "ticket_created"
	OutcomeTicketFailed     Outcome = "ticket_failed"
	OutcomeNoOpenTickets    Outcome = "no_open_tickets"
	OutcomeLookupFailed     Outcome = "lookup_failed"
	OutcomeUpdateRequested  Outcome = "update_requested"
	OutcomeInterrupted      Outcome = "interrupted"
)

// SummaryKind tells the support team what the user asked for.
type SummaryKind string

const (
	SummaryIncident      SummaryKind = "incident"
	SummaryUpdateRequest SummaryKind = "update_request"
)

// Summary is the structured payload relayed to the support destination.
type Summary struct {
	Kind        SummaryKind
	Contact     string
	Category    Category
	Description string
	// TicketRef is empty when the store could not create the ticket.
	TicketRef string
}

// Lines renders the summary as the lines of a single support message.
func (s Summary) Lines() []string {
	if s.Kind == SummaryUpdateRequest {
		return []string{
			s.Contact + " has asked for an update on ticket " + s.TicketRef + ".",
			"Please check and assist them.",
		}
	}
	ticket := s.TicketRef
	if ticket == "" {
		ticket = "(not created)"
	}
	return []string{
		s.Contact + " is in need of help!",
		"Category: " + string(s.Category),
		"Description of issue: " + s.Description,
		"Ticket No: " + ticket,
		"Please send assistance.",
	}
}

// Text joins the summary lines with explicit line breaks.
func (s Summary) Text() string {
	return strings.Join(s.Lines(), "\n")
}
