package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOngoing  TicketStatus = "Ongoing"
	TicketStatusResolved TicketStatus = "Resolved"
)

// Category classifies the reported problem.
type Category string

const (
	CategoryHardware        Category = "Hardware"
	CategoryNetwork         Category = "Network"
	CategoryAccountPassword Category = "Account/Password"
	CategorySoftware        Category = "Software"
	CategoryOthers          Category = "Others"
)

// Ticket is a persisted support request raised through the intake dialogue.
type Ticket struct {
	Number      int64
	Contact     string
	Category    Category
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
}

// Ref returns the user-facing identifier of the ticket, e.g. "#007".
func (t *Ticket) Ref() string {
	return FormatTicketRef(t.Number)
}

// FormatTicketRef renders a ticket number as "#" followed by at least three digits.
func FormatTicketRef(number int64) string {
	return fmt.Sprintf("#%03d", number)
}
