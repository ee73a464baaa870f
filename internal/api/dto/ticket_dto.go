package dto

import (
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	Number      int64               `json:"ticket_no"`
	Ref         string              `json:"ref"`
	Contact     string              `json:"contact_details"`
	Category    domain.Category     `json:"issue_category"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"date_created"`
}
