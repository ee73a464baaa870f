package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-bot/internal/api/dto"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/service"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// TicketsHandler serves read-only ticket lookups.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListOpen GET /tickets/open?contact=.
func (h *TicketsHandler) ListOpen(c *fiber.Ctx) error {
	contact := strings.TrimSpace(c.Query("contact"))
	if contact == "" {
		return apperrors.NewValidationError("contact query parameter required", nil)
	}
	tickets, err := h.service.OpenTickets(c.UserContext(), contact)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		Number:      t.Number,
		Ref:         t.Ref(),
		Contact:     t.Contact,
		Category:    t.Category,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}
