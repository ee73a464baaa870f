package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/repository"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// TicketService coordinates ticket workflows for the intake dialogue and
// the ops endpoint.
type TicketService struct {
	tickets repository.TicketRepository
	clock   clock.Clock
	logger  *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets: deps.TicketRepo,
		clock:   clk,
		logger:  logger,
	}
}

// CreateTicket records a new Ongoing ticket and returns it with its
// assigned number.
func (s *TicketService) CreateTicket(ctx context.Context, contact string, category domain.Category, description string) (*domain.Ticket, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, apperrors.NewValidationError("contact is required", nil)
	}
	if strings.TrimSpace(string(category)) == "" {
		return nil, apperrors.NewValidationError("category is required", map[string]any{"contact": contact})
	}

	ticket := &domain.Ticket{
		Contact:     contact,
		Category:    category,
		Description: strings.TrimSpace(description),
		Status:      domain.TicketStatusOngoing,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("ticket stored",
		zap.String("ticket", ticket.Ref()),
		zap.String("contact", contact),
		zap.String("category", string(category)),
	)
	return ticket, nil
}

// OpenTickets lists the contact's Ongoing tickets by ascending number.
func (s *TicketService) OpenTickets(ctx context.Context, contact string) ([]domain.Ticket, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, apperrors.NewValidationError("contact is required", nil)
	}
	return s.tickets.ListOpenByContact(ctx, contact)
}

// OpenTicketRefs lists the contact's Ongoing tickets as "#NNN" refs.
func (s *TicketService) OpenTicketRefs(ctx context.Context, contact string) ([]string, error) {
	tickets, err := s.OpenTickets(ctx, contact)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(tickets))
	for i := range tickets {
		refs = append(refs, tickets[i].Ref())
	}
	return refs, nil
}

// Ping reports whether the ticket store is reachable.
func (s *TicketService) Ping(ctx context.Context) error {
	return s.tickets.Ping(ctx)
}
