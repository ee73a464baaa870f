package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/support-bot/internal/channel/memory"
	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/notify"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

type memoryRepo struct {
	tickets []domain.Ticket
	fail    error
}

func (r *memoryRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if r.fail != nil {
		return apperrors.NewStoreWrite("create ticket", r.fail)
	}
	ticket.Number = int64(len(r.tickets) + 1)
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *memoryRepo) ListOpenByContact(ctx context.Context, contact string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.Contact == contact && t.Status == domain.TicketStatusOngoing {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryRepo) Ping(ctx context.Context) error { return r.fail }

func TestCreateTicketStampsOngoing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &memoryRepo{}
	svc := NewTicketService(TicketDependencies{TicketRepo: repo, Clock: clock.Fake(now), Logger: zaptest.NewLogger(t)})

	ticket, err := svc.CreateTicket(context.Background(), "  Jane ", domain.CategoryNetwork, " Wifi keeps dropping\n")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Contact != "Jane" || ticket.Description != "Wifi keeps dropping" {
		t.Fatalf("input not trimmed: %+v", ticket)
	}
	if ticket.Status != domain.TicketStatusOngoing || !ticket.CreatedAt.Equal(now) {
		t.Fatalf("unexpected status or time: %+v", ticket)
	}

	refs, err := svc.OpenTicketRefs(context.Background(), "Jane")
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	if len(refs) != 1 || refs[0] != "#001" {
		t.Fatalf("refs mismatch: %v", refs)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	t.Parallel()

	svc := NewTicketService(TicketDependencies{TicketRepo: &memoryRepo{}})
	if _, err := svc.CreateTicket(context.Background(), " ", domain.CategoryOthers, "x"); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateTicket(context.Background(), "Jane", "", "x"); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateTicketStoreFailure(t *testing.T) {
	t.Parallel()

	svc := NewTicketService(TicketDependencies{TicketRepo: &memoryRepo{fail: errors.New("disk full")}})
	_, err := svc.CreateTicket(context.Background(), "Jane", domain.CategoryOthers, "x")
	if !apperrors.IsCode(err, apperrors.CodeStoreWrite) {
		t.Fatalf("expected store write error, got %v", err)
	}
}

func TestNotifyRelaysToSupport(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	clk := clock.Fake(time.Unix(0, 0))
	ch := memory.New(clk)
	ch.AddConversation("support", "IT Support", false)

	var mirrored []events.Event
	mirror := func(ctx context.Context, e events.Event) error {
		mirrored = append(mirrored, e)
		return nil
	}
	svc := NewNotificationService(events.NewInMemoryDispatcher(), clk, logger,
		notify.NewRelay(ch, "IT Support", logger).Handle, mirror)
	svc.RegisterHandlers()

	summary := domain.Summary{Kind: domain.SummaryUpdateRequest, Contact: "Jane", TicketRef: "#003"}
	if err := svc.Notify(context.Background(), summary); err != nil {
		t.Fatalf("notify: %v", err)
	}
	sent := ch.Sent("support")
	if len(sent) != 1 || sent[0] != summary.Text() {
		t.Fatalf("relay mismatch: %q", sent)
	}
	if len(mirrored) != 1 || mirrored[0].Type != events.EventUpdateRequested {
		t.Fatalf("mirror mismatch: %+v", mirrored)
	}
}

func TestNotifyReportsMissingDestination(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	clk := clock.Fake(time.Unix(0, 0))
	ch := memory.New(clk)

	mirrored := 0
	svc := NewNotificationService(events.NewInMemoryDispatcher(), clk, logger,
		notify.NewRelay(ch, "IT Support", logger).Handle,
		func(ctx context.Context, e events.Event) error { mirrored++; return nil })
	svc.RegisterHandlers()

	err := svc.Notify(context.Background(), domain.Summary{Kind: domain.SummaryIncident, Contact: "Jane"})
	if err == nil {
		t.Fatalf("expected relay error")
	}
	if mirrored != 1 {
		t.Fatalf("remaining handlers must still run: mirrored=%d", mirrored)
	}
}
