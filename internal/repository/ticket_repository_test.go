package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/persistence"
)

func newSQLiteRepo(t *testing.T) TicketRepository {
	t.Helper()

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "tickets.db")}
	db, err := persistence.OpenSQL(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := persistence.RunSQLMigrations(ctx, db, "../../migrations", config.DriverSQLite, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLTicketRepository(db)
}

func exerciseRepository(t *testing.T, repo TicketRepository) {
	t.Helper()

	ctx := context.Background()
	created := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	inputs := []domain.Ticket{
		{Contact: "Jane", Category: domain.CategoryNetwork, Description: "Wifi keeps dropping"},
		{Contact: "Bob", Category: domain.CategoryHardware, Description: "Monitor flickers"},
		{Contact: "Jane", Category: domain.CategoryOthers, Description: "No description provided."},
		{Contact: "Jane", Category: domain.CategorySoftware, Description: "Excel crashes", Status: domain.TicketStatusResolved},
	}

	var last int64
	for i := range inputs {
		ticket := inputs[i]
		if ticket.Status == "" {
			ticket.Status = domain.TicketStatusOngoing
		}
		ticket.CreatedAt = created
		if err := repo.Create(ctx, &ticket); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if ticket.Number <= last {
			t.Fatalf("ticket numbers must strictly increase: got=%d after=%d", ticket.Number, last)
		}
		last = ticket.Number
	}

	open, err := repo.ListOpenByContact(ctx, "Jane")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open count mismatch: got=%d want=2", len(open))
	}
	if open[0].Ref() != "#001" || open[1].Ref() != "#003" {
		t.Fatalf("open refs mismatch: got=%s,%s", open[0].Ref(), open[1].Ref())
	}
	if open[0].Category != domain.CategoryNetwork || open[0].Description != "Wifi keeps dropping" {
		t.Fatalf("unexpected first ticket: %+v", open[0])
	}
	if !open[0].CreatedAt.Equal(created) {
		t.Fatalf("created mismatch: got=%s want=%s", open[0].CreatedAt, created)
	}

	none, err := repo.ListOpenByContact(ctx, "Nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no tickets, got=%v err=%v", none, err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteTicketRepository(t *testing.T) {
	t.Parallel()
	exerciseRepository(t, newSQLiteRepo(t))
}

func TestWorkbookTicketRepository(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tickets", "Tickets.xlsx")
	exerciseRepository(t, NewWorkbookTicketRepository(path, "Tickets"))
}

func TestWorkbookEmptyBeforeFirstWrite(t *testing.T) {
	t.Parallel()

	repo := NewWorkbookTicketRepository(filepath.Join(t.TempDir(), "Tickets.xlsx"), "")
	tickets, err := repo.ListOpenByContact(context.Background(), "Jane")
	if err != nil || len(tickets) != 0 {
		t.Fatalf("expected empty result, got=%v err=%v", tickets, err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping before first write: %v", err)
	}
}

func TestWorkbookNumbersContinueAfterReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Tickets.xlsx")
	first := NewWorkbookTicketRepository(path, "Tickets")
	ticket := domain.Ticket{Contact: "Jane", Category: domain.CategoryHardware, Description: "x", Status: domain.TicketStatusOngoing, CreatedAt: time.Now()}
	if err := first.Create(ctx, &ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := NewWorkbookTicketRepository(path, "Tickets")
	next := ticket
	if err := second.Create(ctx, &next); err != nil {
		t.Fatalf("create after reopen: %v", err)
	}
	if next.Number != ticket.Number+1 {
		t.Fatalf("number mismatch: got=%d want=%d", next.Number, ticket.Number+1)
	}
}
