package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-bot/internal/domain"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// TicketRepository encapsulates ticket persistence. Create assigns
// ticket.Number; numbers are unique and strictly increasing.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// ListOpenByContact returns the contact's Ongoing tickets by ascending number.
	ListOpenByContact(ctx context.Context, contact string) ([]domain.Ticket, error)
	Ping(ctx context.Context) error
}

type postgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository instantiates the postgres repository.
func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{pool: pool}
}

func (r *postgresTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (contact_details, issue_category, description, status, date_created)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING ticket_no`
	err := r.pool.QueryRow(ctx, query,
		ticket.Contact,
		ticket.Category,
		ticket.Description,
		ticket.Status,
		ticket.CreatedAt,
	).Scan(&ticket.Number)
	if err != nil {
		return apperrors.NewStoreWrite("create ticket", err)
	}
	return nil
}

func (r *postgresTicketRepository) ListOpenByContact(ctx context.Context, contact string) ([]domain.Ticket, error) {
	const query = `
        SELECT ticket_no, contact_details, issue_category, description, status, date_created
        FROM tickets WHERE contact_details=$1 AND status=$2
        ORDER BY ticket_no`
	rows, err := r.pool.Query(ctx, query, contact, domain.TicketStatusOngoing)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("list open tickets", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.Number,
			&ticket.Contact,
			&ticket.Category,
			&ticket.Description,
			&ticket.Status,
			&ticket.CreatedAt,
		); err != nil {
			return nil, apperrors.NewStoreUnavailable("scan ticket", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable("list open tickets", err)
	}
	return tickets, nil
}

func (r *postgresTicketRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return apperrors.NewStoreUnavailable("ping postgres", err)
	}
	return nil
}
