package repository

import (
	"context"
	"database/sql"

	"github.com/spec-kit/support-bot/internal/domain"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// sqlTicketRepository serves the mysql and sqlite stores. Both drivers
// take "?" placeholders and report the auto-increment key.
type sqlTicketRepository struct {
	db *sql.DB
}

// NewSQLTicketRepository instantiates a database/sql repository.
func NewSQLTicketRepository(db *sql.DB) TicketRepository {
	return &sqlTicketRepository{db: db}
}

func (r *sqlTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (contact_details, issue_category, description, status, date_created)
        VALUES (?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, query,
		ticket.Contact,
		string(ticket.Category),
		ticket.Description,
		string(ticket.Status),
		ticket.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStoreWrite("create ticket", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.NewStoreWrite("read ticket number", err)
	}
	ticket.Number = id
	return nil
}

func (r *sqlTicketRepository) ListOpenByContact(ctx context.Context, contact string) ([]domain.Ticket, error) {
	const query = `
        SELECT ticket_no, contact_details, issue_category, description, status, date_created
        FROM tickets WHERE contact_details=? AND status=?
        ORDER BY ticket_no`
	rows, err := r.db.QueryContext(ctx, query, contact, string(domain.TicketStatusOngoing))
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

func (r *sqlTicketRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperrors.NewStoreUnavailable("ping database", err)
	}
	return nil
}
