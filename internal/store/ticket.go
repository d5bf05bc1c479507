package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type ticketStore struct {
	q db.Querier
}

var ticketColumns = []string{
	"id", "uuid", "company_id", "contact_id", "connection_id", "status",
	"last_message", "unread_messages", "urgent_at", "last_response_at",
	"created_at", "updated_at",
}

var activeStatuses = []model.TicketStatus{
	model.TicketStatusOpen,
	model.TicketStatusPending,
}

func (s *ticketStore) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	query, args, err := psql.Select(ticketColumns...).
		From("tickets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanTicket(s.q.QueryRow(ctx, query, args...))
}

func (s *ticketStore) Create(ctx context.Context, ticket *model.Ticket) error {
	query, args, err := psql.Insert("tickets").
		Columns("id", "company_id", "contact_id", "connection_id", "status",
			"last_message", "unread_messages").
		Values(ticket.ID, ticket.CompanyID, ticket.ContactID,
			ticket.ConnectionID, ticket.Status, ticket.LastMessage,
			ticket.UnreadMessages).
		Suffix("RETURNING uuid, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(
		&ticket.UUID, &ticket.CreatedAt, &ticket.UpdatedAt,
	)
	return wrapErr(err)
}

func (s *ticketStore) ListByContact(ctx context.Context, contactID int64) ([]model.Ticket, error) {
	query, args, err := psql.Select(ticketColumns...).
		From("tickets").
		Where(sq.Eq{"contact_id": contactID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, query, args)
}

func (s *ticketStore) ReparentContact(ctx context.Context, ticketID, contactID int64) error {
	query, args, err := psql.Update("tickets").
		Set("contact_id", contactID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the ticket row together with its tag links and trackings.
// Callers are expected to run it inside a transaction after re-parenting or
// deleting the ticket's messages.
func (s *ticketStore) Delete(ctx context.Context, id int64) error {
	for _, table := range []string{"ticket_tags", "ticket_trackings"} {
		query, args, err := psql.Delete(table).
			Where(sq.Eq{"ticket_id": id}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := s.q.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	query, args, err := psql.Delete("tickets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ticketStore) UpdateOnMessage(ctx context.Context, id int64, lastMessage string, inbound bool) error {
	builder := psql.Update("tickets").
		Set("last_message", lastMessage).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	if inbound {
		builder = builder.Set("unread_messages", sq.Expr("unread_messages + 1"))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ticketStore) ListUrgencyCandidates(ctx context.Context, companyID int64) ([]model.Ticket, error) {
	query, args, err := psql.Select(ticketColumns...).
		From("tickets").
		Where(sq.Eq{"company_id": companyID, "status": activeStatuses}).
		Where("urgent_at IS NULL").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, query, args)
}

func (s *ticketStore) ListUrgent(ctx context.Context, companyID int64) ([]model.Ticket, error) {
	query, args, err := psql.Select(ticketColumns...).
		From("tickets").
		Where(sq.Eq{"company_id": companyID}).
		Where("urgent_at IS NOT NULL").
		OrderBy("urgent_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, query, args)
}

// SetUrgentAt only touches rows where the flag is unset. Concurrent sweeps
// therefore flag a ticket exactly once.
func (s *ticketStore) SetUrgentAt(ctx context.Context, id int64, at time.Time) error {
	query, args, err := psql.Update("tickets").
		Set("urgent_at", at).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where("urgent_at IS NULL").
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ticketStore) ClearUrgent(ctx context.Context, id int64, lastResponseAt time.Time) error {
	query, args, err := psql.Update("tickets").
		Set("urgent_at", nil).
		Set("last_response_at", lastResponseAt).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where("urgent_at IS NOT NULL").
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ticketStore) list(ctx context.Context, query string, args []any) ([]model.Ticket, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID, &t.UUID, &t.CompanyID, &t.ContactID, &t.ConnectionID, &t.Status,
		&t.LastMessage, &t.UnreadMessages, &t.UrgentAt, &t.LastResponseAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}
