package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type messageStore struct {
	q db.Querier
}

var messageColumns = []string{
	"id", "ticket_id", "contact_id", "company_id", "from_me", "body", "ack",
	"read", "media_type", "media_url", "transcription", "data_json",
	"created_at",
}

func (s *messageStore) GetByID(ctx context.Context, id string) (*model.Message, error) {
	query, args, err := psql.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanMessage(s.q.QueryRow(ctx, query, args...))
}

func (s *messageStore) Create(ctx context.Context, msg *model.Message) error {
	query, args, err := psql.Insert("messages").
		Columns("id", "ticket_id", "contact_id", "company_id", "from_me",
			"body", "ack", "read", "media_type", "media_url",
			"transcription", "data_json", "created_at").
		Values(msg.ID, msg.TicketID, msg.ContactID, msg.CompanyID, msg.FromMe,
			msg.Body, msg.Ack, msg.Read, msg.MediaType, msg.MediaURL,
			msg.Transcription, msg.DataJSON, msg.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.q.Exec(ctx, query, args...)
	return wrapErr(err)
}

func (s *messageStore) ListByTicket(ctx context.Context, ticketID int64, limit int32) ([]model.Message, error) {
	builder := psql.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"ticket_id": ticketID}).
		OrderBy("created_at ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, query, args)
}

func (s *messageStore) ListIDsByContact(ctx context.Context, contactID int64) ([]string, error) {
	query, args, err := psql.Select("id").
		From("messages").
		Where(sq.Eq{"contact_id": contactID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *messageStore) CountByContact(ctx context.Context, contactID int64) (int64, error) {
	query, args, err := psql.Select("count(*)").
		From("messages").
		Where(sq.Eq{"contact_id": contactID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.q.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *messageStore) LatestInbound(ctx context.Context, ticketID int64) (*model.Message, error) {
	query, args, err := psql.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"ticket_id": ticketID, "from_me": false}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanMessage(s.q.QueryRow(ctx, query, args...))
}

func (s *messageStore) LatestOutboundAfter(ctx context.Context, ticketID int64, after time.Time) (*model.Message, error) {
	query, args, err := psql.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"ticket_id": ticketID, "from_me": true}).
		Where(sq.Gt{"created_at": after}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanMessage(s.q.QueryRow(ctx, query, args...))
}

func (s *messageStore) Reparent(ctx context.Context, fromTicketID, toTicketID int64) (int64, error) {
	query, args, err := psql.Update("messages").
		Set("ticket_id", toTicketID).
		Where(sq.Eq{"ticket_id": fromTicketID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *messageStore) ReassignContact(ctx context.Context, fromContactID, toContactID int64) (int64, error) {
	query, args, err := psql.Update("messages").
		Set("contact_id", toContactID).
		Where(sq.Eq{"contact_id": fromContactID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *messageStore) list(ctx context.Context, query string, args []any) ([]model.Message, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	err := row.Scan(
		&m.ID, &m.TicketID, &m.ContactID, &m.CompanyID, &m.FromMe, &m.Body,
		&m.Ack, &m.Read, &m.MediaType, &m.MediaURL, &m.Transcription,
		&m.DataJSON, &m.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &m, nil
}
