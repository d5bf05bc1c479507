package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type contactStore struct {
	q db.Querier
}

var contactColumns = []string{
	"id", "company_id", "name", "number", "email", "is_group",
	"profile_pic_url", "disable_bot", "disable_ticket", "extra",
	"created_at", "updated_at",
}

func (s *contactStore) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	row, err := s.queryOne(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *contactStore) GetByNumber(ctx context.Context, companyID int64, number string) (*model.Contact, error) {
	// Oldest row wins when duplicates exist, matching the merge survivor
	// choice.
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"company_id": companyID, "number": number}).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanContact(s.q.QueryRow(ctx, query, args...))
}

func (s *contactStore) queryOne(ctx context.Context, pred any) (*model.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanContact(s.q.QueryRow(ctx, query, args...))
}

func (s *contactStore) ListByNumber(ctx context.Context, companyID int64, number string) ([]model.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"company_id": companyID, "number": number}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, query, args)
}

func (s *contactStore) ListArtifactCandidates(ctx context.Context, companyID int64) ([]model.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"company_id": companyID, "is_group": false}).
		Where("number ~ '^[0-9]+$'").
		Where("length(number) > 13").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, query, args)
}

func (s *contactStore) FindMergeTarget(ctx context.Context, companyID int64, name string, excludeID int64) (*model.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"company_id": companyID, "name": name, "is_group": false}).
		Where(sq.NotEq{"id": excludeID}).
		Where("length(number) <= 13").
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanContact(s.q.QueryRow(ctx, query, args...))
}

func (s *contactStore) list(ctx context.Context, query string, args []any) ([]model.Contact, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *contactStore) Create(ctx context.Context, contact *model.Contact) error {
	extra, err := marshalExtra(contact.Extra)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("contacts").
		Columns("id", "company_id", "name", "number", "email", "is_group",
			"profile_pic_url", "disable_bot", "disable_ticket", "extra").
		Values(contact.ID, contact.CompanyID, contact.Name, contact.Number,
			contact.Email, contact.IsGroup, contact.ProfilePicURL,
			contact.DisableBot, contact.DisableTicket, extra).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(&contact.CreatedAt, &contact.UpdatedAt)
	return wrapErr(err)
}

func (s *contactStore) Update(ctx context.Context, contact *model.Contact) error {
	extra, err := marshalExtra(contact.Extra)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("contacts").
		Set("name", contact.Name).
		Set("number", contact.Number).
		Set("email", contact.Email).
		Set("is_group", contact.IsGroup).
		Set("profile_pic_url", contact.ProfilePicURL).
		Set("disable_bot", contact.DisableBot).
		Set("disable_ticket", contact.DisableTicket).
		Set("extra", extra).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": contact.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(&contact.UpdatedAt)
	return wrapErr(err)
}

func (s *contactStore) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("contacts").
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

func scanContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	var extra []byte
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Number, &c.Email, &c.IsGroup,
		&c.ProfilePicURL, &c.DisableBot, &c.DisableTicket, &extra,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &c.Extra); err != nil {
			return nil, fmt.Errorf("decoding contact extra fields: %w", err)
		}
	}
	return &c, nil
}

func marshalExtra(extra []model.CustomField) ([]byte, error) {
	if extra == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encoding contact extra fields: %w", err)
	}
	return data, nil
}
