package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type activationTokenStore struct {
	q db.Querier
}

var activationTokenColumns = []string{
	"id", "token", "company_name", "plan", "max_users", "max_connections",
	"status", "expires_at", "used_at", "created_by", "notes",
	"created_at", "updated_at",
}

func (s *activationTokenStore) GetByID(ctx context.Context, id int64) (*model.ActivationToken, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *activationTokenStore) GetByToken(ctx context.Context, token string) (*model.ActivationToken, error) {
	return s.getOne(ctx, sq.Eq{"token": token})
}

func (s *activationTokenStore) getOne(ctx context.Context, pred any) (*model.ActivationToken, error) {
	query, args, err := psql.Select(activationTokenColumns...).
		From("activation_tokens").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanActivationToken(s.q.QueryRow(ctx, query, args...))
}

func (s *activationTokenStore) Create(ctx context.Context, token *model.ActivationToken) error {
	query, args, err := psql.Insert("activation_tokens").
		Columns("id", "token", "company_name", "plan", "max_users",
			"max_connections", "status", "expires_at", "created_by", "notes").
		Values(token.ID, token.Token, token.CompanyName, token.Plan,
			token.MaxUsers, token.MaxConnections, token.Status,
			token.ExpiresAt, token.CreatedBy, token.Notes).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(&token.CreatedAt, &token.UpdatedAt)
	return wrapErr(err)
}

func (s *activationTokenStore) List(ctx context.Context, limit, offset int32) ([]model.ActivationToken, error) {
	query, args, err := psql.Select(activationTokenColumns...).
		From("activation_tokens").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.ActivationToken
	for rows.Next() {
		t, err := scanActivationToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

// MarkUsed transitions an available token to used. The status guard makes
// concurrent signups race safely: only one wins, the rest see ErrNotFound.
func (s *activationTokenStore) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	query, args, err := psql.Update("activation_tokens").
		Set("status", model.ActivationTokenStatusUsed).
		Set("used_at", usedAt).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "status": model.ActivationTokenStatusAvailable}).
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

func (s *activationTokenStore) MarkExpired(ctx context.Context, id int64) error {
	query, args, err := psql.Update("activation_tokens").
		Set("status", model.ActivationTokenStatusExpired).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "status": model.ActivationTokenStatusAvailable}).
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

func (s *activationTokenStore) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("activation_tokens").
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

func scanActivationToken(row pgx.Row) (*model.ActivationToken, error) {
	var t model.ActivationToken
	err := row.Scan(
		&t.ID, &t.Token, &t.CompanyName, &t.Plan, &t.MaxUsers,
		&t.MaxConnections, &t.Status, &t.ExpiresAt, &t.UsedAt, &t.CreatedBy,
		&t.Notes, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}
