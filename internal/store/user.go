package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type userStore struct {
	q db.Querier
}

var userColumns = []string{
	"id", "company_id", "name", "email", "password_hash", "profile",
	"created_at", "updated_at",
}

func (s *userStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getOne(ctx, sq.Eq{"email": email})
}

func (s *userStore) getOne(ctx context.Context, pred any) (*model.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	var u model.User
	err = s.q.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.PasswordHash, &u.Profile,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	query, args, err := psql.Insert("users").
		Columns("id", "company_id", "name", "email", "password_hash", "profile").
		Values(user.ID, user.CompanyID, user.Name, user.Email,
			user.PasswordHash, user.Profile).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(&user.CreatedAt, &user.UpdatedAt)
	return wrapErr(err)
}
