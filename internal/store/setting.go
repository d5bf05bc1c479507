package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type settingStore struct {
	q db.Querier
}

var settingColumns = []string{
	"id", "company_id", "key", "value", "created_at", "updated_at",
}

func (s *settingStore) Get(ctx context.Context, companyID int64, key string) (*model.Setting, error) {
	query, args, err := psql.Select(settingColumns...).
		From("settings").
		Where(sq.Eq{"company_id": companyID, "key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var setting model.Setting
	err = s.q.QueryRow(ctx, query, args...).Scan(
		&setting.ID, &setting.CompanyID, &setting.Key, &setting.Value,
		&setting.CreatedAt, &setting.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &setting, nil
}

func (s *settingStore) Upsert(ctx context.Context, setting *model.Setting) error {
	query, args, err := psql.Insert("settings").
		Columns("id", "company_id", "key", "value").
		Values(setting.ID, setting.CompanyID, setting.Key, setting.Value).
		Suffix(`ON CONFLICT (company_id, key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = now()
			RETURNING id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(
		&setting.ID, &setting.CreatedAt, &setting.UpdatedAt,
	)
	return wrapErr(err)
}

func (s *settingStore) ListByCompany(ctx context.Context, companyID int64) ([]model.Setting, error) {
	query, args, err := psql.Select(settingColumns...).
		From("settings").
		Where(sq.Eq{"company_id": companyID}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var setting model.Setting
		if err := rows.Scan(
			&setting.ID, &setting.CompanyID, &setting.Key, &setting.Value,
			&setting.CreatedAt, &setting.UpdatedAt,
		); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}
