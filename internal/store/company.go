package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type companyStore struct {
	q db.Querier
}

var companyColumns = []string{
	"id", "name", "phone", "email", "status", "plan", "due_date",
	"created_at", "updated_at",
}

func (s *companyStore) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *companyStore) GetByName(ctx context.Context, name string) (*model.Company, error) {
	return s.getOne(ctx, sq.Eq{"name": name})
}

func (s *companyStore) getOne(ctx context.Context, pred any) (*model.Company, error) {
	query, args, err := psql.Select(companyColumns...).
		From("companies").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	var c model.Company
	err = s.q.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.Status, &c.Plan, &c.DueDate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

func (s *companyStore) Create(ctx context.Context, company *model.Company) error {
	query, args, err := psql.Insert("companies").
		Columns("id", "name", "phone", "email", "status", "plan", "due_date").
		Values(company.ID, company.Name, company.Phone, company.Email,
			company.Status, company.Plan, company.DueDate).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(&company.CreatedAt, &company.UpdatedAt)
	return wrapErr(err)
}

func (s *companyStore) ListActive(ctx context.Context) ([]model.Company, error) {
	query, args, err := psql.Select(companyColumns...).
		From("companies").
		Where(sq.Eq{"status": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Phone, &c.Email, &c.Status, &c.Plan, &c.DueDate,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
