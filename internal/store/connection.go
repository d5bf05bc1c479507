package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/model"
)

type connectionStore struct {
	q db.Querier
}

var connectionColumns = []string{
	"id", "company_id", "name", "status", "is_default", "device_jid", "created_at", "updated_at",
}

func (s *connectionStore) GetByID(ctx context.Context, id int64) (*model.WhatsappConnection, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *connectionStore) GetDefault(ctx context.Context, companyID int64) (*model.WhatsappConnection, error) {
	return s.getOne(ctx, sq.Eq{"company_id": companyID, "is_default": true})
}

func (s *connectionStore) GetByDeviceJID(ctx context.Context, deviceJID string) (*model.WhatsappConnection, error) {
	return s.getOne(ctx, sq.Eq{"device_jid": deviceJID})
}

func (s *connectionStore) getOne(ctx context.Context, pred any) (*model.WhatsappConnection, error) {
	query, args, err := psql.Select(connectionColumns...).
		From("whatsapp_connections").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	var conn model.WhatsappConnection
	err = s.q.QueryRow(ctx, query, args...).Scan(
		&conn.ID, &conn.CompanyID, &conn.Name, &conn.Status, &conn.IsDefault,
		&conn.DeviceJID, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &conn, nil
}

func (s *connectionStore) ListByCompany(ctx context.Context, companyID int64) ([]model.WhatsappConnection, error) {
	query, args, err := psql.Select(connectionColumns...).
		From("whatsapp_connections").
		Where(sq.Eq{"company_id": companyID}).
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

	var conns []model.WhatsappConnection
	for rows.Next() {
		var conn model.WhatsappConnection
		if err := rows.Scan(
			&conn.ID, &conn.CompanyID, &conn.Name, &conn.Status, &conn.IsDefault,
			&conn.DeviceJID, &conn.CreatedAt, &conn.UpdatedAt,
		); err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (s *connectionStore) Create(ctx context.Context, conn *model.WhatsappConnection) error {
	query, args, err := psql.Insert("whatsapp_connections").
		Columns("id", "company_id", "name", "status", "is_default", "device_jid").
		Values(conn.ID, conn.CompanyID, conn.Name, conn.Status, conn.IsDefault, conn.DeviceJID).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = s.q.QueryRow(ctx, query, args...).Scan(&conn.CreatedAt, &conn.UpdatedAt)
	return wrapErr(err)
}

func (s *connectionStore) UpdateStatus(ctx context.Context, id int64, status model.ConnectionStatus) error {
	query, args, err := psql.Update("whatsapp_connections").
		Set("status", status).
		Set("updated_at", sq.Expr("now()")).
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
