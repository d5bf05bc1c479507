package store

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"atendo.app/desk/core/db"
)

// psql builds statements with postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Stores bundles all entity stores over one Querier. Build it over the pool
// for standalone calls or over a transaction inside DB.WithTx.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Companies() CompanyStore {
	return &companyStore{q: s.q}
}

func (s *Stores) Users() UserStore {
	return &userStore{q: s.q}
}

func (s *Stores) Settings() SettingStore {
	return &settingStore{q: s.q}
}

func (s *Stores) Connections() ConnectionStore {
	return &connectionStore{q: s.q}
}

func (s *Stores) Contacts() ContactStore {
	return &contactStore{q: s.q}
}

func (s *Stores) Tickets() TicketStore {
	return &ticketStore{q: s.q}
}

func (s *Stores) Messages() MessageStore {
	return &messageStore{q: s.q}
}

func (s *Stores) ActivationTokens() ActivationTokenStore {
	return &activationTokenStore{q: s.q}
}

const uniqueViolation = "23505"

// wrapErr maps driver errors onto the store sentinel errors.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
