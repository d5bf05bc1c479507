package service

import (
	"context"

	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/store"
)

// StoreProvider exposes only the stores needed by a transactional operation.
type StoreProvider interface {
	Companies() store.CompanyStore
	Users() store.UserStore
	Settings() store.SettingStore
	Contacts() store.ContactStore
	Tickets() store.TicketStore
	Messages() store.MessageStore
	ActivationTokens() store.ActivationTokenStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q db.Querier) error {
		return fn(store.NewStores(q))
	})
}
