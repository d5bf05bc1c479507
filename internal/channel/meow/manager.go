package meow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for the session store
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

const ingestTimeout = 30 * time.Second

// Manager restores previously paired sessions from the protocol session
// store and keeps the channel registry in sync with them. Pairing new
// devices (QR flow) happens out of band; the manager only reconnects what
// is already stored.
type Manager struct {
	container   *sqlstore.Container
	registry    *channel.Registry
	ingestor    service.MessageIngestor
	connections store.ConnectionStore

	clients map[int64]*whatsmeow.Client
}

func NewManager(
	ctx context.Context,
	dsn string,
	registry *channel.Registry,
	ingestor service.MessageIngestor,
	connections store.ConnectionStore,
) (*Manager, error) {
	container, err := sqlstore.New(ctx, "pgx", dsn, waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return &Manager{
		container:   container,
		registry:    registry,
		ingestor:    ingestor,
		connections: connections,
		clients:     make(map[int64]*whatsmeow.Client),
	}, nil
}

// ConnectAll reconnects every stored session that maps to a connection row.
// Sessions without a row are skipped, not an error: the row may have been
// deleted while the session credentials survived.
func (m *Manager) ConnectAll(ctx context.Context) error {
	devices, err := m.container.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing stored sessions: %w", err)
	}

	for _, device := range devices {
		if device.ID == nil {
			continue
		}
		jid := device.ID.String()

		conn, err := m.connections.GetByDeviceJID(ctx, jid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				slog.WarnContext(ctx, "stored session has no connection row", "device_jid", jid)
				continue
			}
			return fmt.Errorf("resolving connection for %s: %w", jid, err)
		}

		client := whatsmeow.NewClient(device, waLog.Noop)
		adapter := New(client, m.ingestFunc(conn.CompanyID, conn.ID))
		if err := client.Connect(); err != nil {
			adapter.Close()
			slog.ErrorContext(ctx, "failed to connect session",
				"connection_id", conn.ID, "device_jid", jid, "error", err)
			continue
		}

		m.registry.Register(conn.ID, adapter)
		m.clients[conn.ID] = client
		if err := m.connections.UpdateStatus(ctx, conn.ID, model.ConnectionStatusConnected); err != nil {
			slog.WarnContext(ctx, "failed to mark connection connected",
				"connection_id", conn.ID, "error", err)
		}
		slog.InfoContext(ctx, "session connected",
			"connection_id", conn.ID, "company_id", conn.CompanyID, "device_jid", jid)
	}
	return nil
}

// ingestFunc feeds live messages into the shared ingestion path. Ingestion
// runs off the event goroutine so a slow database write never blocks the
// protocol socket.
func (m *Manager) ingestFunc(companyID, connectionID int64) func(channel.ChatMessage) {
	return func(msg channel.ChatMessage) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			defer cancel()

			_, err := m.ingestor.ProcessExternal(ctx, companyID, connectionID, msg)
			if err != nil && !errors.Is(err, service.ErrMessageExists) {
				slog.ErrorContext(ctx, "failed to ingest live message",
					"connection_id", connectionID, "message_id", msg.ID, "error", err)
			}
		}()
	}
}

// Close disconnects every managed session and empties the registry.
func (m *Manager) Close(ctx context.Context) {
	for id, client := range m.clients {
		if conn, ok := m.registry.Remove(id); ok {
			if adapter, ok := conn.(*Adapter); ok {
				adapter.Close()
			}
		}
		client.Disconnect()
		if err := m.connections.UpdateStatus(ctx, id, model.ConnectionStatusDisconnected); err != nil {
			slog.WarnContext(ctx, "failed to mark connection disconnected",
				"connection_id", id, "error", err)
		}
	}
	m.clients = make(map[int64]*whatsmeow.Client)
}
