package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"atendo.app/desk/common/logger"
	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
	"atendo.app/desk/internal/wa"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrChannelUnavailable is returned when the channel connection is not
	// registered, not connected, or did not answer within the call timeout.
	// Callers can retry once the connection is back.
	ErrChannelUnavailable = errors.New("channel connection unavailable")
)

// Sync behavior defaults, overridable through SyncConfig.
const (
	DefaultSyncLimit       = 50
	DefaultSyncItemDelay   = 100 * time.Millisecond
	DefaultSyncCallTimeout = 15 * time.Second
)

// SyncResult reports the comparison between the channel's view of a
// conversation and the local store, field names matching the payload the
// frontend already consumes.
type SyncResult struct {
	Success            bool     `json:"success"`
	ContactID          int64    `json:"contactId"`
	ContactName        string   `json:"contactName"`
	ContactNumber      string   `json:"contactNumber"`
	MessagesInWhatsApp int      `json:"messagesInWhatsApp"`
	MessagesInDatabase int      `json:"messagesInDatabase"`
	MissingMessages    int      `json:"missingMessages"`
	SyncedMessages     int      `json:"syncedMessages"`
	Errors             []string `json:"errors"`
}

// SyncConfig tunes the synchronizer.
type SyncConfig struct {
	DefaultLimit int
	ItemDelay    time.Duration
	CallTimeout  time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultSyncLimit
	}
	if c.ItemDelay <= 0 {
		c.ItemDelay = DefaultSyncItemDelay
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultSyncCallTimeout
	}
	return c
}

// SyncService detects and repairs gaps between the external channel history
// and locally stored messages.
type SyncService interface {
	// CheckSync counts messages on both sides without mutating state.
	CheckSync(ctx context.Context, companyID, contactID, connectionID int64) (*SyncResult, error)
	// SyncMessages replays every externally known message absent locally,
	// oldest first, through the live ingestion path. Per-item failures are
	// collected and do not abort the rest.
	SyncMessages(ctx context.Context, companyID, contactID, connectionID int64, limit int) (*SyncResult, error)
	// SyncTicketMessages resolves the ticket to its contact and connection
	// and delegates to SyncMessages.
	SyncTicketMessages(ctx context.Context, companyID, ticketID int64, limit int) (*SyncResult, error)
}

type syncService struct {
	contactStore store.ContactStore
	ticketStore  store.TicketStore
	messageStore store.MessageStore
	registry     *channel.Registry
	ingestor     MessageIngestor
	cfg          SyncConfig
}

func NewSyncService(
	contactStore store.ContactStore,
	ticketStore store.TicketStore,
	messageStore store.MessageStore,
	registry *channel.Registry,
	ingestor MessageIngestor,
	cfg SyncConfig,
) SyncService {
	return &syncService{
		contactStore: contactStore,
		ticketStore:  ticketStore,
		messageStore: messageStore,
		registry:     registry,
		ingestor:     ingestor,
		cfg:          cfg.withDefaults(),
	}
}

func (s *syncService) CheckSync(ctx context.Context, companyID, contactID, connectionID int64) (*SyncResult, error) {
	contact, _, chatMsgs, storedIDs, err := s.compare(ctx, companyID, contactID, connectionID)
	if err != nil {
		return nil, err
	}

	result := newSyncResult(contact)
	result.Success = true
	result.MessagesInWhatsApp = len(chatMsgs)
	result.MessagesInDatabase = len(storedIDs)
	result.MissingMessages = len(missingMessages(chatMsgs, storedIDs))
	return result, nil
}

func (s *syncService) SyncMessages(ctx context.Context, companyID, contactID, connectionID int64, limit int) (*SyncResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID:    logger.Ptr(companyID),
		ContactID:    logger.Ptr(contactID),
		ConnectionID: logger.Ptr(connectionID),
		Component:    "sync",
	})

	contact, conn, chatMsgs, storedIDs, err := s.compare(ctx, companyID, contactID, connectionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	missing := missingMessages(chatMsgs, storedIDs)
	truncated := len(missing) > limit
	if truncated {
		missing = missing[:limit]
	}

	result := newSyncResult(contact)
	result.MessagesInWhatsApp = len(chatMsgs)
	result.MessagesInDatabase = len(storedIDs)
	result.MissingMessages = len(missing)

	for i, msg := range missing {
		if i > 0 {
			// Spaced out so the replay does not hammer the connection.
			select {
			case <-ctx.Done():
				result.Errors = append(result.Errors, ctx.Err().Error())
				return result, nil
			case <-time.After(s.cfg.ItemDelay):
			}
		}

		_, err := s.ingestor.ProcessExternal(ctx, companyID, connectionID, msg)
		if err != nil {
			if errors.Is(err, ErrMessageExists) {
				result.SyncedMessages++
				continue
			}
			slog.WarnContext(ctx, "failed to replay message",
				"message_id", msg.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", msg.ID, err))
			continue
		}
		result.SyncedMessages++
	}

	// Best-effort backfill: partial item failures do not fail the run.
	result.Success = true

	// Once every cached message is accounted for locally, the chat's cache
	// has served its purpose; live events repopulate it. A truncated or
	// partially failed run keeps the cache so the gap stays detectable.
	if result.SyncedMessages > 0 && !truncated && len(result.Errors) == 0 {
		conn.ClearCache(wa.JID(contact.Number, contact.IsGroup))
	}

	slog.InfoContext(ctx, "message backfill finished",
		"missing", result.MissingMessages,
		"synced", result.SyncedMessages,
		"failed", len(result.Errors))
	return result, nil
}

func (s *syncService) SyncTicketMessages(ctx context.Context, companyID, ticketID int64, limit int) (*SyncResult, error) {
	ticket, err := s.ticketStore.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if ticket.CompanyID != companyID {
		return nil, ErrForbidden
	}
	return s.SyncMessages(ctx, companyID, ticket.ContactID, ticket.ConnectionID, limit)
}

// compare loads the contact, the channel's cached conversation and the
// locally stored message ids.
func (s *syncService) compare(ctx context.Context, companyID, contactID, connectionID int64) (*model.Contact, channel.Conn, []channel.ChatMessage, []string, error) {
	contact, err := s.contactStore.GetByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, nil, nil, ErrContactNotFound
		}
		return nil, nil, nil, nil, err
	}
	if contact.CompanyID != companyID {
		return nil, nil, nil, nil, ErrForbidden
	}

	conn, err := s.registry.Get(connectionID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: not registered", ErrChannelUnavailable)
	}
	if !conn.IsConnected() {
		return nil, nil, nil, nil, fmt.Errorf("%w: socket down", ErrChannelUnavailable)
	}

	jid := wa.JID(contact.Number, contact.IsGroup)
	chatMsgs, err := channel.CallWithTimeout(ctx, s.cfg.CallTimeout, func(ctx context.Context) ([]channel.ChatMessage, error) {
		return conn.CachedMessages(ctx, jid, 0)
	})
	if err != nil {
		if errors.Is(err, channel.ErrCallTimeout) {
			return nil, nil, nil, nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
		}
		return nil, nil, nil, nil, fmt.Errorf("fetching cached messages: %w", err)
	}

	storedIDs, err := s.messageStore.ListIDsByContact(ctx, contactID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("listing stored message ids: %w", err)
	}
	return contact, conn, chatMsgs, storedIDs, nil
}

// missingMessages preserves the input order, which CachedMessages guarantees
// to be oldest first.
func missingMessages(chatMsgs []channel.ChatMessage, storedIDs []string) []channel.ChatMessage {
	known := make(map[string]struct{}, len(storedIDs))
	for _, id := range storedIDs {
		known[id] = struct{}{}
	}

	var missing []channel.ChatMessage
	for _, msg := range chatMsgs {
		if _, ok := known[msg.ID]; !ok {
			missing = append(missing, msg)
		}
	}
	return missing
}

func newSyncResult(contact *model.Contact) *SyncResult {
	return &SyncResult{
		ContactID:     contact.ID,
		ContactName:   contact.Name,
		ContactNumber: contact.Number,
		Errors:        []string{},
	}
}
