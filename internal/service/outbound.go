package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atendo.app/desk/common/logger"
	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
	"atendo.app/desk/internal/wa"
)

var ErrEmptyBody = errors.New("message body is empty")

// Send behavior defaults, overridable through SendConfig.
const (
	DefaultSendAttempts = 2
	DefaultSendBackoff  = time.Second
)

// SendConfig tunes the outbound path. Attempts and Backoff bound the retry,
// CallTimeout bounds each individual attempt.
type SendConfig struct {
	Attempts    int
	Backoff     time.Duration
	CallTimeout time.Duration
}

func (c SendConfig) withDefaults() SendConfig {
	if c.Attempts <= 0 {
		c.Attempts = DefaultSendAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultSendBackoff
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultSyncCallTimeout
	}
	return c
}

// OutboundService sends agent replies over the ticket's channel connection
// and records them through the same ingestion path live messages take, so an
// agent reply immediately counts as a response for the urgency sweep.
type OutboundService interface {
	SendText(ctx context.Context, companyID, ticketID int64, body string) (*model.Message, error)
}

type outboundService struct {
	ticketStore  store.TicketStore
	contactStore store.ContactStore
	messageStore store.MessageStore
	registry     *channel.Registry
	ingestor     MessageIngestor
	cfg          SendConfig
}

func NewOutboundService(
	ticketStore store.TicketStore,
	contactStore store.ContactStore,
	messageStore store.MessageStore,
	registry *channel.Registry,
	ingestor MessageIngestor,
	cfg SendConfig,
) OutboundService {
	return &outboundService{
		ticketStore:  ticketStore,
		contactStore: contactStore,
		messageStore: messageStore,
		registry:     registry,
		ingestor:     ingestor,
		cfg:          cfg.withDefaults(),
	}
}

func (s *outboundService) SendText(ctx context.Context, companyID, ticketID int64, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

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

	contact, err := s.contactStore.GetByID(ctx, ticket.ContactID)
	if err != nil {
		return nil, fmt.Errorf("resolving ticket contact: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID:    logger.Ptr(companyID),
		TicketID:     logger.Ptr(ticketID),
		ConnectionID: logger.Ptr(ticket.ConnectionID),
		Component:    "outbound",
	})

	conn, err := s.registry.Get(ticket.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: not registered", ErrChannelUnavailable)
	}
	if !conn.IsConnected() {
		return nil, fmt.Errorf("%w: socket down", ErrChannelUnavailable)
	}

	jid := wa.JID(contact.Number, contact.IsGroup)
	retry := channel.RetryPolicy{MaxAttempts: s.cfg.Attempts, Backoff: s.cfg.Backoff}

	var sent channel.ChatMessage
	err = retry.Do(ctx, func(ctx context.Context) error {
		var sendErr error
		sent, sendErr = channel.CallWithTimeout(ctx, s.cfg.CallTimeout, func(ctx context.Context) (channel.ChatMessage, error) {
			return conn.SendText(ctx, jid, body)
		})
		return sendErr
	})
	if err != nil {
		if errors.Is(err, channel.ErrCallTimeout) || errors.Is(err, channel.ErrDisconnected) {
			return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
		}
		return nil, fmt.Errorf("sending message: %w", err)
	}

	msg, err := s.ingestor.ProcessExternal(ctx, companyID, ticket.ConnectionID, sent)
	if err != nil {
		// The socket echoes our own sends, so the live event handler may
		// have recorded this wire id already.
		if errors.Is(err, ErrMessageExists) {
			return s.messageStore.GetByID(ctx, sent.ID)
		}
		return nil, fmt.Errorf("recording outbound message: %w", err)
	}

	slog.InfoContext(ctx, "agent reply sent", "message_id", msg.ID, "contact_id", contact.ID)
	return msg, nil
}
