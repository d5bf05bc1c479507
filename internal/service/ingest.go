package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"atendo.app/desk/common/id"
	"atendo.app/desk/common/logger"
	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/events"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
	"atendo.app/desk/internal/wa"
)

var (
	ErrMessageExists  = errors.New("message already ingested")
	ErrInvalidChatJID = errors.New("chat jid carries no usable identifier")
)

// lastMessagePreviewLen bounds the ticket snapshot text.
const lastMessagePreviewLen = 255

// MessageIngestor is the single entry point for externally produced
// messages. Live socket events and backfill replay go through the same code
// so both produce identical contact/ticket/message state.
type MessageIngestor interface {
	ProcessExternal(ctx context.Context, companyID, connectionID int64, msg channel.ChatMessage) (*model.Message, error)
}

type messageIngestor struct {
	txRunner TxRunner
	notifier events.Notifier
}

func NewMessageIngestor(txRunner TxRunner, notifier events.Notifier) MessageIngestor {
	return &messageIngestor{txRunner: txRunner, notifier: notifier}
}

func (s *messageIngestor) ProcessExternal(ctx context.Context, companyID, connectionID int64, msg channel.ChatMessage) (*model.Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID:    logger.Ptr(companyID),
		ConnectionID: logger.Ptr(connectionID),
		MessageID:    &msg.ID,
		Component:    "ingest",
	})

	number, isGroup, err := splitChatJID(msg.ChatJID)
	if err != nil {
		return nil, err
	}

	var stored *model.Message
	var ticket *model.Ticket
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		contact, err := s.resolveContact(ctx, stores, companyID, number, isGroup)
		if err != nil {
			return err
		}

		ticket, err = s.resolveTicket(ctx, stores, contact, companyID, connectionID)
		if err != nil {
			return err
		}

		stored = &model.Message{
			ID:        msg.ID,
			TicketID:  ticket.ID,
			ContactID: contact.ID,
			CompanyID: companyID,
			FromMe:    msg.FromMe,
			Body:      msg.Body,
			MediaType: mediaTypeOrChat(msg.MediaType),
			DataJSON:  encodeWirePayload(msg),
			CreatedAt: messageTime(msg.Timestamp),
		}
		if err := stores.Messages().Create(ctx, stored); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrMessageExists
			}
			return fmt.Errorf("storing message: %w", err)
		}

		preview := logger.Truncate(msg.Body, lastMessagePreviewLen)
		if err := stores.Tickets().UpdateOnMessage(ctx, ticket.ID, preview, !msg.FromMe); err != nil {
			return fmt.Errorf("updating ticket snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyTicket(ctx, ticket)
	return stored, nil
}

func (s *messageIngestor) resolveContact(ctx context.Context, stores StoreProvider, companyID int64, number string, isGroup bool) (*model.Contact, error) {
	contact, err := stores.Contacts().GetByNumber(ctx, companyID, number)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolving contact: %w", err)
	}

	contact = &model.Contact{
		ID:        id.New(),
		CompanyID: companyID,
		Name:      number,
		Number:    number,
		IsGroup:   isGroup,
	}
	if err := stores.Contacts().Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	slog.InfoContext(ctx, "contact created from inbound message",
		"contact_id", contact.ID, "number", number, "is_group", isGroup)
	return contact, nil
}

func (s *messageIngestor) resolveTicket(ctx context.Context, stores StoreProvider, contact *model.Contact, companyID, connectionID int64) (*model.Ticket, error) {
	tickets, err := stores.Tickets().ListByContact(ctx, contact.ID)
	if err != nil {
		return nil, fmt.Errorf("listing contact tickets: %w", err)
	}
	for i := range tickets {
		t := &tickets[i]
		if t.ConnectionID == connectionID && t.IsActive() {
			return t, nil
		}
	}

	ticket := &model.Ticket{
		ID:           id.New(),
		CompanyID:    companyID,
		ContactID:    contact.ID,
		ConnectionID: connectionID,
		Status:       model.TicketStatusPending,
	}
	if err := stores.Tickets().Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}
	slog.InfoContext(ctx, "ticket opened for contact",
		"ticket_id", ticket.ID, "contact_id", contact.ID)
	return ticket, nil
}

func (s *messageIngestor) notifyTicket(ctx context.Context, ticket *model.Ticket) {
	event := events.TicketEvent{
		Action: events.ActionUpdate,
		Rooms: []string{
			string(ticket.Status),
			"notification",
			strconv.FormatInt(ticket.ID, 10),
		},
		Ticket: ticket,
	}
	if err := s.notifier.NotifyTicket(ctx, ticket.CompanyID, event); err != nil {
		slog.WarnContext(ctx, "failed to publish ticket event",
			"ticket_id", ticket.ID, "error", err)
	}
}

// splitChatJID extracts the digits identifier and group flag from a chat JID
// such as 5537991470016@s.whatsapp.net or 1203630414@g.us.
func splitChatJID(jid string) (string, bool, error) {
	number, _, found := strings.Cut(jid, "@")
	if !found || number == "" {
		return "", false, ErrInvalidChatJID
	}
	isGroup := strings.HasSuffix(jid, "@g.us")
	if cls := wa.Classify(number, isGroup); cls.Number != "" {
		number = cls.Number
	}
	return number, isGroup, nil
}

func mediaTypeOrChat(mediaType string) string {
	if mediaType == "" {
		return "chat"
	}
	return mediaType
}

func messageTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// encodeWirePayload wraps the opaque protocol bytes in a JSON envelope so
// the column stays queryable alongside the metadata.
func encodeWirePayload(msg channel.ChatMessage) []byte {
	envelope := map[string]any{
		"chat_jid":  msg.ChatJID,
		"sender":    msg.Sender,
		"timestamp": msg.Timestamp,
	}
	if len(msg.Raw) > 0 {
		envelope["payload"] = base64.StdEncoding.EncodeToString(msg.Raw)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil
	}
	return data
}
