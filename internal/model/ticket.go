package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusClosed  TicketStatus = "closed"
)

type Ticket struct {
	ID             int64        `json:"id"`
	UUID           uuid.UUID    `json:"uuid"`
	CompanyID      int64        `json:"company_id"`
	ContactID      int64        `json:"contact_id"`
	ConnectionID   int64        `json:"connection_id"`
	Status         TicketStatus `json:"status"`
	LastMessage    string       `json:"last_message"`
	UnreadMessages int          `json:"unread_messages"`
	UrgentAt       *time.Time   `json:"urgent_at,omitempty"`
	LastResponseAt *time.Time   `json:"last_response_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsActive reports whether the ticket still takes part in the urgency sweep.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusPending
}

func (t *Ticket) IsUrgent() bool {
	return t.UrgentAt != nil
}
