package store

import (
	"context"
	"errors"
	"time"

	"atendo.app/desk/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("already exists")

// CompanyStore defines the contract for company data access
type CompanyStore interface {
	GetByID(ctx context.Context, id int64) (*model.Company, error)
	GetByName(ctx context.Context, name string) (*model.Company, error)
	Create(ctx context.Context, company *model.Company) error
	ListActive(ctx context.Context) ([]model.Company, error)
}

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

// SettingStore defines the contract for per-company settings
type SettingStore interface {
	Get(ctx context.Context, companyID int64, key string) (*model.Setting, error)
	Upsert(ctx context.Context, setting *model.Setting) error
	ListByCompany(ctx context.Context, companyID int64) ([]model.Setting, error)
}

// ConnectionStore defines the contract for channel connection records
type ConnectionStore interface {
	GetByID(ctx context.Context, id int64) (*model.WhatsappConnection, error)
	GetDefault(ctx context.Context, companyID int64) (*model.WhatsappConnection, error)
	GetByDeviceJID(ctx context.Context, deviceJID string) (*model.WhatsappConnection, error)
	ListByCompany(ctx context.Context, companyID int64) ([]model.WhatsappConnection, error)
	Create(ctx context.Context, conn *model.WhatsappConnection) error
	UpdateStatus(ctx context.Context, id int64, status model.ConnectionStatus) error
}

// ContactStore defines the contract for contact data access
type ContactStore interface {
	GetByID(ctx context.Context, id int64) (*model.Contact, error)
	GetByNumber(ctx context.Context, companyID int64, number string) (*model.Contact, error)
	// ListByNumber returns every contact row holding the number, oldest
	// first. More than one row means duplicates exist.
	ListByNumber(ctx context.Context, companyID int64, number string) ([]model.Contact, error)
	// ListArtifactCandidates returns non-group contacts whose number is
	// longer than a personal number can be.
	ListArtifactCandidates(ctx context.Context, companyID int64) ([]model.Contact, error)
	// FindMergeTarget returns the oldest non-group contact in the company
	// with the given display name and a personal-length number, excluding
	// the given contact.
	FindMergeTarget(ctx context.Context, companyID int64, name string, excludeID int64) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, id int64) error
}

// TicketStore defines the contract for ticket data access
type TicketStore interface {
	GetByID(ctx context.Context, id int64) (*model.Ticket, error)
	Create(ctx context.Context, ticket *model.Ticket) error
	ListByContact(ctx context.Context, contactID int64) ([]model.Ticket, error)
	// ReparentContact points the ticket at another contact.
	ReparentContact(ctx context.Context, ticketID, contactID int64) error
	// Delete removes the ticket along with its tags and trackings.
	Delete(ctx context.Context, id int64) error
	// UpdateOnMessage refreshes the ticket preview after an ingested
	// message. Inbound messages also bump the unread counter.
	UpdateOnMessage(ctx context.Context, id int64, lastMessage string, inbound bool) error

	// ListUrgencyCandidates returns active tickets not yet flagged urgent.
	ListUrgencyCandidates(ctx context.Context, companyID int64) ([]model.Ticket, error)
	// ListUrgent returns tickets currently flagged urgent for the company.
	ListUrgent(ctx context.Context, companyID int64) ([]model.Ticket, error)
	// SetUrgentAt flags the ticket, only if it is not already flagged.
	// Returns ErrNotFound when the flag was already set or the ticket is
	// gone, so callers can keep the notification single-shot.
	SetUrgentAt(ctx context.Context, id int64, at time.Time) error
	// ClearUrgent drops the flag and records when the operator responded.
	ClearUrgent(ctx context.Context, id int64, lastResponseAt time.Time) error
}

// MessageStore defines the contract for message data access
type MessageStore interface {
	GetByID(ctx context.Context, id string) (*model.Message, error)
	Create(ctx context.Context, msg *model.Message) error
	ListByTicket(ctx context.Context, ticketID int64, limit int32) ([]model.Message, error)
	// ListIDsByContact returns the wire ids of every stored message for the
	// contact. The synchronizer diffs this set against the channel cache.
	ListIDsByContact(ctx context.Context, contactID int64) ([]string, error)
	CountByContact(ctx context.Context, contactID int64) (int64, error)
	// LatestInbound returns the most recent contact-sent message.
	LatestInbound(ctx context.Context, ticketID int64) (*model.Message, error)
	// LatestOutboundAfter returns the most recent operator message sent
	// after the given time.
	LatestOutboundAfter(ctx context.Context, ticketID int64, after time.Time) (*model.Message, error)
	// Reparent moves all messages from one ticket to another and returns
	// how many rows moved.
	Reparent(ctx context.Context, fromTicketID, toTicketID int64) (int64, error)
	// ReassignContact moves all messages from one contact to another.
	ReassignContact(ctx context.Context, fromContactID, toContactID int64) (int64, error)
}

// ActivationTokenStore defines the contract for activation token data access
type ActivationTokenStore interface {
	GetByID(ctx context.Context, id int64) (*model.ActivationToken, error)
	GetByToken(ctx context.Context, token string) (*model.ActivationToken, error)
	Create(ctx context.Context, token *model.ActivationToken) error
	List(ctx context.Context, limit, offset int32) ([]model.ActivationToken, error)
	MarkUsed(ctx context.Context, id int64, usedAt time.Time) error
	MarkExpired(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
