package service

import (
	"context"
	"errors"

	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
)

// TicketView is the projection served to the frontend and embedded in
// realtime notifications.
type TicketView struct {
	*model.Ticket
	Contact *model.Contact `json:"contact"`
}

// TicketService serves ticket reads for the HTTP surface.
type TicketService interface {
	Show(ctx context.Context, companyID, ticketID int64) (*TicketView, error)
}

type ticketService struct {
	ticketStore  store.TicketStore
	contactStore store.ContactStore
}

func NewTicketService(ticketStore store.TicketStore, contactStore store.ContactStore) TicketService {
	return &ticketService{ticketStore: ticketStore, contactStore: contactStore}
}

func (s *ticketService) Show(ctx context.Context, companyID, ticketID int64) (*TicketView, error) {
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

	view := &TicketView{Ticket: ticket}
	contact, err := s.contactStore.GetByID(ctx, ticket.ContactID)
	if err == nil {
		view.Contact = contact
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return view, nil
}
