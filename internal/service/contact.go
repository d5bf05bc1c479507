package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"atendo.app/desk/common/logger"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
	"atendo.app/desk/internal/wa"
)

var ErrInvalidNumber = errors.New("invalid contact number")

// UpdateContactInput carries the mutable contact fields. Nil pointers leave
// the current value untouched.
type UpdateContactInput struct {
	Name          *string
	Number        *string
	Email         *string
	DisableBot    *bool
	DisableTicket *bool
	Extra         []model.CustomField
}

// ContactService owns contact reads and updates. Changing a number to one
// already held by another contact triggers a merge with the updated contact
// as survivor.
type ContactService interface {
	Get(ctx context.Context, companyID, contactID int64) (*model.Contact, error)
	Update(ctx context.Context, companyID, contactID int64, input UpdateContactInput) (*model.Contact, error)
}

type contactService struct {
	contactStore store.ContactStore
	merge        MergeService
}

func NewContactService(contactStore store.ContactStore, merge MergeService) ContactService {
	return &contactService{contactStore: contactStore, merge: merge}
}

func (s *contactService) Get(ctx context.Context, companyID, contactID int64) (*model.Contact, error) {
	contact, err := s.contactStore.GetByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	if contact.CompanyID != companyID {
		return nil, ErrForbidden
	}
	return contact, nil
}

func (s *contactService) Update(ctx context.Context, companyID, contactID int64, input UpdateContactInput) (*model.Contact, error) {
	contact, err := s.Get(ctx, companyID, contactID)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID: logger.Ptr(companyID),
		ContactID: logger.Ptr(contactID),
		Component: "contact",
	})

	numberChanged := false
	if input.Number != nil {
		number := strings.TrimSpace(*input.Number)
		cls := wa.Classify(number, contact.IsGroup)
		if cls.Kind == wa.Invalid {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, cls.Reason)
		}
		if cls.Number != contact.Number {
			contact.Number = cls.Number
			numberChanged = true
		}
	}
	if input.Name != nil {
		contact.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		contact.Email = strings.TrimSpace(*input.Email)
	}
	if input.DisableBot != nil {
		contact.DisableBot = *input.DisableBot
	}
	if input.DisableTicket != nil {
		contact.DisableTicket = *input.DisableTicket
	}
	if input.Extra != nil {
		contact.Extra = input.Extra
	}

	if err := s.contactStore.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	if numberChanged {
		report, err := s.merge.MergeDuplicates(ctx, contact)
		if err != nil {
			return nil, fmt.Errorf("merging duplicate contacts: %w", err)
		}
		if len(report.MergedContactIDs) > 0 {
			slog.InfoContext(ctx, "contact number change absorbed duplicates",
				"merged_contacts", report.MergedContactIDs,
				"absorbed_tickets", report.AbsorbedTickets,
				"moved_messages", report.MovedMessages)
		}
	}
	return contact, nil
}
