package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"atendo.app/desk/common/logger"
	"atendo.app/desk/internal/events"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
	"atendo.app/desk/internal/wa"
)

var (
	ErrContactNotFound   = errors.New("contact not found")
	ErrCrossCompanyMerge = errors.New("contacts belong to different companies")
	ErrSelfMerge         = errors.New("cannot merge a contact into itself")
)

// ticketMatchWindow bounds how far apart two tickets may have been opened to
// still count as the same conversation when picking the absorbing ticket.
const ticketMatchWindow = time.Hour

// MergeReport summarizes what one merge moved.
type MergeReport struct {
	SurvivorID        int64   `json:"survivor_id"`
	MergedContactIDs  []int64 `json:"merged_contact_ids"`
	AbsorbedTickets   int     `json:"absorbed_tickets"`
	ReparentedTickets int     `json:"reparented_tickets"`
	MovedMessages     int64   `json:"moved_messages"`
}

// ScanReport summarizes a linked-device artifact scan.
type ScanReport struct {
	Candidates int           `json:"candidates"`
	Merged     []MergeReport `json:"merged"`
	Skipped    int           `json:"skipped"`
}

// MergeService consolidates duplicate contacts. The survivor keeps its
// identity; the duplicate's tickets and messages migrate over and the
// duplicate row is deleted.
type MergeService interface {
	// Merge absorbs the duplicate contact into the survivor.
	Merge(ctx context.Context, survivorID, duplicateID int64) (*MergeReport, error)
	// MergeDuplicates absorbs every other contact holding the survivor's
	// number. No duplicates is a no-op.
	MergeDuplicates(ctx context.Context, survivor *model.Contact) (*MergeReport, error)
	// ScanLinkedDeviceArtifacts finds contacts whose number is a
	// linked-device artifact and merges each into its short-numbered
	// counterpart when one exists. Safe to re-run.
	ScanLinkedDeviceArtifacts(ctx context.Context, companyID int64) (*ScanReport, error)
}

type mergeService struct {
	contactStore store.ContactStore
	ticketStore  store.TicketStore
	txRunner     TxRunner
	notifier     events.Notifier
}

func NewMergeService(
	contactStore store.ContactStore,
	ticketStore store.TicketStore,
	txRunner TxRunner,
	notifier events.Notifier,
) MergeService {
	return &mergeService{
		contactStore: contactStore,
		ticketStore:  ticketStore,
		txRunner:     txRunner,
		notifier:     notifier,
	}
}

func (s *mergeService) Merge(ctx context.Context, survivorID, duplicateID int64) (*MergeReport, error) {
	if survivorID == duplicateID {
		return nil, ErrSelfMerge
	}

	survivor, err := s.contactStore.GetByID(ctx, survivorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	duplicate, err := s.contactStore.GetByID(ctx, duplicateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	if survivor.CompanyID != duplicate.CompanyID {
		return nil, ErrCrossCompanyMerge
	}

	report := &MergeReport{SurvivorID: survivor.ID}
	if err := s.absorb(ctx, survivor, duplicate, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *mergeService) MergeDuplicates(ctx context.Context, survivor *model.Contact) (*MergeReport, error) {
	contacts, err := s.contactStore.ListByNumber(ctx, survivor.CompanyID, survivor.Number)
	if err != nil {
		return nil, fmt.Errorf("listing contacts by number: %w", err)
	}

	report := &MergeReport{SurvivorID: survivor.ID}
	for i := range contacts {
		duplicate := &contacts[i]
		if duplicate.ID == survivor.ID {
			continue
		}
		if err := s.absorb(ctx, survivor, duplicate, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (s *mergeService) ScanLinkedDeviceArtifacts(ctx context.Context, companyID int64) (*ScanReport, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID: logger.Ptr(companyID),
		Component: "merge",
	})

	candidates, err := s.contactStore.ListArtifactCandidates(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing artifact candidates: %w", err)
	}

	report := &ScanReport{}
	for i := range candidates {
		artifact := &candidates[i]
		if wa.Classify(artifact.Number, artifact.IsGroup).Kind != wa.LinkedDeviceArtifact {
			continue
		}
		report.Candidates++

		// The artifact's digits carry no trace of the real number, so the
		// counterpart is matched by display name.
		real, err := s.contactStore.FindMergeTarget(ctx, companyID, artifact.Name, artifact.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				report.Skipped++
				slog.InfoContext(ctx, "artifact contact has no counterpart, skipping",
					"contact_id", artifact.ID, "number", artifact.Number)
				continue
			}
			return nil, err
		}

		merged := &MergeReport{SurvivorID: real.ID}
		if err := s.absorb(ctx, real, artifact, merged); err != nil {
			return nil, err
		}
		report.Merged = append(report.Merged, *merged)
	}

	slog.InfoContext(ctx, "linked-device artifact scan finished",
		"candidates", report.Candidates,
		"merged", len(report.Merged),
		"skipped", report.Skipped)
	return report, nil
}

// absorb migrates the duplicate's tickets and messages into the survivor and
// deletes the duplicate. Each duplicate ticket is handled in its own
// transaction so an interrupted merge never strands messages on a deleted
// ticket; re-running picks up where it stopped.
func (s *mergeService) absorb(ctx context.Context, survivor, duplicate *model.Contact, report *MergeReport) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID: logger.Ptr(survivor.CompanyID),
		ContactID: logger.Ptr(survivor.ID),
		Component: "merge",
	})

	survivorTickets, err := s.ticketStore.ListByContact(ctx, survivor.ID)
	if err != nil {
		return fmt.Errorf("listing survivor tickets: %w", err)
	}
	duplicateTickets, err := s.ticketStore.ListByContact(ctx, duplicate.ID)
	if err != nil {
		return fmt.Errorf("listing duplicate tickets: %w", err)
	}

	for i := range duplicateTickets {
		dupTicket := &duplicateTickets[i]
		absorbing := chooseAbsorbing(survivorTickets, dupTicket)

		if absorbing == nil {
			// No counterpart conversation: the ticket itself moves over.
			err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
				return stores.Tickets().ReparentContact(ctx, dupTicket.ID, survivor.ID)
			})
			if err != nil {
				return fmt.Errorf("re-parenting ticket %d: %w", dupTicket.ID, err)
			}
			dupTicket.ContactID = survivor.ID
			survivorTickets = append(survivorTickets, *dupTicket)
			report.ReparentedTickets++
			continue
		}

		var moved int64
		err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			var err error
			moved, err = stores.Messages().Reparent(ctx, dupTicket.ID, absorbing.ID)
			if err != nil {
				return err
			}
			return stores.Tickets().Delete(ctx, dupTicket.ID)
		})
		if err != nil {
			return fmt.Errorf("absorbing ticket %d into %d: %w", dupTicket.ID, absorbing.ID, err)
		}
		report.AbsorbedTickets++
		report.MovedMessages += moved

		s.notifyTicketDeleted(ctx, dupTicket)
		slog.InfoContext(ctx, "duplicate ticket absorbed",
			"duplicate_ticket_id", dupTicket.ID,
			"absorbing_ticket_id", absorbing.ID,
			"moved_messages", moved)
	}

	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if _, err := stores.Messages().ReassignContact(ctx, duplicate.ID, survivor.ID); err != nil {
			return err
		}
		return stores.Contacts().Delete(ctx, duplicate.ID)
	})
	if err != nil {
		return fmt.Errorf("deleting duplicate contact %d: %w", duplicate.ID, err)
	}
	report.MergedContactIDs = append(report.MergedContactIDs, duplicate.ID)

	slog.InfoContext(ctx, "duplicate contact merged",
		"duplicate_contact_id", duplicate.ID,
		"duplicate_number", duplicate.Number)
	return nil
}

// chooseAbsorbing picks the survivor ticket that should take over a duplicate
// ticket's messages: the same-connection ticket opened closest in time within
// the match window, else the most recent same-connection ticket, else none.
func chooseAbsorbing(survivorTickets []model.Ticket, dup *model.Ticket) *model.Ticket {
	var closest *model.Ticket
	var closestGap time.Duration
	var latest *model.Ticket

	for i := range survivorTickets {
		t := &survivorTickets[i]
		if t.ConnectionID != dup.ConnectionID {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
		gap := t.CreatedAt.Sub(dup.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= ticketMatchWindow && (closest == nil || gap < closestGap) {
			closest = t
			closestGap = gap
		}
	}

	if closest != nil {
		return closest
	}
	return latest
}

func (s *mergeService) notifyTicketDeleted(ctx context.Context, ticket *model.Ticket) {
	event := events.TicketEvent{
		Action: events.ActionDelete,
		Rooms: []string{
			string(ticket.Status),
			"notification",
			strconv.FormatInt(ticket.ID, 10),
		},
		Ticket: ticket,
	}
	if err := s.notifier.NotifyTicket(ctx, ticket.CompanyID, event); err != nil {
		slog.WarnContext(ctx, "failed to publish ticket delete event",
			"ticket_id", ticket.ID, "error", err)
	}
}
