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
)

// DefaultUrgencyThreshold is how long a customer message may sit unanswered
// before the ticket is flagged.
const DefaultUrgencyThreshold = 10 * time.Minute

// SweepStats summarizes one urgency sweep.
type SweepStats struct {
	CompaniesSwept int
	Marked         int
	Cleared        int
}

// UrgencyService flags tickets whose latest customer message has gone
// unanswered past the threshold, and clears the flag once resolved.
type UrgencyService interface {
	// SweepOnce runs both passes over every active company. Per-company
	// failures are logged and skipped; the sweep itself never fails
	// halfway into a company list because of one tenant.
	SweepOnce(ctx context.Context, now time.Time) (SweepStats, error)
	// SweepCompany runs both passes for a single company.
	SweepCompany(ctx context.Context, companyID int64, now time.Time) (SweepStats, error)
}

type urgencyService struct {
	companyStore store.CompanyStore
	settingStore store.SettingStore
	ticketStore  store.TicketStore
	messageStore store.MessageStore
	notifier     events.Notifier
	threshold    time.Duration
}

func NewUrgencyService(
	companyStore store.CompanyStore,
	settingStore store.SettingStore,
	ticketStore store.TicketStore,
	messageStore store.MessageStore,
	notifier events.Notifier,
	threshold time.Duration,
) UrgencyService {
	if threshold <= 0 {
		threshold = DefaultUrgencyThreshold
	}
	return &urgencyService{
		companyStore: companyStore,
		settingStore: settingStore,
		ticketStore:  ticketStore,
		messageStore: messageStore,
		notifier:     notifier,
		threshold:    threshold,
	}
}

func (s *urgencyService) SweepOnce(ctx context.Context, now time.Time) (SweepStats, error) {
	companies, err := s.companyStore.ListActive(ctx)
	if err != nil {
		return SweepStats{}, fmt.Errorf("listing companies: %w", err)
	}

	var total SweepStats
	for _, company := range companies {
		stats, err := s.SweepCompany(ctx, company.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "urgency sweep failed for company",
				"company_id", company.ID, "error", err)
			continue
		}
		total.CompaniesSwept++
		total.Marked += stats.Marked
		total.Cleared += stats.Cleared
	}
	return total, nil
}

func (s *urgencyService) SweepCompany(ctx context.Context, companyID int64, now time.Time) (SweepStats, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID: logger.Ptr(companyID),
		Component: "urgency",
	})

	enabled, err := s.enabled(ctx, companyID)
	if err != nil {
		return SweepStats{}, err
	}
	if !enabled {
		return SweepStats{}, nil
	}

	stats := SweepStats{CompaniesSwept: 1}
	stats.Marked = s.markPass(ctx, companyID, now)
	stats.Cleared = s.clearPass(ctx, companyID, now)
	return stats, nil
}

func (s *urgencyService) enabled(ctx context.Context, companyID int64) (bool, error) {
	setting, err := s.settingStore.Get(ctx, companyID, model.SettingKeyUrgencySystem)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reading urgency setting: %w", err)
	}
	return setting.Enabled(), nil
}

// markPass flags candidates whose latest customer message is older than the
// threshold with no operator reply after it.
func (s *urgencyService) markPass(ctx context.Context, companyID int64, now time.Time) int {
	candidates, err := s.ticketStore.ListUrgencyCandidates(ctx, companyID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list urgency candidates", "error", err)
		return 0
	}

	marked := 0
	for i := range candidates {
		ticket := &candidates[i]
		inbound, answered, err := s.latestExchange(ctx, ticket.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to inspect ticket messages",
				"ticket_id", ticket.ID, "error", err)
			continue
		}
		// Tickets with no customer message are never urgent, and neither
		// are tickets whose last customer message is still fresh.
		if inbound == nil || answered || now.Sub(inbound.CreatedAt) < s.threshold {
			continue
		}

		if err := s.ticketStore.SetUrgentAt(ctx, ticket.ID, now); err != nil {
			// Already flagged by a concurrent sweep; the notification
			// stays single-shot.
			if !errors.Is(err, store.ErrNotFound) {
				slog.ErrorContext(ctx, "failed to flag ticket urgent",
					"ticket_id", ticket.ID, "error", err)
			}
			continue
		}
		ticket.UrgentAt = &now
		marked++

		s.notify(ctx, ticket, true)
		slog.InfoContext(ctx, "ticket flagged urgent",
			"ticket_id", ticket.ID,
			"unanswered_for", now.Sub(inbound.CreatedAt).Round(time.Second))
	}
	return marked
}

// clearPass drops the flag from tickets that were answered or left the
// open/pending states.
func (s *urgencyService) clearPass(ctx context.Context, companyID int64, now time.Time) int {
	urgent, err := s.ticketStore.ListUrgent(ctx, companyID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list urgent tickets", "error", err)
		return 0
	}

	cleared := 0
	for i := range urgent {
		ticket := &urgent[i]

		resolvedAt := now
		resolved := !ticket.IsActive()
		if !resolved {
			inbound, answered, err := s.latestExchange(ctx, ticket.ID)
			if err != nil {
				slog.ErrorContext(ctx, "failed to inspect ticket messages",
					"ticket_id", ticket.ID, "error", err)
				continue
			}
			if inbound == nil {
				resolved = true
			} else if answered {
				resolved = true
				if reply, err := s.messageStore.LatestOutboundAfter(ctx, ticket.ID, inbound.CreatedAt); err == nil {
					resolvedAt = reply.CreatedAt
				}
			}
		}
		if !resolved {
			continue
		}

		if err := s.ticketStore.ClearUrgent(ctx, ticket.ID, resolvedAt); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				slog.ErrorContext(ctx, "failed to clear urgent flag",
					"ticket_id", ticket.ID, "error", err)
			}
			continue
		}
		ticket.UrgentAt = nil
		ticket.LastResponseAt = &resolvedAt
		cleared++

		s.notify(ctx, ticket, false)
		slog.InfoContext(ctx, "ticket no longer urgent", "ticket_id", ticket.ID)
	}
	return cleared
}

// latestExchange returns the latest customer message and whether an operator
// reply exists strictly after it.
func (s *urgencyService) latestExchange(ctx context.Context, ticketID int64) (*model.Message, bool, error) {
	inbound, err := s.messageStore.LatestInbound(ctx, ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	_, err = s.messageStore.LatestOutboundAfter(ctx, ticketID, inbound.CreatedAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return inbound, false, nil
		}
		return nil, false, err
	}
	return inbound, true, nil
}

func (s *urgencyService) notify(ctx context.Context, ticket *model.Ticket, urgent bool) {
	event := events.TicketEvent{
		Action: events.ActionUpdate,
		Rooms: []string{
			string(ticket.Status),
			"notification",
			strconv.FormatInt(ticket.ID, 10),
		},
		Ticket: ticket,
		Urgent: &urgent,
	}
	if err := s.notifier.NotifyTicket(ctx, ticket.CompanyID, event); err != nil {
		slog.WarnContext(ctx, "failed to publish urgency event",
			"ticket_id", ticket.ID, "error", err)
	}
}
