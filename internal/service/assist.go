package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atendo.app/desk/common/llm"
	"atendo.app/desk/common/logger"
	"atendo.app/desk/internal/store"
)

var (
	ErrAssistDisabled = errors.New("ai assist is not configured")
	ErrEmptyText      = errors.New("text must not be empty")
)

// replyContextMessages is how much conversation history feeds reply drafts.
const replyContextMessages = 20

const improveSystemPrompt = `You polish helpdesk agent replies.
Rewrite the given text so it is clear, polite and professional.
Preserve the language, meaning and any factual details. Return only the rewritten text.`

const replySystemPrompt = `You draft helpdesk agent replies.
Given a conversation transcript between a customer and an agent, write the
agent's next reply. Match the customer's language, stay concise and helpful,
and never invent order numbers, prices or commitments. Return only the reply.`

// AssistService drafts and improves operator text with the configured LLM.
type AssistService interface {
	// ImproveText rewrites a draft reply.
	ImproveText(ctx context.Context, companyID int64, text string) (string, error)
	// GenerateReply drafts a reply from the ticket's recent history.
	GenerateReply(ctx context.Context, companyID, ticketID int64) (string, error)
}

type assistService struct {
	client       llm.Client // nil when the feature is unconfigured
	ticketStore  store.TicketStore
	messageStore store.MessageStore
}

func NewAssistService(client llm.Client, ticketStore store.TicketStore, messageStore store.MessageStore) AssistService {
	return &assistService{
		client:       client,
		ticketStore:  ticketStore,
		messageStore: messageStore,
	}
}

func (s *assistService) ImproveText(ctx context.Context, companyID int64, text string) (string, error) {
	if s.client == nil {
		return "", ErrAssistDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID: logger.Ptr(companyID),
		Component: "assist",
	})

	resp, err := s.client.Chat(ctx, llm.Request{
		SystemPrompt: improveSystemPrompt,
		UserPrompt:   text,
		Temperature:  llm.Temp(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("improving text: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *assistService) GenerateReply(ctx context.Context, companyID, ticketID int64) (string, error) {
	if s.client == nil {
		return "", ErrAssistDisabled
	}

	ticket, err := s.ticketStore.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTicketNotFound
		}
		return "", err
	}
	if ticket.CompanyID != companyID {
		return "", ErrForbidden
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CompanyID: logger.Ptr(companyID),
		TicketID:  logger.Ptr(ticketID),
		Component: "assist",
	})

	history, err := s.messageStore.ListByTicket(ctx, ticketID, replyContextMessages)
	if err != nil {
		return "", fmt.Errorf("loading ticket history: %w", err)
	}
	if len(history) == 0 {
		return "", ErrEmptyText
	}

	var transcript strings.Builder
	for _, msg := range history {
		role := "Customer"
		if msg.FromMe {
			role = "Agent"
		}
		body := msg.Body
		if body == "" && msg.Transcription != nil {
			body = *msg.Transcription
		}
		if body == "" {
			continue
		}
		fmt.Fprintf(&transcript, "%s: %s\n", role, body)
	}

	resp, err := s.client.Chat(ctx, llm.Request{
		SystemPrompt: replySystemPrompt,
		UserPrompt:   transcript.String(),
		Temperature:  llm.Temp(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
