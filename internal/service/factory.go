package service

import (
	"time"

	"atendo.app/desk/common/llm"
	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/events"
	"atendo.app/desk/internal/store"
)

type Services struct {
	stores           *store.Stores
	txRunner         TxRunner
	registry         *channel.Registry
	notifier         events.Notifier
	llmClient        llm.Client
	urgencyThreshold time.Duration
	syncCfg          SyncConfig
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	registry *channel.Registry,
	notifier events.Notifier,
	llmClient llm.Client,
	urgencyThreshold time.Duration,
	syncCfg SyncConfig,
) *Services {
	return &Services{
		stores:           stores,
		txRunner:         txRunner,
		registry:         registry,
		notifier:         notifier,
		llmClient:        llmClient,
		urgencyThreshold: urgencyThreshold,
		syncCfg:          syncCfg,
	}
}

func (s *Services) Urgency() UrgencyService {
	return NewUrgencyService(
		s.stores.Companies(),
		s.stores.Settings(),
		s.stores.Tickets(),
		s.stores.Messages(),
		s.notifier,
		s.urgencyThreshold,
	)
}

func (s *Services) Merge() MergeService {
	return NewMergeService(s.stores.Contacts(), s.stores.Tickets(), s.txRunner, s.notifier)
}

func (s *Services) Contacts() ContactService {
	return NewContactService(s.stores.Contacts(), s.Merge())
}

func (s *Services) Tickets() TicketService {
	return NewTicketService(s.stores.Tickets(), s.stores.Contacts())
}

func (s *Services) Ingestor() MessageIngestor {
	return NewMessageIngestor(s.txRunner, s.notifier)
}

func (s *Services) Sync() SyncService {
	return NewSyncService(
		s.stores.Contacts(),
		s.stores.Tickets(),
		s.stores.Messages(),
		s.registry,
		s.Ingestor(),
		s.syncCfg,
	)
}

func (s *Services) Outbound() OutboundService {
	return NewOutboundService(
		s.stores.Tickets(),
		s.stores.Contacts(),
		s.stores.Messages(),
		s.registry,
		s.Ingestor(),
		SendConfig{CallTimeout: s.syncCfg.CallTimeout},
	)
}

func (s *Services) ActivationTokens() ActivationTokenService {
	return NewActivationTokenService(s.stores.ActivationTokens())
}

func (s *Services) SignUp() SignUpService {
	return NewSignUpService(s.txRunner)
}

func (s *Services) Assist() AssistService {
	return NewAssistService(s.llmClient, s.stores.Tickets(), s.stores.Messages())
}
