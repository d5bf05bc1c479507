package service_test

import (
	"context"
	"time"

	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/events"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

type mockCompanyStore struct {
	getByIDFn    func(ctx context.Context, id int64) (*model.Company, error)
	getByNameFn  func(ctx context.Context, name string) (*model.Company, error)
	createFn     func(ctx context.Context, company *model.Company) error
	listActiveFn func(ctx context.Context) ([]model.Company, error)
	createCalls  int
}

func (m *mockCompanyStore) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockCompanyStore) GetByName(ctx context.Context, name string) (*model.Company, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, name)
	}
	return nil, store.ErrNotFound
}

func (m *mockCompanyStore) Create(ctx context.Context, company *model.Company) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, company)
	}
	return nil
}

func (m *mockCompanyStore) ListActive(ctx context.Context) ([]model.Company, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

type mockUserStore struct {
	getByIDFn    func(ctx context.Context, id int64) (*model.User, error)
	getByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn     func(ctx context.Context, user *model.User) error
	createCalls  int
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) Create(ctx context.Context, user *model.User) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSettingStore struct {
	getFn        func(ctx context.Context, companyID int64, key string) (*model.Setting, error)
	upsertFn     func(ctx context.Context, setting *model.Setting) error
	upsertedKeys []string
}

func (m *mockSettingStore) Get(ctx context.Context, companyID int64, key string) (*model.Setting, error) {
	if m.getFn != nil {
		return m.getFn(ctx, companyID, key)
	}
	return nil, store.ErrNotFound
}

func (m *mockSettingStore) Upsert(ctx context.Context, setting *model.Setting) error {
	m.upsertedKeys = append(m.upsertedKeys, setting.Key)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, setting)
	}
	return nil
}

func (m *mockSettingStore) ListByCompany(ctx context.Context, companyID int64) ([]model.Setting, error) {
	return nil, nil
}

type mockContactStore struct {
	getByIDFn                func(ctx context.Context, id int64) (*model.Contact, error)
	getByNumberFn            func(ctx context.Context, companyID int64, number string) (*model.Contact, error)
	listByNumberFn           func(ctx context.Context, companyID int64, number string) ([]model.Contact, error)
	listArtifactCandidatesFn func(ctx context.Context, companyID int64) ([]model.Contact, error)
	findMergeTargetFn        func(ctx context.Context, companyID int64, name string, excludeID int64) (*model.Contact, error)
	createFn                 func(ctx context.Context, contact *model.Contact) error
	updateFn                 func(ctx context.Context, contact *model.Contact) error
	deleteFn                 func(ctx context.Context, id int64) error
	deletedIDs               []int64
}

func (m *mockContactStore) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockContactStore) GetByNumber(ctx context.Context, companyID int64, number string) (*model.Contact, error) {
	if m.getByNumberFn != nil {
		return m.getByNumberFn(ctx, companyID, number)
	}
	return nil, store.ErrNotFound
}

func (m *mockContactStore) ListByNumber(ctx context.Context, companyID int64, number string) ([]model.Contact, error) {
	if m.listByNumberFn != nil {
		return m.listByNumberFn(ctx, companyID, number)
	}
	return nil, nil
}

func (m *mockContactStore) ListArtifactCandidates(ctx context.Context, companyID int64) ([]model.Contact, error) {
	if m.listArtifactCandidatesFn != nil {
		return m.listArtifactCandidatesFn(ctx, companyID)
	}
	return nil, nil
}

func (m *mockContactStore) FindMergeTarget(ctx context.Context, companyID int64, name string, excludeID int64) (*model.Contact, error) {
	if m.findMergeTargetFn != nil {
		return m.findMergeTargetFn(ctx, companyID, name, excludeID)
	}
	return nil, store.ErrNotFound
}

func (m *mockContactStore) Create(ctx context.Context, contact *model.Contact) error {
	if m.createFn != nil {
		return m.createFn(ctx, contact)
	}
	return nil
}

func (m *mockContactStore) Update(ctx context.Context, contact *model.Contact) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, contact)
	}
	return nil
}

func (m *mockContactStore) Delete(ctx context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockTicketStore struct {
	getByIDFn               func(ctx context.Context, id int64) (*model.Ticket, error)
	createFn                func(ctx context.Context, ticket *model.Ticket) error
	listByContactFn         func(ctx context.Context, contactID int64) ([]model.Ticket, error)
	reparentContactFn       func(ctx context.Context, ticketID, contactID int64) error
	deleteFn                func(ctx context.Context, id int64) error
	updateOnMessageFn       func(ctx context.Context, id int64, lastMessage string, inbound bool) error
	listUrgencyCandidatesFn func(ctx context.Context, companyID int64) ([]model.Ticket, error)
	listUrgentFn            func(ctx context.Context, companyID int64) ([]model.Ticket, error)
	setUrgentAtFn           func(ctx context.Context, id int64, at time.Time) error
	clearUrgentFn           func(ctx context.Context, id int64, lastResponseAt time.Time) error

	flaggedIDs    []int64
	clearedIDs    []int64
	reparentedIDs []int64
	deletedIDs    []int64
}

func (m *mockTicketStore) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockTicketStore) Create(ctx context.Context, ticket *model.Ticket) error {
	if m.createFn != nil {
		return m.createFn(ctx, ticket)
	}
	return nil
}

func (m *mockTicketStore) ListByContact(ctx context.Context, contactID int64) ([]model.Ticket, error) {
	if m.listByContactFn != nil {
		return m.listByContactFn(ctx, contactID)
	}
	return nil, nil
}

func (m *mockTicketStore) ReparentContact(ctx context.Context, ticketID, contactID int64) error {
	m.reparentedIDs = append(m.reparentedIDs, ticketID)
	if m.reparentContactFn != nil {
		return m.reparentContactFn(ctx, ticketID, contactID)
	}
	return nil
}

func (m *mockTicketStore) Delete(ctx context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockTicketStore) UpdateOnMessage(ctx context.Context, id int64, lastMessage string, inbound bool) error {
	if m.updateOnMessageFn != nil {
		return m.updateOnMessageFn(ctx, id, lastMessage, inbound)
	}
	return nil
}

func (m *mockTicketStore) ListUrgencyCandidates(ctx context.Context, companyID int64) ([]model.Ticket, error) {
	if m.listUrgencyCandidatesFn != nil {
		return m.listUrgencyCandidatesFn(ctx, companyID)
	}
	return nil, nil
}

func (m *mockTicketStore) ListUrgent(ctx context.Context, companyID int64) ([]model.Ticket, error) {
	if m.listUrgentFn != nil {
		return m.listUrgentFn(ctx, companyID)
	}
	return nil, nil
}

func (m *mockTicketStore) SetUrgentAt(ctx context.Context, id int64, at time.Time) error {
	m.flaggedIDs = append(m.flaggedIDs, id)
	if m.setUrgentAtFn != nil {
		return m.setUrgentAtFn(ctx, id, at)
	}
	return nil
}

func (m *mockTicketStore) ClearUrgent(ctx context.Context, id int64, lastResponseAt time.Time) error {
	m.clearedIDs = append(m.clearedIDs, id)
	if m.clearUrgentFn != nil {
		return m.clearUrgentFn(ctx, id, lastResponseAt)
	}
	return nil
}

type mockMessageStore struct {
	getByIDFn             func(ctx context.Context, id string) (*model.Message, error)
	createFn              func(ctx context.Context, msg *model.Message) error
	listByTicketFn        func(ctx context.Context, ticketID int64, limit int32) ([]model.Message, error)
	listIDsByContactFn    func(ctx context.Context, contactID int64) ([]string, error)
	countByContactFn      func(ctx context.Context, contactID int64) (int64, error)
	latestInboundFn       func(ctx context.Context, ticketID int64) (*model.Message, error)
	latestOutboundAfterFn func(ctx context.Context, ticketID int64, after time.Time) (*model.Message, error)
	reparentFn            func(ctx context.Context, fromTicketID, toTicketID int64) (int64, error)
	reassignContactFn     func(ctx context.Context, fromContactID, toContactID int64) (int64, error)
}

func (m *mockMessageStore) GetByID(ctx context.Context, id string) (*model.Message, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockMessageStore) Create(ctx context.Context, msg *model.Message) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageStore) ListByTicket(ctx context.Context, ticketID int64, limit int32) ([]model.Message, error) {
	if m.listByTicketFn != nil {
		return m.listByTicketFn(ctx, ticketID, limit)
	}
	return nil, nil
}

func (m *mockMessageStore) ListIDsByContact(ctx context.Context, contactID int64) ([]string, error) {
	if m.listIDsByContactFn != nil {
		return m.listIDsByContactFn(ctx, contactID)
	}
	return nil, nil
}

func (m *mockMessageStore) CountByContact(ctx context.Context, contactID int64) (int64, error) {
	if m.countByContactFn != nil {
		return m.countByContactFn(ctx, contactID)
	}
	return 0, nil
}

func (m *mockMessageStore) LatestInbound(ctx context.Context, ticketID int64) (*model.Message, error) {
	if m.latestInboundFn != nil {
		return m.latestInboundFn(ctx, ticketID)
	}
	return nil, store.ErrNotFound
}

func (m *mockMessageStore) LatestOutboundAfter(ctx context.Context, ticketID int64, after time.Time) (*model.Message, error) {
	if m.latestOutboundAfterFn != nil {
		return m.latestOutboundAfterFn(ctx, ticketID, after)
	}
	return nil, store.ErrNotFound
}

func (m *mockMessageStore) Reparent(ctx context.Context, fromTicketID, toTicketID int64) (int64, error) {
	if m.reparentFn != nil {
		return m.reparentFn(ctx, fromTicketID, toTicketID)
	}
	return 0, nil
}

func (m *mockMessageStore) ReassignContact(ctx context.Context, fromContactID, toContactID int64) (int64, error) {
	if m.reassignContactFn != nil {
		return m.reassignContactFn(ctx, fromContactID, toContactID)
	}
	return 0, nil
}

type mockActivationTokenStore struct {
	getByIDFn     func(ctx context.Context, id int64) (*model.ActivationToken, error)
	getByTokenFn  func(ctx context.Context, token string) (*model.ActivationToken, error)
	createFn      func(ctx context.Context, token *model.ActivationToken) error
	listFn        func(ctx context.Context, limit, offset int32) ([]model.ActivationToken, error)
	markUsedFn    func(ctx context.Context, id int64, usedAt time.Time) error
	markExpiredFn func(ctx context.Context, id int64) error
	deleteFn      func(ctx context.Context, id int64) error

	markedUsed    []int64
	markedExpired []int64
}

func (m *mockActivationTokenStore) GetByID(ctx context.Context, id int64) (*model.ActivationToken, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockActivationTokenStore) GetByToken(ctx context.Context, token string) (*model.ActivationToken, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, store.ErrNotFound
}

func (m *mockActivationTokenStore) Create(ctx context.Context, token *model.ActivationToken) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockActivationTokenStore) List(ctx context.Context, limit, offset int32) ([]model.ActivationToken, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockActivationTokenStore) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	m.markedUsed = append(m.markedUsed, id)
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, id, usedAt)
	}
	return nil
}

func (m *mockActivationTokenStore) MarkExpired(ctx context.Context, id int64) error {
	m.markedExpired = append(m.markedExpired, id)
	if m.markExpiredFn != nil {
		return m.markExpiredFn(ctx, id)
	}
	return nil
}

func (m *mockActivationTokenStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockStoreProvider backs mockTxRunner so transactional code paths run over
// the same mocks as direct store access.
type mockStoreProvider struct {
	companies *mockCompanyStore
	users     *mockUserStore
	settings  *mockSettingStore
	contacts  *mockContactStore
	tickets   *mockTicketStore
	messages  *mockMessageStore
	tokens    *mockActivationTokenStore
}

func newMockStoreProvider() *mockStoreProvider {
	return &mockStoreProvider{
		companies: &mockCompanyStore{},
		users:     &mockUserStore{},
		settings:  &mockSettingStore{},
		contacts:  &mockContactStore{},
		tickets:   &mockTicketStore{},
		messages:  &mockMessageStore{},
		tokens:    &mockActivationTokenStore{},
	}
}

func (p *mockStoreProvider) Companies() store.CompanyStore { return p.companies }
func (p *mockStoreProvider) Users() store.UserStore        { return p.users }
func (p *mockStoreProvider) Settings() store.SettingStore  { return p.settings }
func (p *mockStoreProvider) Contacts() store.ContactStore  { return p.contacts }
func (p *mockStoreProvider) Tickets() store.TicketStore    { return p.tickets }
func (p *mockStoreProvider) Messages() store.MessageStore  { return p.messages }

func (p *mockStoreProvider) ActivationTokens() store.ActivationTokenStore { return p.tokens }

type mockTxRunner struct {
	provider *mockStoreProvider
	txCount  int
}

func (r *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	r.txCount++
	return fn(r.provider)
}

type mockNotifier struct {
	events []notifiedEvent
}

type notifiedEvent struct {
	companyID int64
	event     events.TicketEvent
}

func (m *mockNotifier) NotifyTicket(ctx context.Context, companyID int64, event events.TicketEvent) error {
	m.events = append(m.events, notifiedEvent{companyID: companyID, event: event})
	return nil
}

type mockIngestor struct {
	processFn func(ctx context.Context, companyID, connectionID int64, msg channel.ChatMessage) (*model.Message, error)
	processed []channel.ChatMessage
}

func (m *mockIngestor) ProcessExternal(ctx context.Context, companyID, connectionID int64, msg channel.ChatMessage) (*model.Message, error) {
	m.processed = append(m.processed, msg)
	if m.processFn != nil {
		return m.processFn(ctx, companyID, connectionID, msg)
	}
	return &model.Message{ID: msg.ID}, nil
}

// fakeConn is a canned channel connection for sync and outbound tests.
type fakeConn struct {
	connected bool
	messages  []channel.ChatMessage
	err       error
	sendFn    func(ctx context.Context, jid, body string) (channel.ChatMessage, error)

	sentJIDs    []string
	sentBodies  []string
	clearedJIDs []string
}

func (c *fakeConn) IsConnected() bool { return c.connected }

func (c *fakeConn) SendText(ctx context.Context, jid, body string) (channel.ChatMessage, error) {
	c.sentJIDs = append(c.sentJIDs, jid)
	c.sentBodies = append(c.sentBodies, body)
	if c.sendFn != nil {
		return c.sendFn(ctx, jid, body)
	}
	return channel.ChatMessage{
		ID:        "wire-out-1",
		ChatJID:   jid,
		FromMe:    true,
		Body:      body,
		Timestamp: time.Now(),
	}, nil
}

func (c *fakeConn) CachedMessages(ctx context.Context, jid string, limit int) ([]channel.ChatMessage, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.messages, nil
}

func (c *fakeConn) ClearCache(jid string) {
	c.clearedJIDs = append(c.clearedJIDs, jid)
}
