package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

var _ = Describe("SyncService", func() {
	const (
		companyID    int64 = 100
		contactID    int64 = 1
		connectionID int64 = 5
	)

	var (
		ctx      context.Context
		contacts *mockContactStore
		tickets  *mockTicketStore
		messages *mockMessageStore
		registry *channel.Registry
		conn     *fakeConn
		ingestor *mockIngestor
		svc      service.SyncService
	)

	chatMsg := func(id string) channel.ChatMessage {
		return channel.ChatMessage{ID: id, ChatJID: "5537991470016@s.whatsapp.net", Body: "hi " + id}
	}

	BeforeEach(func() {
		ctx = context.Background()
		contacts = &mockContactStore{}
		tickets = &mockTicketStore{}
		messages = &mockMessageStore{}
		registry = channel.NewRegistry()
		conn = &fakeConn{connected: true}
		registry.Register(connectionID, conn)
		ingestor = &mockIngestor{}

		contacts.getByIDFn = func(_ context.Context, id int64) (*model.Contact, error) {
			if id != contactID {
				return nil, store.ErrNotFound
			}
			return &model.Contact{ID: contactID, CompanyID: companyID, Name: "Alice", Number: "5537991470016"}, nil
		}

		svc = service.NewSyncService(contacts, tickets, messages, registry, ingestor, service.SyncConfig{
			DefaultLimit: 10,
			ItemDelay:    time.Millisecond,
			CallTimeout:  time.Second,
		})
	})

	Describe("CheckSync", func() {
		It("reports counts without mutating anything", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b"), chatMsg("c")}
			messages.listIDsByContactFn = func(_ context.Context, _ int64) ([]string, error) {
				return []string{"a"}, nil
			}

			result, err := svc.CheckSync(ctx, companyID, contactID, connectionID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.ContactID).To(Equal(contactID))
			Expect(result.ContactName).To(Equal("Alice"))
			Expect(result.MessagesInWhatsApp).To(Equal(3))
			Expect(result.MessagesInDatabase).To(Equal(1))
			Expect(result.MissingMessages).To(Equal(2))
			Expect(result.SyncedMessages).To(BeZero())
			Expect(ingestor.processed).To(BeEmpty())
		})

		It("fails with ErrChannelUnavailable when the connection is not registered", func() {
			_, err := svc.CheckSync(ctx, companyID, contactID, connectionID+1)
			Expect(err).To(MatchError(service.ErrChannelUnavailable))
		})

		It("fails with ErrChannelUnavailable when the socket is down", func() {
			conn.connected = false
			_, err := svc.CheckSync(ctx, companyID, contactID, connectionID)
			Expect(err).To(MatchError(service.ErrChannelUnavailable))
		})

		It("rejects a contact owned by another company", func() {
			_, err := svc.CheckSync(ctx, companyID+1, contactID, connectionID)
			Expect(err).To(MatchError(service.ErrForbidden))
		})
	})

	Describe("SyncMessages", func() {
		It("replays missing messages oldest first through the ingestion path", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b"), chatMsg("c")}
			messages.listIDsByContactFn = func(_ context.Context, _ int64) ([]string, error) {
				return []string{"b"}, nil
			}

			result, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.MissingMessages).To(Equal(2))
			Expect(result.SyncedMessages).To(Equal(2))
			Expect(result.Errors).To(BeEmpty())
			Expect(ingestor.processed).To(HaveLen(2))
			Expect(ingestor.processed[0].ID).To(Equal("a"))
			Expect(ingestor.processed[1].ID).To(Equal("c"))
		})

		It("caps the replay at the requested limit", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b"), chatMsg("c")}

			result, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MissingMessages).To(Equal(2))
			Expect(result.SyncedMessages).To(Equal(2))
			Expect(ingestor.processed).To(HaveLen(2))
		})

		It("collects per-item failures without aborting the rest", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b"), chatMsg("c")}
			ingestor.processFn = func(_ context.Context, _, _ int64, msg channel.ChatMessage) (*model.Message, error) {
				if msg.ID == "b" {
					return nil, context.DeadlineExceeded
				}
				return &model.Message{ID: msg.ID}, nil
			}

			result, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.SyncedMessages).To(Equal(2))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0]).To(ContainSubstring("b"))
		})

		It("treats an already ingested message as synced", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a")}
			ingestor.processFn = func(_ context.Context, _, _ int64, _ channel.ChatMessage) (*model.Message, error) {
				return nil, service.ErrMessageExists
			}

			result, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.SyncedMessages).To(Equal(1))
			Expect(result.Errors).To(BeEmpty())
		})

		It("clears the chat cache after a clean full backfill", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b")}

			result, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.SyncedMessages).To(Equal(2))
			Expect(conn.clearedJIDs).To(ConsistOf("5537991470016@s.whatsapp.net"))
		})

		It("keeps the cache when the replay was truncated by the limit", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b"), chatMsg("c")}

			_, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(conn.clearedJIDs).To(BeEmpty())
		})

		It("keeps the cache when any item failed to replay", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b")}
			ingestor.processFn = func(_ context.Context, _, _ int64, msg channel.ChatMessage) (*model.Message, error) {
				if msg.ID == "b" {
					return nil, context.DeadlineExceeded
				}
				return &model.Message{ID: msg.ID}, nil
			}

			_, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(conn.clearedJIDs).To(BeEmpty())
		})

		It("reports zero missing right after a successful sync", func() {
			conn.messages = []channel.ChatMessage{chatMsg("a"), chatMsg("b")}
			synced := map[string]struct{}{}
			ingestor.processFn = func(_ context.Context, _, _ int64, msg channel.ChatMessage) (*model.Message, error) {
				synced[msg.ID] = struct{}{}
				return &model.Message{ID: msg.ID}, nil
			}
			messages.listIDsByContactFn = func(_ context.Context, _ int64) ([]string, error) {
				ids := make([]string, 0, len(synced))
				for id := range synced {
					ids = append(ids, id)
				}
				return ids, nil
			}

			result, err := svc.SyncMessages(ctx, companyID, contactID, connectionID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SyncedMessages).To(Equal(2))

			check, err := svc.CheckSync(ctx, companyID, contactID, connectionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(check.MissingMessages).To(BeZero())
		})
	})

	Describe("SyncTicketMessages", func() {
		It("resolves the ticket to its contact and connection", func() {
			tickets.getByIDFn = func(_ context.Context, id int64) (*model.Ticket, error) {
				return &model.Ticket{ID: id, CompanyID: companyID, ContactID: contactID, ConnectionID: connectionID}, nil
			}
			conn.messages = []channel.ChatMessage{chatMsg("a")}

			result, err := svc.SyncTicketMessages(ctx, companyID, 77, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.SyncedMessages).To(Equal(1))
		})

		It("returns ErrTicketNotFound for unknown tickets", func() {
			_, err := svc.SyncTicketMessages(ctx, companyID, 404, 0)
			Expect(err).To(MatchError(service.ErrTicketNotFound))
		})

		It("rejects a ticket owned by another company", func() {
			tickets.getByIDFn = func(_ context.Context, id int64) (*model.Ticket, error) {
				return &model.Ticket{ID: id, CompanyID: companyID + 1}, nil
			}
			_, err := svc.SyncTicketMessages(ctx, companyID, 77, 0)
			Expect(err).To(MatchError(service.ErrForbidden))
		})
	})
})
