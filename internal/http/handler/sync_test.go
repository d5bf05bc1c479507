package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"atendo.app/desk/internal/http/handler"
	"atendo.app/desk/internal/http/router"
	"atendo.app/desk/internal/service"
)

var _ = Describe("SyncHandler", func() {
	const companyID int64 = 100

	var (
		engine *gin.Engine
		svc    *mockSyncService
	)

	BeforeEach(func() {
		engine = authedRouter()
		svc = &mockSyncService{}
		router.SyncRouter(engine.Group("/sync"), handler.NewSyncHandler(svc))
	})

	Describe("Check", func() {
		It("returns the comparison with the caller's company scoped in", func() {
			svc.checkFn = func(_ context.Context, gotCompany, contactID, connectionID int64) (*service.SyncResult, error) {
				Expect(gotCompany).To(Equal(companyID))
				Expect(contactID).To(Equal(int64(1)))
				Expect(connectionID).To(Equal(int64(5)))
				return &service.SyncResult{
					Success:            true,
					ContactID:          contactID,
					MessagesInWhatsApp: 3,
					MessagesInDatabase: 1,
					MissingMessages:    2,
					Errors:             []string{},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sync/messages/check/1/5", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["missingMessages"]).To(BeEquivalentTo(2))
			Expect(resp["messagesInWhatsApp"]).To(BeEquivalentTo(3))
		})

		It("returns 401 without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/sync/messages/check/1/5", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns 400 for a non-numeric contact id", func() {
			req := httptest.NewRequest(http.MethodGet, "/sync/messages/check/abc/5", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 with a retry hint when the channel is down", func() {
			svc.checkFn = func(_ context.Context, _, _, _ int64) (*service.SyncResult, error) {
				return nil, service.ErrChannelUnavailable
			}

			req := httptest.NewRequest(http.MethodGet, "/sync/messages/check/1/5", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Header().Get("Retry-After")).To(Equal("30"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["code"]).To(Equal("channel_unavailable"))
		})

		It("returns 403 for a foreign contact", func() {
			svc.checkFn = func(_ context.Context, _, _, _ int64) (*service.SyncResult, error) {
				return nil, service.ErrForbidden
			}

			req := httptest.NewRequest(http.MethodGet, "/sync/messages/check/1/5", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["code"]).To(Equal("ERR_FORBIDDEN"))
		})
	})

	Describe("Sync", func() {
		It("passes the body limit through", func() {
			var gotLimit int
			svc.syncFn = func(_ context.Context, _, _, _ int64, limit int) (*service.SyncResult, error) {
				gotLimit = limit
				return &service.SyncResult{Success: true, SyncedMessages: 2, Errors: []string{}}, nil
			}

			body, _ := json.Marshal(map[string]int{"limit": 25})
			req := httptest.NewRequest(http.MethodPost, "/sync/messages/1/5", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotLimit).To(Equal(25))
		})

		It("treats a missing body as the default limit", func() {
			var gotLimit int
			svc.syncFn = func(_ context.Context, _, _, _ int64, limit int) (*service.SyncResult, error) {
				gotLimit = limit
				return &service.SyncResult{Success: true, Errors: []string{}}, nil
			}

			req := httptest.NewRequest(http.MethodPost, "/sync/messages/1/5", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotLimit).To(BeZero())
		})

		It("keeps partial failures in the 200 payload", func() {
			svc.syncFn = func(_ context.Context, _, _, _ int64, _ int) (*service.SyncResult, error) {
				return &service.SyncResult{
					Success:        true,
					SyncedMessages: 2,
					Errors:         []string{"m3: timed out"},
				}, nil
			}

			req := httptest.NewRequest(http.MethodPost, "/sync/messages/1/5", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["success"]).To(BeTrue())
			Expect(resp["errors"]).To(HaveLen(1))
		})
	})

	Describe("SyncTicket", func() {
		It("resolves through the ticket id", func() {
			svc.syncTicketFn = func(_ context.Context, gotCompany, ticketID int64, _ int) (*service.SyncResult, error) {
				Expect(gotCompany).To(Equal(companyID))
				Expect(ticketID).To(Equal(int64(77)))
				return &service.SyncResult{Success: true, Errors: []string{}}, nil
			}

			req := httptest.NewRequest(http.MethodPost, "/sync/messages/ticket/77", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 404 for an unknown ticket", func() {
			svc.syncTicketFn = func(_ context.Context, _, _ int64, _ int) (*service.SyncResult, error) {
				return nil, service.ErrTicketNotFound
			}

			req := httptest.NewRequest(http.MethodPost, "/sync/messages/ticket/404", nil)
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
