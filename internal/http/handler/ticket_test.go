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
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
)

var _ = Describe("TicketHandler", func() {
	const companyID int64 = 100

	var (
		engine   *gin.Engine
		svc      *mockTicketService
		outbound *mockOutboundService
	)

	BeforeEach(func() {
		engine = authedRouter()
		svc = &mockTicketService{}
		outbound = &mockOutboundService{}
		router.TicketRouter(engine.Group("/tickets"), handler.NewTicketHandler(svc, outbound))
	})

	It("returns the ticket with its contact embedded", func() {
		svc.showFn = func(_ context.Context, gotCompany, ticketID int64) (*service.TicketView, error) {
			Expect(gotCompany).To(Equal(companyID))
			return &service.TicketView{
				Ticket:  &model.Ticket{ID: ticketID, CompanyID: companyID, Status: model.TicketStatusOpen},
				Contact: &model.Contact{ID: 1, Name: "Alice"},
			}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/tickets/77", nil)
		authHeader(req, companyID)
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["status"]).To(Equal("open"))
		contact := resp["contact"].(map[string]any)
		Expect(contact["name"]).To(Equal("Alice"))
	})

	It("returns 404 for an unknown ticket", func() {
		svc.showFn = func(_ context.Context, _, _ int64) (*service.TicketView, error) {
			return nil, service.ErrTicketNotFound
		}

		req := httptest.NewRequest(http.MethodGet, "/tickets/404", nil)
		authHeader(req, companyID)
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("returns 403 for a foreign ticket", func() {
		svc.showFn = func(_ context.Context, _, _ int64) (*service.TicketView, error) {
			return nil, service.ErrForbidden
		}

		req := httptest.NewRequest(http.MethodGet, "/tickets/77", nil)
		authHeader(req, companyID)
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	Describe("SendMessage", func() {
		post := func(ticketID string, payload map[string]any) *httptest.ResponseRecorder {
			body, _ := json.Marshal(payload)
			req := httptest.NewRequest(http.MethodPost, "/tickets/"+ticketID+"/messages", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			return w
		}

		It("sends the reply and returns the recorded message", func() {
			outbound.sendFn = func(_ context.Context, gotCompany, ticketID int64, body string) (*model.Message, error) {
				Expect(gotCompany).To(Equal(companyID))
				Expect(ticketID).To(Equal(int64(77)))
				Expect(body).To(Equal("on my way"))
				return &model.Message{ID: "wire-out-9", TicketID: ticketID, FromMe: true, Body: body}, nil
			}

			w := post("77", map[string]any{"body": "on my way"})

			Expect(w.Code).To(Equal(http.StatusCreated))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("wire-out-9"))
		})

		It("returns 400 when the body field is missing", func() {
			w := post("77", map[string]any{})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 with a retry hint when the channel is unavailable", func() {
			outbound.sendFn = func(_ context.Context, _, _ int64, _ string) (*model.Message, error) {
				return nil, service.ErrChannelUnavailable
			}

			w := post("77", map[string]any{"body": "hello"})

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Header().Get("Retry-After")).To(Equal("30"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["code"]).To(Equal("channel_unavailable"))
		})

		It("returns 404 for an unknown ticket", func() {
			outbound.sendFn = func(_ context.Context, _, _ int64, _ string) (*model.Message, error) {
				return nil, service.ErrTicketNotFound
			}

			w := post("404", map[string]any{"body": "hello"})
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
