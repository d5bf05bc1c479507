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

var _ = Describe("AssistHandler", func() {
	const companyID int64 = 100

	var (
		engine *gin.Engine
		svc    *mockAssistService
	)

	BeforeEach(func() {
		engine = authedRouter()
		svc = &mockAssistService{}
		router.AssistRouter(engine.Group("/ai"), handler.NewAssistHandler(svc))
	})

	Describe("Improve", func() {
		It("returns the rewritten text", func() {
			svc.improveFn = func(_ context.Context, gotCompany int64, text string) (string, error) {
				Expect(gotCompany).To(Equal(companyID))
				Expect(text).To(Equal("pls fix asap"))
				return "Could you please fix this as soon as possible?", nil
			}

			body, _ := json.Marshal(map[string]string{"text": "pls fix asap"})
			req := httptest.NewRequest(http.MethodPost, "/ai/improve", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["text"]).To(ContainSubstring("as soon as possible"))
		})

		It("returns 503 when assist is not configured", func() {
			svc.improveFn = func(_ context.Context, _ int64, _ string) (string, error) {
				return "", service.ErrAssistDisabled
			}

			body, _ := json.Marshal(map[string]string{"text": "hello"})
			req := httptest.NewRequest(http.MethodPost, "/ai/improve", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("returns 400 without text", func() {
			req := httptest.NewRequest(http.MethodPost, "/ai/improve", bytes.NewBufferString("{}"))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Reply", func() {
		It("drafts a reply for the ticket", func() {
			svc.replyFn = func(_ context.Context, _, ticketID int64) (string, error) {
				Expect(ticketID).To(Equal(int64(77)))
				return "Hi! Thanks for reaching out.", nil
			}

			body, _ := json.Marshal(map[string]int64{"ticketId": 77})
			req := httptest.NewRequest(http.MethodPost, "/ai/reply", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 404 for an unknown ticket", func() {
			svc.replyFn = func(_ context.Context, _, _ int64) (string, error) {
				return "", service.ErrTicketNotFound
			}

			body, _ := json.Marshal(map[string]int64{"ticketId": 404})
			req := httptest.NewRequest(http.MethodPost, "/ai/reply", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			authHeader(req, companyID)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
