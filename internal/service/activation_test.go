package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

var _ = Describe("ActivationTokenService", func() {
	var (
		ctx    context.Context
		tokens *mockActivationTokenStore
		svc    service.ActivationTokenService
	)

	BeforeEach(func() {
		ctx = context.Background()
		tokens = &mockActivationTokenStore{}
		svc = service.NewActivationTokenService(tokens)
	})

	Describe("Create", func() {
		It("generates a unique hex token with the requested limits", func() {
			var created *model.ActivationToken
			tokens.createFn = func(_ context.Context, t *model.ActivationToken) error {
				created = t
				return nil
			}

			token, err := svc.Create(ctx, service.CreateActivationTokenInput{
				CompanyName:    "Acme",
				Plan:           "pro",
				MaxUsers:       5,
				MaxConnections: 2,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())
			Expect(token.Token).To(HaveLen(service.ActivationTokenBytes * 2))
			Expect(token.Token).To(MatchRegexp("^[0-9a-f]+$"))
			Expect(token.Status).To(Equal(model.ActivationTokenStatusAvailable))
			Expect(token.MaxUsers).To(Equal(5))
			Expect(token.MaxConnections).To(Equal(2))
		})

		It("rejects a blank company name", func() {
			_, err := svc.Create(ctx, service.CreateActivationTokenInput{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		It("returns an available token", func() {
			tokens.getByTokenFn = func(_ context.Context, raw string) (*model.ActivationToken, error) {
				return &model.ActivationToken{ID: 1, Token: raw, Status: model.ActivationTokenStatusAvailable}, nil
			}

			token, err := svc.Validate(ctx, "abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(token.ID).To(Equal(int64(1)))
		})

		It("distinguishes used tokens", func() {
			tokens.getByTokenFn = func(_ context.Context, raw string) (*model.ActivationToken, error) {
				return &model.ActivationToken{Status: model.ActivationTokenStatusUsed}, nil
			}
			_, err := svc.Validate(ctx, "abc123")
			Expect(err).To(MatchError(service.ErrTokenUsed))
		})

		It("flips an overdue token to expired on the way out", func() {
			past := time.Now().Add(-time.Hour)
			tokens.getByTokenFn = func(_ context.Context, raw string) (*model.ActivationToken, error) {
				return &model.ActivationToken{ID: 2, Status: model.ActivationTokenStatusAvailable, ExpiresAt: &past}, nil
			}

			_, err := svc.Validate(ctx, "abc123")

			Expect(err).To(MatchError(service.ErrTokenExpired))
			Expect(tokens.markedExpired).To(ConsistOf(int64(2)))
		})

		It("reports unknown tokens", func() {
			_, err := svc.Validate(ctx, "nope")
			Expect(err).To(MatchError(service.ErrTokenNotFound))
		})
	})

	Describe("Delete", func() {
		It("refuses to delete a consumed token", func() {
			tokens.getByIDFn = func(_ context.Context, id int64) (*model.ActivationToken, error) {
				return &model.ActivationToken{ID: id, Status: model.ActivationTokenStatusUsed}, nil
			}
			Expect(svc.Delete(ctx, 1)).To(MatchError(service.ErrTokenUsed))
		})

		It("deletes an unused token", func() {
			tokens.getByIDFn = func(_ context.Context, id int64) (*model.ActivationToken, error) {
				return &model.ActivationToken{ID: id, Status: model.ActivationTokenStatusAvailable}, nil
			}
			deleted := false
			tokens.deleteFn = func(_ context.Context, _ int64) error {
				deleted = true
				return nil
			}
			Expect(svc.Delete(ctx, 1)).To(Succeed())
			Expect(deleted).To(BeTrue())
		})
	})
})

var _ = Describe("SignUpService", func() {
	var (
		ctx      context.Context
		provider *mockStoreProvider
		txRunner *mockTxRunner
		svc      service.SignUpService
	)

	input := func() service.SignUpInput {
		return service.SignUpInput{
			Token:     "deadbeef",
			AdminName: "Alice",
			Email:     "Alice@Acme.com",
			Password:  "s3cret-pass",
			Phone:     "5537991470016",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		provider = newMockStoreProvider()
		txRunner = &mockTxRunner{provider: provider}
		svc = service.NewSignUpService(txRunner)

		provider.tokens.getByTokenFn = func(_ context.Context, raw string) (*model.ActivationToken, error) {
			return &model.ActivationToken{
				ID:          9,
				Token:       raw,
				CompanyName: "Acme",
				Plan:        "pro",
				Status:      model.ActivationTokenStatusAvailable,
			}, nil
		}
	})

	It("provisions company, admin and defaults, consuming the token once", func() {
		var company *model.Company
		provider.companies.createFn = func(_ context.Context, c *model.Company) error {
			company = c
			return nil
		}
		var admin *model.User
		provider.users.createFn = func(_ context.Context, u *model.User) error {
			admin = u
			return nil
		}

		result, err := svc.SignUpCompany(ctx, input())

		Expect(err).NotTo(HaveOccurred())
		Expect(company).NotTo(BeNil())
		Expect(company.Name).To(Equal("Acme"))
		Expect(company.Plan).To(Equal("pro"))
		Expect(admin).NotTo(BeNil())
		Expect(admin.CompanyID).To(Equal(company.ID))
		Expect(admin.Profile).To(Equal("admin"))
		Expect(admin.Email).To(Equal("alice@acme.com"))
		Expect(bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass"))).To(Succeed())
		Expect(provider.settings.upsertedKeys).To(ContainElement(model.SettingKeyUrgencySystem))
		Expect(provider.tokens.markedUsed).To(ConsistOf(int64(9)))
		Expect(result.Company).To(BeIdenticalTo(company))
	})

	It("rejects a used token", func() {
		provider.tokens.getByTokenFn = func(_ context.Context, _ string) (*model.ActivationToken, error) {
			return &model.ActivationToken{Status: model.ActivationTokenStatusUsed}, nil
		}

		_, err := svc.SignUpCompany(ctx, input())

		Expect(err).To(MatchError(service.ErrTokenUsed))
		Expect(provider.companies.createCalls).To(BeZero())
	})

	It("loses the race gracefully when another signup consumed the token", func() {
		provider.tokens.markUsedFn = func(_ context.Context, _ int64, _ time.Time) error {
			return store.ErrNotFound
		}

		_, err := svc.SignUpCompany(ctx, input())
		Expect(err).To(MatchError(service.ErrTokenUsed))
	})

	It("maps a duplicate email onto ErrEmailTaken", func() {
		provider.users.createFn = func(_ context.Context, _ *model.User) error {
			return store.ErrDuplicate
		}
		_, err := svc.SignUpCompany(ctx, input())
		Expect(err).To(MatchError(service.ErrEmailTaken))
	})

	It("validates the input before touching the store", func() {
		bad := input()
		bad.Password = "short"

		_, err := svc.SignUpCompany(ctx, bad)

		Expect(err).To(MatchError(service.ErrInvalidSignup))
		Expect(txRunner.txCount).To(BeZero())
	})
})
