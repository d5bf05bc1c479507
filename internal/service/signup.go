package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"atendo.app/desk/common/id"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
)

const minPasswordLen = 8

var (
	ErrEmailTaken       = errors.New("email is already registered")
	ErrCompanyNameTaken = errors.New("company name is already registered")
	ErrInvalidSignup    = errors.New("invalid signup input")
)

// SignUpInput is the self-service signup payload. The company identity comes
// from the activation token; the input provisions the first admin user.
type SignUpInput struct {
	Token     string
	AdminName string
	Email     string
	Password  string
	Phone     string
}

type SignUpResult struct {
	Company *model.Company `json:"company"`
	Admin   *model.User    `json:"admin"`
}

// SignUpService provisions a company from an activation token: company row,
// admin user and default settings in one transaction, consuming the token
// exactly once.
type SignUpService interface {
	SignUpCompany(ctx context.Context, input SignUpInput) (*SignUpResult, error)
}

type signUpService struct {
	txRunner TxRunner
}

func NewSignUpService(txRunner TxRunner) SignUpService {
	return &signUpService{txRunner: txRunner}
}

func (s *signUpService) SignUpCompany(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	adminName := strings.TrimSpace(input.AdminName)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidSignup)
	case adminName == "":
		return nil, fmt.Errorf("%w: admin name is required", ErrInvalidSignup)
	case len(input.Password) < minPasswordLen:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var result *SignUpResult
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		token, err := validateToken(ctx, stores.ActivationTokens(), input.Token)
		if err != nil {
			return err
		}

		company := &model.Company{
			ID:     id.New(),
			Name:   token.CompanyName,
			Phone:  strings.TrimSpace(input.Phone),
			Email:  email,
			Status: true,
			Plan:   token.Plan,
		}
		if err := stores.Companies().Create(ctx, company); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrCompanyNameTaken
			}
			return fmt.Errorf("creating company: %w", err)
		}

		admin := &model.User{
			ID:           id.New(),
			CompanyID:    company.ID,
			Name:         adminName,
			Email:        email,
			PasswordHash: string(hash),
			Profile:      "admin",
		}
		if err := stores.Users().Create(ctx, admin); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("creating admin user: %w", err)
		}

		if err := s.createDefaultSettings(ctx, stores, company.ID); err != nil {
			return err
		}

		// The status guard inside MarkUsed turns a lost race into
		// ErrNotFound: exactly one signup consumes the token.
		if err := stores.ActivationTokens().MarkUsed(ctx, token.ID, time.Now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenUsed
			}
			return fmt.Errorf("consuming activation token: %w", err)
		}

		result = &SignUpResult{Company: company, Admin: admin}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "company signed up",
		"company_id", result.Company.ID,
		"company_name", result.Company.Name,
		"admin_id", result.Admin.ID)
	return result, nil
}

func (s *signUpService) createDefaultSettings(ctx context.Context, stores StoreProvider, companyID int64) error {
	defaults := map[string]string{
		model.SettingKeyUrgencySystem: "disabled",
	}
	for key, value := range defaults {
		setting := &model.Setting{
			ID:        id.New(),
			CompanyID: companyID,
			Key:       key,
			Value:     value,
		}
		if err := stores.Settings().Upsert(ctx, setting); err != nil {
			return fmt.Errorf("creating default setting %s: %w", key, err)
		}
	}
	return nil
}
