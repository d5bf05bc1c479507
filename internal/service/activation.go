package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atendo.app/desk/common/id"
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/store"
)

// ActivationTokenBytes is the entropy of a generated token; the stored form
// is the hex encoding, twice this long.
const ActivationTokenBytes = 16

var (
	ErrTokenNotFound = errors.New("activation token not found")
	ErrTokenUsed     = errors.New("activation token has already been used")
	ErrTokenExpired  = errors.New("activation token has expired")
)

// CreateActivationTokenInput carries the provisioning parameters baked into
// a token.
type CreateActivationTokenInput struct {
	CompanyName    string
	Plan           string
	MaxUsers       int
	MaxConnections int
	ExpiresAt      *time.Time
	CreatedBy      *int64
	Notes          string
}

// ActivationTokenService manages the single-use provisioning credentials
// consumed by company signup.
type ActivationTokenService interface {
	Create(ctx context.Context, input CreateActivationTokenInput) (*model.ActivationToken, error)
	Get(ctx context.Context, tokenID int64) (*model.ActivationToken, error)
	List(ctx context.Context, limit, offset int32) ([]model.ActivationToken, error)
	// Delete removes a token that was never consumed.
	Delete(ctx context.Context, tokenID int64) error
	// Validate resolves a token string to a consumable token, surfacing
	// why it cannot be consumed otherwise. Tokens found past their expiry
	// are flipped to expired on the way out.
	Validate(ctx context.Context, token string) (*model.ActivationToken, error)
}

type activationTokenService struct {
	tokenStore store.ActivationTokenStore
}

func NewActivationTokenService(tokenStore store.ActivationTokenStore) ActivationTokenService {
	return &activationTokenService{tokenStore: tokenStore}
}

func (s *activationTokenService) Create(ctx context.Context, input CreateActivationTokenInput) (*model.ActivationToken, error) {
	name := strings.TrimSpace(input.CompanyName)
	if name == "" {
		return nil, fmt.Errorf("company name is required")
	}

	raw := make([]byte, ActivationTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	token := &model.ActivationToken{
		ID:             id.New(),
		Token:          hex.EncodeToString(raw),
		CompanyName:    name,
		Plan:           input.Plan,
		MaxUsers:       max(input.MaxUsers, 1),
		MaxConnections: max(input.MaxConnections, 1),
		Status:         model.ActivationTokenStatusAvailable,
		ExpiresAt:      input.ExpiresAt,
		CreatedBy:      input.CreatedBy,
		Notes:          input.Notes,
	}
	if err := s.tokenStore.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("creating activation token: %w", err)
	}

	slog.InfoContext(ctx, "activation token created",
		"token_id", token.ID,
		"company_name", token.CompanyName,
		"expires_at", token.ExpiresAt)
	return token, nil
}

func (s *activationTokenService) Get(ctx context.Context, tokenID int64) (*model.ActivationToken, error) {
	token, err := s.tokenStore.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

func (s *activationTokenService) List(ctx context.Context, limit, offset int32) ([]model.ActivationToken, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.tokenStore.List(ctx, limit, offset)
}

func (s *activationTokenService) Delete(ctx context.Context, tokenID int64) error {
	token, err := s.Get(ctx, tokenID)
	if err != nil {
		return err
	}
	if token.Status == model.ActivationTokenStatusUsed {
		return ErrTokenUsed
	}
	return s.tokenStore.Delete(ctx, tokenID)
}

func (s *activationTokenService) Validate(ctx context.Context, token string) (*model.ActivationToken, error) {
	return validateToken(ctx, s.tokenStore, token)
}

// validateToken is shared with the signup transaction so the same checks run
// against transaction-bound stores.
func validateToken(ctx context.Context, tokens store.ActivationTokenStore, raw string) (*model.ActivationToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenNotFound
	}

	token, err := tokens.GetByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	switch token.Status {
	case model.ActivationTokenStatusUsed:
		return nil, ErrTokenUsed
	case model.ActivationTokenStatusExpired:
		return nil, ErrTokenExpired
	}

	if token.ExpiresAt != nil && time.Now().After(*token.ExpiresAt) {
		if err := tokens.MarkExpired(ctx, token.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "failed to mark token expired",
				"token_id", token.ID, "error", err)
		}
		return nil, ErrTokenExpired
	}
	return token, nil
}
