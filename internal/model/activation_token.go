package model

import "time"

type ActivationTokenStatus string

const (
	ActivationTokenStatusAvailable ActivationTokenStatus = "available"
	ActivationTokenStatusUsed      ActivationTokenStatus = "used"
	ActivationTokenStatusExpired   ActivationTokenStatus = "expired"
)

// ActivationToken is a single-use provisioning credential consumed by
// self-service company signup.
type ActivationToken struct {
	ID             int64                 `json:"id"`
	Token          string                `json:"token"`
	CompanyName    string                `json:"company_name"`
	Plan           string                `json:"plan"`
	MaxUsers       int                   `json:"max_users"`
	MaxConnections int                   `json:"max_connections"`
	Status         ActivationTokenStatus `json:"status"`
	ExpiresAt      *time.Time            `json:"expires_at,omitempty"`
	UsedAt         *time.Time            `json:"used_at,omitempty"`
	CreatedBy      *int64                `json:"created_by,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func (t *ActivationToken) IsValid() bool {
	if t.Status != ActivationTokenStatusAvailable {
		return false
	}
	return t.ExpiresAt == nil || time.Now().Before(*t.ExpiresAt)
}
