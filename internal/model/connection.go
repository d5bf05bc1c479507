package model

import "time"

type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusOpening      ConnectionStatus = "OPENING"
)

// WhatsappConnection is the persisted record of one channel connection; the
// live protocol handle lives in the channel registry, keyed by ID.
type WhatsappConnection struct {
	ID        int64            `json:"id"`
	CompanyID int64            `json:"company_id"`
	Name      string           `json:"name"`
	Status    ConnectionStatus `json:"status"`
	IsDefault bool             `json:"is_default"`
	// DeviceJID binds the row to a stored protocol session, e.g.
	// "5537991470016:12@s.whatsapp.net". Empty until the session pairs.
	DeviceJID string    `json:"device_jid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
