package model

import "time"

// Message is one inbound or outbound communication event. Messages are
// immutable after creation apart from two exceptions: ticket re-parenting
// during duplicate merges and transcription backfill.
type Message struct {
	ID            string     `json:"id"` // wire-level id from the channel
	TicketID      int64      `json:"ticket_id"`
	ContactID     int64      `json:"contact_id"`
	CompanyID     int64      `json:"company_id"`
	FromMe        bool       `json:"from_me"`
	Body          string     `json:"body"`
	Ack           int        `json:"ack"`
	Read          bool       `json:"read"`
	MediaType     string     `json:"media_type"`
	MediaURL      *string    `json:"media_url,omitempty"`
	Transcription *string    `json:"transcription,omitempty"`
	DataJSON      []byte     `json:"-"` // raw protocol payload
	CreatedAt     time.Time  `json:"created_at"`
}
