package model

import "time"

// CustomField is a free-form key/value attribute attached to a contact.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Contact struct {
	ID            int64         `json:"id"`
	CompanyID     int64         `json:"company_id"`
	Name          string        `json:"name"`
	Number        string        `json:"number"`
	Email         string        `json:"email"`
	IsGroup       bool          `json:"is_group"`
	ProfilePicURL string        `json:"profile_pic_url,omitempty"`
	DisableBot    bool          `json:"disable_bot"`
	DisableTicket bool          `json:"disable_ticket"`
	Extra         []CustomField `json:"extra,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
