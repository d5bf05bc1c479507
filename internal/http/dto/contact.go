package dto

import (
	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
)

// UpdateContactRequest uses the field names the dashboard sends. Every field
// is optional; only present fields are applied.
type UpdateContactRequest struct {
	Name          *string             `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Number        *string             `json:"number,omitempty" binding:"omitempty,max=30"`
	Email         *string             `json:"email,omitempty" binding:"omitempty,email,max=255"`
	ExtraInfo     []model.CustomField `json:"extraInfo,omitempty"`
	DisableBot    *bool               `json:"disableBot,omitempty"`
	DisableTicket *bool               `json:"disableTicket,omitempty"`
}

func (r UpdateContactRequest) ToInput() service.UpdateContactInput {
	return service.UpdateContactInput{
		Name:          r.Name,
		Number:        r.Number,
		Email:         r.Email,
		Extra:         r.ExtraInfo,
		DisableBot:    r.DisableBot,
		DisableTicket: r.DisableTicket,
	}
}
