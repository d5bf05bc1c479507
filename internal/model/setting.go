package model

import "time"

// SettingKeyUrgencySystem gates the urgency sweep per company.
const SettingKeyUrgencySystem = "urgency_system"

const SettingEnabled = "enabled"

type Setting struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Setting) Enabled() bool {
	return s.Value == SettingEnabled
}
