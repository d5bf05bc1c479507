package dto

// SyncMessagesRequest is the optional body of the backfill endpoints. Limit
// zero means the server default.
type SyncMessagesRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=500"`
}
