package dto

import "time"

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	Content   string `json:"content"`
	IsPrivate bool   `json:"is_private,omitempty"`
}

// UpdateResponseRequest payload; omitted fields stay untouched.
type UpdateResponseRequest struct {
	Content   *string `json:"content,omitempty"`
	IsPrivate *bool   `json:"is_private,omitempty"`
}

// ResponsePayload represents a thread entry.
type ResponsePayload struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
