package domain

import "time"

// Response is a threaded reply on a ticket. IsPrivate hides the entry from
// client-role actors; responses authored by clients are never private.
type Response struct {
	ID        string
	TicketID  string
	UserID    string
	Content   string
	IsPrivate bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
