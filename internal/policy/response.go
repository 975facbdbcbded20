package policy

import "github.com/spec-kit/support-desk/internal/domain"

// CanViewResponse decides single-response reads. The actor must pass the
// ticket read check on the parent, and private responses stay invisible to
// client-role actors.
func CanViewResponse(actor *domain.User, ticket *domain.Ticket, response *domain.Response) Decision {
	if d := CanViewTicket(actor, ticket); d.Denied() {
		return d
	}
	if response.IsPrivate && actor.Role == domain.RoleClient {
		return Deny("private response hidden from client")
	}
	return Allow()
}

// CanCreateResponse decides whether the actor may post on the ticket. Anyone
// who can read the ticket may respond to it.
func CanCreateResponse(actor *domain.User, ticket *domain.Ticket) Decision {
	return CanViewTicket(actor, ticket)
}

// CanModifyResponse decides updates and deletes. Only the original author or
// an admin; everyone else gets the same not-found masking as a missing row.
func CanModifyResponse(actor *domain.User, response *domain.Response) Decision {
	if actor.Role == domain.RoleAdmin {
		return Allow()
	}
	if response.UserID == actor.ID {
		return Allow()
	}
	return Deny("actor is not the response author")
}

// ResponsePrivacy normalizes a requested is_private flag for the actor.
// Clients can never produce private responses; the request is silently
// downgraded rather than rejected.
func ResponsePrivacy(actor *domain.User, requested bool) bool {
	if actor.Role == domain.RoleClient {
		return false
	}
	return requested
}

// VisibleResponses filters a ticket thread for the actor. Client-role actors
// never see private entries.
func VisibleResponses(actor *domain.User, responses []domain.Response) []domain.Response {
	if actor.Role != domain.RoleClient {
		return responses
	}
	visible := make([]domain.Response, 0, len(responses))
	for _, r := range responses {
		if r.IsPrivate {
			continue
		}
		visible = append(visible, r)
	}
	return visible
}

// ReopensTicket reports whether posting this response resets a resolved
// ticket back to open: only when the owning client responds on their own
// resolved ticket.
func ReopensTicket(actor *domain.User, ticket *domain.Ticket) bool {
	return ticket.Status == domain.TicketStatusResolved && ticket.UserID == actor.ID
}
