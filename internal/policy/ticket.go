package policy

import "github.com/spec-kit/support-desk/internal/domain"

// TicketScope constrains a ticket listing to the records the actor may see.
// A zero scope means unrestricted (admin).
type TicketScope struct {
	// OwnerID, when set, restricts results to tickets created by that user.
	OwnerID *string
	// AgentPoolID, when set, restricts results to tickets assigned to that
	// agent plus the unassigned pool (agent_id IS NULL).
	AgentPoolID *string
}

// ScopeTickets returns the listing scope for the actor's role.
func ScopeTickets(actor *domain.User) TicketScope {
	switch actor.Role {
	case domain.RoleClient:
		id := actor.ID
		return TicketScope{OwnerID: &id}
	case domain.RoleAgent:
		id := actor.ID
		return TicketScope{AgentPoolID: &id}
	default:
		return TicketScope{}
	}
}

// CanViewTicket decides single-ticket reads. The predicate matches the
// listing scope: clients see their own tickets, agents see their assigned
// tickets plus the unassigned pool, admins see everything.
func CanViewTicket(actor *domain.User, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin:
		return Allow()
	case domain.RoleAgent:
		if ticket.AgentID == nil || *ticket.AgentID == actor.ID {
			return Allow()
		}
		return Deny("ticket assigned to another agent")
	case domain.RoleClient:
		if ticket.UserID == actor.ID {
			return Allow()
		}
		return Deny("actor is not the ticket owner")
	}
	return Deny("unknown role")
}

// CanUpdateTicket decides field updates (title, description, priority,
// category). Clients may update only their own tickets, agents only tickets
// assigned to them; admins are unrestricted.
func CanUpdateTicket(actor *domain.User, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin:
		return Allow()
	case domain.RoleAgent:
		if ticket.AgentID != nil && *ticket.AgentID == actor.ID {
			return Allow()
		}
		return Deny("ticket not assigned to actor")
	case domain.RoleClient:
		if ticket.UserID == actor.ID {
			return Allow()
		}
		return Deny("actor is not the ticket owner")
	}
	return Deny("unknown role")
}

// CanDeleteTicket decides ticket deletion. Admin only.
func CanDeleteTicket(actor *domain.User, _ *domain.Ticket) Decision {
	if actor.Role == domain.RoleAdmin {
		return Allow()
	}
	return Deny("admin role required")
}

// CanAssignTicket decides agent assignment. Admin only.
func CanAssignTicket(actor *domain.User, _ *domain.Ticket) Decision {
	if actor.Role == domain.RoleAdmin {
		return Allow()
	}
	return Deny("admin role required")
}

// CanChangeTicketStatus decides status writes. Same ownership rules as
// updates: owning client, assigned agent, or admin.
func CanChangeTicketStatus(actor *domain.User, ticket *domain.Ticket) Decision {
	return CanUpdateTicket(actor, ticket)
}
