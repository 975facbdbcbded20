package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/policy"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketService coordinates ticket workflows. Every operation takes the
// acting user explicitly and runs the policy check before touching the
// store; denials surface as the same not-found the caller would see for a
// missing record.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    *string
}

// TicketUpdateInput describes a partial update; nil fields stay untouched.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Category    *string
}

// TicketListFilter describes listing parameters before policy scoping.
type TicketListFilter struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	Search        *string
	SortField     string
	SortDirection string
	Page          int
	PageSize      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create opens a ticket for the actor. Status, owner and assignee are forced
// regardless of the request.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		Category:    input.Category,
		UserID:      actor.ID,
		AgentID:     nil,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

// List returns the page of tickets visible to the actor plus the total
// match count.
func (s *TicketService) List(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, int, error) {
	scope := policy.ScopeTickets(actor)

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	repoFilter := repository.TicketFilter{
		OwnerID:       scope.OwnerID,
		AgentPoolID:   scope.AgentPoolID,
		Status:        filter.Status,
		Priority:      filter.Priority,
		Search:        filter.Search,
		SortField:     filter.SortField,
		SortDirection: filter.SortDirection,
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}
	return s.tickets.List(ctx, repoFilter)
}

// Get fetches a single ticket the actor may see.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.visibleTicket(ctx, actor, ticketID)
}

// Update applies a partial field merge after the ownership check.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanUpdateTicket(actor, ticket); d.Denied() {
		return nil, s.deny(actor, "ticket.update", ticketID, d)
	}

	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Category != nil {
		ticket.Category = input.Category
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes a ticket and, via the schema cascade, its responses.
// Admin only.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, ticketID string) error {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return err
	}
	if d := policy.CanDeleteTicket(actor, ticket); d.Denied() {
		return s.deny(actor, "ticket.delete", ticketID, d)
	}
	return s.tickets.Delete(ctx, ticketID)
}

// Assign sets the handling agent and forces the ticket into in_progress in
// the same write. Admin only; the target must hold a staff role.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, agentID string) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanAssignTicket(actor, ticket); d.Denied() {
		return nil, s.deny(actor, "ticket.assign", ticketID, d)
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown agent", map[string]any{"agent_id": "no such user"})
		}
		return nil, err
	}
	if !agent.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be an agent", map[string]any{"agent_id": "user is not an agent"})
	}

	ticket.AgentID = &agent.ID
	ticket.Status = domain.TicketStatusInProgress
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Payload:  events.TicketAssignedPayload{AgentID: agent.ID},
	})
	return ticket, nil
}

// ChangeStatus writes a new status. No transitions are enforced beyond enum
// membership; ownership rules match updates.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidTicketStatus(status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": "must be open, in_progress, resolved or closed"})
	}

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanChangeTicketStatus(actor, ticket); d.Denied() {
		return nil, s.deny(actor, "ticket.status", ticketID, d)
	}

	oldStatus := ticket.Status
	ticket.Status = status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// visibleTicket fetches a ticket and applies the read policy, masking both
// missing rows and denials identically.
func (s *TicketService) visibleTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewTicket(actor, ticket); d.Denied() {
		return nil, s.deny(actor, "ticket.read", ticketID, d)
	}
	return ticket, nil
}

func (s *TicketService) fetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) deny(actor *domain.User, operation, ticketID string, d policy.Decision) error {
	s.logger.Debug("policy denied",
		zap.String("operation", operation),
		zap.String("ticket_id", ticketID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("reason", d.Reason),
	)
	return apperrors.NewNotFound("ticket")
}

func (s *TicketService) publish(ctx context.Context, actor *domain.User, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.ActorID = actor.ID
	event.ActorRole = actor.Role
	_ = s.dispatcher.Publish(ctx, event)
}
