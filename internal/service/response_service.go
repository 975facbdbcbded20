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

// ResponseService coordinates threaded responses on tickets.
type ResponseService struct {
	responses  repository.ResponseRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ResponseDependencies bundles collaborators for the response service.
type ResponseDependencies struct {
	ResponseRepo repository.ResponseRepository
	TicketRepo   repository.TicketRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ResponseUpdateInput describes a partial update; nil fields stay untouched.
type ResponseUpdateInput struct {
	Content   *string
	IsPrivate *bool
}

// NewResponseService constructs the service.
func NewResponseService(deps ResponseDependencies) *ResponseService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		responses:  deps.ResponseRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// ListForTicket returns the thread for a ticket the actor may see; clients
// never receive private entries.
func (s *ResponseService) ListForTicket(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Response, error) {
	ticket, err := s.parentTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewTicket(actor, ticket); d.Denied() {
		return nil, s.deny(actor, "response.list", "ticket", ticketID, d)
	}

	responses, err := s.responses.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return policy.VisibleResponses(actor, responses), nil
}

// Get fetches a single response the actor may see.
func (s *ResponseService) Get(ctx context.Context, actor *domain.User, responseID string) (*domain.Response, error) {
	response, err := s.fetch(ctx, responseID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.parentTicket(ctx, response.TicketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewResponse(actor, ticket, response); d.Denied() {
		return nil, s.deny(actor, "response.read", "response", responseID, d)
	}
	return response, nil
}

// Create posts a response on a ticket the actor can read. A client asking
// for a private response is silently downgraded; a client responding on
// their own resolved ticket reopens it.
func (s *ResponseService) Create(ctx context.Context, actor *domain.User, ticketID, content string, isPrivate bool) (*domain.Response, error) {
	ticket, err := s.parentTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanCreateResponse(actor, ticket); d.Denied() {
		return nil, s.deny(actor, "response.create", "ticket", ticketID, d)
	}

	response := &domain.Response{
		TicketID:  ticket.ID,
		UserID:    actor.ID,
		Content:   strings.TrimSpace(content),
		IsPrivate: policy.ResponsePrivacy(actor, isPrivate),
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, err
	}

	if policy.ReopensTicket(actor, ticket) {
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusOpen
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
		s.publish(ctx, actor, events.Event{
			Type:     events.EventTicketReopened,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventResponseAdded,
		TicketID: ticket.ID,
		Payload: events.ResponseAddedPayload{
			ResponseID:     response.ID,
			IsPrivate:      response.IsPrivate,
			ContentPreview: preview(response.Content, 120),
		},
	})
	return response, nil
}

// Update edits a response. Author or admin only; a client editor cannot
// flip the response private.
func (s *ResponseService) Update(ctx context.Context, actor *domain.User, responseID string, input ResponseUpdateInput) (*domain.Response, error) {
	response, err := s.fetch(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanModifyResponse(actor, response); d.Denied() {
		return nil, s.deny(actor, "response.update", "response", responseID, d)
	}

	if input.Content != nil {
		response.Content = strings.TrimSpace(*input.Content)
	}
	if input.IsPrivate != nil {
		response.IsPrivate = *input.IsPrivate
	}
	response.IsPrivate = policy.ResponsePrivacy(actor, response.IsPrivate)

	if err := s.responses.Update(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// Delete removes a response. Author or admin only.
func (s *ResponseService) Delete(ctx context.Context, actor *domain.User, responseID string) error {
	response, err := s.fetch(ctx, responseID)
	if err != nil {
		return err
	}
	if d := policy.CanModifyResponse(actor, response); d.Denied() {
		return s.deny(actor, "response.delete", "response", responseID, d)
	}
	return s.responses.Delete(ctx, responseID)
}

func (s *ResponseService) fetch(ctx context.Context, responseID string) (*domain.Response, error) {
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("response")
		}
		return nil, err
	}
	return response, nil
}

func (s *ResponseService) parentTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	return ticket, nil
}

func (s *ResponseService) deny(actor *domain.User, operation, resource, resourceID string, d policy.Decision) error {
	s.logger.Debug("policy denied",
		zap.String("operation", operation),
		zap.String("resource_id", resourceID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("reason", d.Reason),
	)
	return apperrors.NewNotFound(resource)
}

func (s *ResponseService) publish(ctx context.Context, actor *domain.User, event events.Event) {
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

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
