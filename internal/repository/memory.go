package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MemoryStore is an in-memory implementation of the three repositories
// sharing one dataset, so ticket deletion cascades to responses the same way
// the schema does. Used by tests and local development without postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	tickets   map[string]domain.Ticket
	responses map[string]domain.Response
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		tickets:   make(map[string]domain.Ticket),
		responses: make(map[string]domain.Response),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return &memoryUserRepository{store: s} }

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return &memoryTicketRepository{store: s} }

// Responses returns the response repository view of the store.
func (s *MemoryStore) Responses() ResponseRepository { return &memoryResponseRepository{store: s} }

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, user := range r.store.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memoryTicketRepository struct {
	store *MemoryStore
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UserID = stored.UserID
	ticket.CreatedAt = stored.CreatedAt
	ticket.UpdatedAt = time.Now()
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.tickets, id)
	for respID, resp := range r.store.responses {
		if resp.TicketID == id {
			delete(r.store.responses, respID)
		}
	}
	return nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matched := make([]domain.Ticket, 0, len(r.store.tickets))
	for _, ticket := range r.store.tickets {
		if !matchesFilter(&ticket, filter) {
			continue
		}
		matched = append(matched, ticket)
	}

	sortTickets(matched, filter.SortField, filter.SortDirection)

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Ticket{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func matchesFilter(ticket *domain.Ticket, filter TicketFilter) bool {
	if filter.OwnerID != nil && ticket.UserID != *filter.OwnerID {
		return false
	}
	if filter.AgentPoolID != nil && ticket.AgentID != nil && *ticket.AgentID != *filter.AgentPoolID {
		return false
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && ticket.Priority != *filter.Priority {
		return false
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		needle := strings.ToLower(strings.TrimSpace(*filter.Search))
		if !strings.Contains(strings.ToLower(ticket.Title), needle) &&
			!strings.Contains(strings.ToLower(ticket.Description), needle) {
			return false
		}
	}
	return true
}

func sortTickets(tickets []domain.Ticket, field, direction string) {
	if _, ok := sortableFields[field]; !ok {
		field = defaultSortField
	}
	desc := strings.ToLower(direction) != "asc"

	sort.SliceStable(tickets, func(i, j int) bool {
		var less bool
		switch field {
		case "title":
			less = tickets[i].Title < tickets[j].Title
		case "status":
			less = tickets[i].Status < tickets[j].Status
		case "priority":
			less = tickets[i].Priority < tickets[j].Priority
		case "updated_at":
			less = tickets[i].UpdatedAt.Before(tickets[j].UpdatedAt)
		default:
			less = tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}

type memoryResponseRepository struct {
	store *MemoryStore
}

func (r *memoryResponseRepository) Create(_ context.Context, response *domain.Response) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	response.ID = uuid.NewString()
	response.CreatedAt = now
	response.UpdatedAt = now
	r.store.responses[response.ID] = *response
	return nil
}

func (r *memoryResponseRepository) Update(_ context.Context, response *domain.Response) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.responses[response.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	response.TicketID = stored.TicketID
	response.UserID = stored.UserID
	response.CreatedAt = stored.CreatedAt
	response.UpdatedAt = time.Now()
	r.store.responses[response.ID] = *response
	return nil
}

func (r *memoryResponseRepository) GetByID(_ context.Context, id string) (*domain.Response, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	response, ok := r.store.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &response, nil
}

func (r *memoryResponseRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.responses[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.responses, id)
	return nil
}

func (r *memoryResponseRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Response, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Response
	for _, response := range r.store.responses {
		if response.TicketID == ticketID {
			result = append(result, response)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
