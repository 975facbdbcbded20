package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestCreateResponseClientPrivateDowngrade(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	response, err := f.responses.Create(ctx, f.client, ticket.ID, "please make this private", true)
	require.NoError(t, err)
	require.False(t, response.IsPrivate)
}

func TestCreateResponseStaffPrivateKept(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, f.agent.ID)
	require.NoError(t, err)

	response, err := f.responses.Create(ctx, f.agent, ticket.ID, "internal note", true)
	require.NoError(t, err)
	require.True(t, response.IsPrivate)
}

func TestCreateResponseOnForeignTicketMasked(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	_, err = f.responses.Create(ctx, f.client2, ticket.ID, "hi", false)
	requireNotFound(t, err)
}

func TestListResponsesHidesPrivateFromClient(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, f.agent.ID)
	require.NoError(t, err)

	_, err = f.responses.Create(ctx, f.client, ticket.ID, "public from client", false)
	require.NoError(t, err)
	note, err := f.responses.Create(ctx, f.agent, ticket.ID, "private agent note", true)
	require.NoError(t, err)

	// client sees one entry, the owning client's own public response
	thread, err := f.responses.ListForTicket(ctx, f.client, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Equal(t, "public from client", thread[0].Content)

	// assigned agent and admin see both, oldest first
	thread, err = f.responses.ListForTicket(ctx, f.agent, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	require.Equal(t, "public from client", thread[0].Content)

	thread, err = f.responses.ListForTicket(ctx, f.admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	// fetching the private entry directly is masked for the client too
	_, err = f.responses.Get(ctx, f.client, note.ID)
	requireNotFound(t, err)
	got, err := f.responses.Get(ctx, f.agent, note.ID)
	require.NoError(t, err)
	require.Equal(t, note.ID, got.ID)
}

func TestClientResponseReopensResolvedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	_, err = f.tickets.ChangeStatus(ctx, f.agent, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	// a staff response on a resolved ticket leaves the status alone
	_, err = f.responses.Create(ctx, f.agent, ticket.ID, "following up", false)
	require.NoError(t, err)
	got, err := f.tickets.Get(ctx, f.admin, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusResolved, got.Status)

	// the owning client's response reopens it
	_, err = f.responses.Create(ctx, f.client, ticket.ID, "still broken", false)
	require.NoError(t, err)
	got, err = f.tickets.Get(ctx, f.admin, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, got.Status)
}

func TestClientResponseDoesNotReopenClosedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.tickets.ChangeStatus(ctx, f.client, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	_, err = f.responses.Create(ctx, f.client, ticket.ID, "one more thing", false)
	require.NoError(t, err)

	got, err := f.tickets.Get(ctx, f.client, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, got.Status)
}

func TestUpdateResponseAuthorOrAdmin(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	response, err := f.responses.Create(ctx, f.client, ticket.ID, "original", false)
	require.NoError(t, err)

	edited := "edited"
	// the assigned agent is not the author
	_, err = f.responses.Update(ctx, f.agent, response.ID, ResponseUpdateInput{Content: &edited})
	requireNotFound(t, err)

	got, err := f.responses.Update(ctx, f.client, response.ID, ResponseUpdateInput{Content: &edited})
	require.NoError(t, err)
	require.Equal(t, "edited", got.Content)

	adminEdit := "admin edit"
	got, err = f.responses.Update(ctx, f.admin, response.ID, ResponseUpdateInput{Content: &adminEdit})
	require.NoError(t, err)
	require.Equal(t, "admin edit", got.Content)
}

func TestUpdateResponseClientCannotFlipPrivate(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	response, err := f.responses.Create(ctx, f.client, ticket.ID, "public", false)
	require.NoError(t, err)

	private := true
	got, err := f.responses.Update(ctx, f.client, response.ID, ResponseUpdateInput{IsPrivate: &private})
	require.NoError(t, err)
	require.False(t, got.IsPrivate)
}

func TestDeleteResponseAuthorOrAdmin(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.client, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	response, err := f.responses.Create(ctx, f.client, ticket.ID, "to delete", false)
	require.NoError(t, err)

	requireNotFound(t, f.responses.Delete(ctx, f.agent, response.ID))

	// denied delete leaves the record in place
	got, err := f.responses.Get(ctx, f.client, response.ID)
	require.NoError(t, err)
	require.Equal(t, response.ID, got.ID)

	require.NoError(t, f.responses.Delete(ctx, f.client, response.ID))
	_, err = f.responses.Get(ctx, f.client, response.ID)
	requireNotFound(t, err)
}

func TestListResponsesMissingTicket(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.responses.ListForTicket(context.Background(), f.admin, "no-such-id")
	requireNotFound(t, err)
}
