package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	revoker := auth.NewTokenRevoker(nil)
	logger := zap.NewNop()

	authCfg := config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		BcryptCost:            4,
	}
	authService := service.NewAuthService(authCfg, store.Users(), revoker)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets(),
		UserRepo:   store.Users(),
		Dispatcher: dispatcher,
	})
	responseService := service.NewResponseService(service.ResponseDependencies{
		ResponseRepo: store.Responses(),
		TicketRepo:   store.Tickets(),
		Dispatcher:   dispatcher,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Responses:      handlers.NewResponsesHandler(responseService),
		AuthMiddleware: auth.NewMiddleware(authService.TokenManager(), revoker, store.Users()),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	payload := map[string]json.RawMessage{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	}
	return resp, payload
}

func registerUser(t *testing.T, app *fiber.App, name, email, role string) (string, dto.UserResponse) {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": "correct-horse-battery",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var authBody dto.AuthResponse
	require.NoError(t, json.Unmarshal(body["user"], &authBody.User))
	require.NoError(t, json.Unmarshal(body["token"], &authBody.Token))
	return authBody.Token, authBody.User
}

func createTicket(t *testing.T, app *fiber.App, token, title string) dto.TicketResponse {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/tickets", token, fiber.Map{
		"title":       title,
		"description": "something is broken",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ticket dto.TicketResponse
	require.NoError(t, json.Unmarshal(body["ticket"], &ticket))
	return ticket
}

func errorCode(t *testing.T, body map[string]json.RawMessage) string {
	t.Helper()
	var envelope struct {
		Code string `json:"code"`
	}
	require.Contains(t, body, "error")
	require.NoError(t, json.Unmarshal(body["error"], &envelope))
	return envelope.Code
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)

	token, user := registerUser(t, app, "Carol", "carol@example.com", "")
	require.Equal(t, "client", string(user.Role))
	require.NotEmpty(t, token)

	// registering the same email again fails validation
	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", fiber.Map{
		"name": "Carol Again", "email": "carol@example.com", "password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "carol@example.com", "password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "carol@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", fiber.Map{
		"name": "", "email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/tickets", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	resp, _ = doJSON(t, app, http.MethodGet, "/tickets", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTicketLifecycle(t *testing.T) {
	app := newTestApp(t)

	carolToken, _ := registerUser(t, app, "Carol", "carol@example.com", "")
	chrisToken, _ := registerUser(t, app, "Chris", "chris@example.com", "")
	amyToken, amy := registerUser(t, app, "Amy", "amy@example.com", "agent")
	adaToken, _ := registerUser(t, app, "Ada", "ada@example.com", "admin")

	ticket := createTicket(t, app, carolToken, "VPN broken")
	require.Equal(t, "open", string(ticket.Status))
	require.Nil(t, ticket.AgentID)

	// another client can neither see nor tell the ticket exists
	resp, body := doJSON(t, app, http.MethodGet, "/tickets/"+ticket.ID, chrisToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", errorCode(t, body))

	// assignment is admin-only and moves the ticket to in_progress
	resp, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/assign", amyToken, fiber.Map{"agent_id": amy.ID})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/assign", adaToken, fiber.Map{"agent_id": amy.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assigned dto.TicketResponse
	require.NoError(t, json.Unmarshal(body["ticket"], &assigned))
	require.Equal(t, "in_progress", string(assigned.Status))
	require.NotNil(t, assigned.AgentID)
	require.Equal(t, amy.ID, *assigned.AgentID)

	// the assigned agent resolves it
	resp, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/status", amyToken, fiber.Map{"status": "resolved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// deleting is admin-only; the denied attempt changes nothing
	resp, _ = doJSON(t, app, http.MethodDelete, "/tickets/"+ticket.ID, carolToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/tickets/"+ticket.ID, adaToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/tickets/"+ticket.ID, adaToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTicketValidation(t *testing.T) {
	app := newTestApp(t)
	token, _ := registerUser(t, app, "Carol", "carol@example.com", "")

	resp, body := doJSON(t, app, http.MethodPost, "/tickets", token, fiber.Map{"title": "", "description": ""})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	resp, _ = doJSON(t, app, http.MethodPost, "/tickets", token, fiber.Map{
		"title": "t", "description": "d", "priority": "catastrophic",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestResponseThreadOverHTTP(t *testing.T) {
	app := newTestApp(t)

	carolToken, _ := registerUser(t, app, "Carol", "carol@example.com", "")
	amyToken, amy := registerUser(t, app, "Amy", "amy@example.com", "agent")
	adaToken, _ := registerUser(t, app, "Ada", "ada@example.com", "admin")

	ticket := createTicket(t, app, carolToken, "Email delayed")
	resp, _ := doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/assign", adaToken, fiber.Map{"agent_id": amy.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// client post asking for privacy is silently downgraded
	resp, body := doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/responses", carolToken, fiber.Map{
		"content": "it happened again", "is_private": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var posted dto.ResponsePayload
	require.NoError(t, json.Unmarshal(body["response"], &posted))
	require.False(t, posted.IsPrivate)

	// agent leaves an internal note
	resp, body = doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/responses", amyToken, fiber.Map{
		"content": "smells like the relay backlog", "is_private": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var note dto.ResponsePayload
	require.NoError(t, json.Unmarshal(body["response"], &note))
	require.True(t, note.IsPrivate)

	// the client's thread view skips the private note
	resp, body = doJSON(t, app, http.MethodGet, "/tickets/"+ticket.ID+"/responses", carolToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var thread []dto.ResponsePayload
	require.NoError(t, json.Unmarshal(body["responses"], &thread))
	require.Len(t, thread, 1)
	require.Equal(t, "it happened again", thread[0].Content)

	// fetching the note directly is masked as not found for the client
	resp, body = doJSON(t, app, http.MethodGet, "/responses/"+note.ID, carolToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", errorCode(t, body))

	// staff see the whole thread
	resp, body = doJSON(t, app, http.MethodGet, "/tickets/"+ticket.ID+"/responses", amyToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["responses"], &thread))
	require.Len(t, thread, 2)
}

func TestClientReplyReopensTicketOverHTTP(t *testing.T) {
	app := newTestApp(t)

	carolToken, _ := registerUser(t, app, "Carol", "carol@example.com", "")
	amyToken, amy := registerUser(t, app, "Amy", "amy@example.com", "agent")
	adaToken, _ := registerUser(t, app, "Ada", "ada@example.com", "admin")

	ticket := createTicket(t, app, carolToken, "Laptop overheating")
	resp, _ := doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/assign", adaToken, fiber.Map{"agent_id": amy.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/status", amyToken, fiber.Map{"status": "resolved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticket.ID+"/responses", carolToken, fiber.Map{
		"content": "still overheating",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/tickets/"+ticket.ID, carolToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dto.TicketResponse
	require.NoError(t, json.Unmarshal(body["ticket"], &got))
	require.Equal(t, "open", string(got.Status))
}

func TestTicketListPagination(t *testing.T) {
	app := newTestApp(t)
	token, _ := registerUser(t, app, "Carol", "carol@example.com", "")

	for i := 0; i < 3; i++ {
		createTicket(t, app, token, fmt.Sprintf("issue %d", i))
	}

	resp, body := doJSON(t, app, http.MethodGet, "/tickets?page=1&page_size=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list dto.TicketListResponse
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Equal(t, 3, list.Total)
	require.Len(t, list.Data, 2)
	require.Equal(t, 1, list.Page)
	require.Equal(t, 2, list.PageSize)
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "status")
}
