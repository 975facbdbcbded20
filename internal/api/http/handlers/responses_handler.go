package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// ResponsesHandler manages ticket response endpoints.
type ResponsesHandler struct {
	service *service.ResponseService
}

// NewResponsesHandler constructs handler.
func NewResponsesHandler(responseService *service.ResponseService) *ResponsesHandler {
	return &ResponsesHandler{service: responseService}
}

// ListForTicket GET /tickets/:id/responses.
func (h *ResponsesHandler) ListForTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	responses, err := h.service.ListForTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ResponsePayload, 0, len(responses))
	for i := range responses {
		items = append(items, responsePayload(&responses[i]))
	}
	return c.JSON(fiber.Map{"responses": items})
}

// Create POST /tickets/:id/responses.
func (h *ResponsesHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("content required", nil)
	}

	response, err := h.service.Create(c.Context(), actor, c.Params("id"), req.Content, req.IsPrivate)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"response": responsePayload(response)})
}

// Get GET /responses/:id.
func (h *ResponsesHandler) Get(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	response, err := h.service.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"response": responsePayload(response)})
}

// Update PATCH /responses/:id.
func (h *ResponsesHandler) Update(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return apperrors.NewValidationError("content cannot be empty", nil)
	}

	response, err := h.service.Update(c.Context(), actor, c.Params("id"), service.ResponseUpdateInput{
		Content:   req.Content,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"response": responsePayload(response)})
}

// Delete DELETE /responses/:id.
func (h *ResponsesHandler) Delete(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "response deleted"})
}

func responsePayload(response *domain.Response) dto.ResponsePayload {
	return dto.ResponsePayload{
		ID:        response.ID,
		TicketID:  response.TicketID,
		UserID:    response.UserID,
		Content:   response.Content,
		IsPrivate: response.IsPrivate,
		CreatedAt: response.CreatedAt,
		UpdatedAt: response.UpdatedAt,
	}
}
