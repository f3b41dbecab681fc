package api

import (
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/chat"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ChatHandler handles the public chat endpoint.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(orchestrator *chat.Orchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator}
}

// Chat runs one conversation turn through the safety pipeline. The server
// mints a session ID when the client did not supply one; clients echo it
// back on subsequent turns so rate limiting can track them.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := h.orchestrator.Handle(c.UserContext(), &req)
	if err != nil {
		appErr := models.SanitizeError(err)
		return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{
			"error": appErr,
		})
	}

	return c.JSON(resp)
}
