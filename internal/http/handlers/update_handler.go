package handlers

import (
	"github.com/gofiber/fiber/v2"

	"litledger/internal/chat"
	"litledger/internal/conversation"
	applog "litledger/internal/log"
)

// UpdateHandler feeds chat actions from the transport into the engine.
type UpdateHandler struct {
	Engine *conversation.Engine
}

func (h *UpdateHandler) Handle(c *fiber.Ctx) error {
	var a chat.Action
	if err := c.BodyParser(&a); err != nil {
		applog.Security(c, "update.malformed", nil)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed update"})
	}
	if a.ActorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "actor_id is required"})
	}
	switch a.Kind {
	case "", chat.KindText, chat.KindCommand, chat.KindButton:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown kind"})
	}
	applog.Debug(c, "update.received", map[string]any{"actor_id": a.ActorID, "kind": string(a.Kind)})
	return c.JSON(h.Engine.Handle(c.UserContext(), a))
}
