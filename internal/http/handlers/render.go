package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"litledger/internal/domain"
	applog "litledger/internal/log"
)

// respond sends data as JSON, or the chat rendering when ?format=text.
func respond(c *fiber.Ctx, data any, text func() (string, error)) error {
	if c.Query("format") != "text" {
		return c.JSON(data)
	}
	s, err := text()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(s)
}

// apiError maps domain errors to statuses; anything else goes to the
// app's error handler.
func apiError(c *fiber.Ctx, err error) error {
	status := 0
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrDuplicateName):
		status = fiber.StatusConflict
	default:
		return err
	}
	applog.Debug(c, "api.rejected", map[string]any{"err": err.Error()})
	return c.Status(status).JSON(fiber.Map{"error": publicMessage(status)})
}

func publicMessage(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid input"
	case fiber.StatusForbidden:
		return "access denied"
	case fiber.StatusNotFound:
		return "not found"
	case fiber.StatusConflict:
		return "conflict"
	}
	return "Something went wrong. Please try again."
}
