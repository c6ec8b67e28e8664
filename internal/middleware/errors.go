package middleware

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the app-level fiber error handler. Deliberate fiber errors
// keep their status and message; anything else, including panics surfaced by
// the recover middleware, becomes a bare 500 so internal detail never reaches
// the wire.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).SendString(e.Message)
	}
	log.Printf("❌ [HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	return c.SendStatus(fiber.StatusInternalServerError)
}
