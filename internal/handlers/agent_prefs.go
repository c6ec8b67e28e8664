package handlers

import (
	"log"

	"gridverse/internal/llsd"
	"gridverse/internal/middleware"
	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AgentPrefsHandler implements the small per-session preference capabilities.
type AgentPrefsHandler struct {
	circuits *services.CircuitManager
}

// NewAgentPrefsHandler creates a new agent preferences handler
func NewAgentPrefsHandler(circuits *services.CircuitManager) *AgentPrefsHandler {
	return &AgentPrefsHandler{circuits: circuits}
}

// UpdateLanguage stores the viewer's language preference on the session.
func (h *AgentPrefsHandler) UpdateLanguage(c *fiber.Ctx) error {
	session := middleware.Session(c)
	doc := middleware.Document(c)

	language, ok := doc.String("language")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing language")
	}
	isPublic, _ := doc.Bool("language_is_public")

	if err := h.circuits.SetLanguage(session.CircuitCode, language, isPublic); err != nil {
		log.Printf("⚠️ [PREFS] Failed to set language for circuit %d: %v", session.CircuitCode, err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return middleware.SendLLSD(c, fiber.StatusOK, llsd.NewMap())
}

// MeshUploadFlag reports whether the agent may upload mesh content. The
// actual economy/permission backends live off-region; every admitted agent
// currently gets a valid status.
func (h *AgentPrefsHandler) MeshUploadFlag(c *fiber.Ctx) error {
	session := middleware.Session(c)

	response := llsd.NewMap()
	response.Set("id", session.AgentID())
	response.Set("username", "")
	response.Set("mesh_upload_status", "valid")
	return middleware.SendLLSD(c, fiber.StatusOK, response)
}
