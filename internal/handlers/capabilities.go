package handlers

import (
	"gridverse/internal/llsd"
	"gridverse/internal/middleware"
	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SeedHandler answers the per-session seed capability: given a list of
// capability names, it returns the URL for each one this region grants.
type SeedHandler struct {
	caps    *services.CapabilityRegistry
	baseURL string // scheme://host:port prefix capability URLs are built on
}

// NewSeedHandler creates a new seed handler
func NewSeedHandler(caps *services.CapabilityRegistry, baseURL string) *SeedHandler {
	return &SeedHandler{caps: caps, baseURL: baseURL}
}

// granted is the set of capability names this region will hand out. Requests
// for anything else are silently omitted from the response, matching how
// viewers probe for optional capabilities.
var granted = map[string]bool{
	"NewFileAgentInventory": true,
	"MeshUploadFlag":        true,
	"UpdateAgentLanguage":   true,
	"GetMesh":               true,
	"ViewerAsset":           true,
	"LSLSyntax":             true,
	"SimConsoleAsync":       true,
}

// Seed handles POST {caps: [names...]} and responds with a name → URL map.
func (h *SeedHandler) Seed(c *fiber.Ctx) error {
	session := middleware.Session(c)
	doc := middleware.Document(c)

	names, ok := doc.Get("caps")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing caps list")
	}
	list, ok := names.([]any)
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("caps must be an array")
	}

	response := llsd.NewMap()
	for _, entry := range list {
		name, ok := entry.(string)
		if !ok || !granted[name] {
			continue
		}
		token := h.caps.Grant(session.CircuitCode, name)
		response.Set(name, h.baseURL+"/caps/"+token)
	}

	return middleware.SendLLSD(c, fiber.StatusOK, response)
}
