package handlers

import (
	"log"
	"strings"

	"gridverse/internal/llsd"
	"gridverse/internal/middleware"
	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ShardHeader marks traffic that crossed a shard boundary. Circuit
// establishment is an inter-region trust call; a request carrying this header
// came from outside the trust channel and is refused outright.
const ShardHeader = "X-GridVerse-Shard"

// Capabilities granted to every freshly admitted session.
var seedCapabilities = []string{
	"Seed",
	"NewFileAgentInventory",
	"MeshUploadFlag",
	"UpdateAgentLanguage",
	"GetMesh",
	"ViewerAsset",
	"LSLSyntax",
	"SimConsoleAsync",
}

// AdmissionHandler establishes circuits for agents entering a locally hosted
// region.
type AdmissionHandler struct {
	circuits *services.CircuitManager
	regions  *services.RegionRegistry
	caps     *services.CapabilityRegistry
	baseURL  string
}

// NewAdmissionHandler creates a new admission handler. baseURL is the
// externally reachable prefix for capability URLs handed to admitted agents.
func NewAdmissionHandler(circuits *services.CircuitManager, regions *services.RegionRegistry, caps *services.CapabilityRegistry, baseURL string) *AdmissionHandler {
	return &AdmissionHandler{circuits: circuits, regions: regions, caps: caps, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// EstablishCircuit allocates a circuit code and session ID for an agent
// arriving from another region. The route is registered for all methods so a
// wrong method answers 405 rather than fiber's default 404.
func (h *AdmissionHandler) EstablishCircuit(c *fiber.Ctx) error {
	if c.Get(ShardHeader) != "" {
		log.Printf("🚫 [ADMISSION] Rejected establishment with shard header from %s", c.IP())
		return c.SendStatus(fiber.StatusForbidden)
	}
	if c.Method() != fiber.MethodPost {
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	value, err := llsd.Unmarshal(c.Body())
	if err != nil {
		return c.SendStatus(fiber.StatusUnsupportedMediaType)
	}
	doc, ok := value.(*llsd.Map)
	if !ok {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	toRegionID, ok := doc.UUID("to_region_id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing to_region_id")
	}
	fromRegionID, ok := doc.UUID("from_region_id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing from_region_id")
	}
	// scope_id is carried for grid bookkeeping; admission itself only needs
	// it to be present and well-formed.
	if _, ok := doc.UUID("scope_id"); !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing scope_id")
	}

	target, hosted := h.regions.Local(toRegionID)
	if !hosted {
		log.Printf("🚫 [ADMISSION] Target region %s is not hosted here", toRegionID)
		return c.Status(fiber.StatusBadRequest).SendString("region not hosted here")
	}
	origin, known := h.regions.Get(fromRegionID)
	if !known {
		log.Printf("🚫 [ADMISSION] Origin region %s is not resolvable", fromRegionID)
		return c.Status(fiber.StatusBadRequest).SendString("origin region unknown")
	}

	dx, dy := h.regions.Offset(target, origin)

	session, err := h.circuits.Establish(target.ID, origin.ID)
	if err != nil {
		log.Printf("❌ [ADMISSION] Failed to establish circuit: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	var seedToken string
	for _, name := range seedCapabilities {
		token := h.caps.Grant(session.CircuitCode, name)
		if name == "Seed" {
			seedToken = token
		}
	}

	log.Printf("✅ [ADMISSION] Circuit %d for origin %s (offset %d,%d)",
		session.CircuitCode, origin.Name, dx, dy)

	response := llsd.NewMap()
	response.Set("circuit_code", int(session.CircuitCode))
	response.Set("session_id", session.SessionID)
	// The seed capability URL is the agent's entry point into the rest of
	// the capability namespace.
	response.Set("seed_capability", h.baseURL+"/caps/"+seedToken)
	return middleware.SendLLSD(c, fiber.StatusOK, response)
}
