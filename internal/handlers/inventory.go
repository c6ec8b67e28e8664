package handlers

import (
	"gridverse/internal/llsd"
	"gridverse/internal/middleware"
	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// InventoryHandler implements the NewFileAgentInventory capability.
type InventoryHandler struct {
	inventory *services.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// CreateFolder records a new inventory container and echoes the created
// container's id, parent, type and name back to the viewer.
func (h *InventoryHandler) CreateFolder(c *fiber.Ctx) error {
	session := middleware.Session(c)
	doc := middleware.Document(c)

	folderID, ok := doc.UUID("folder_id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing folder_id")
	}
	parentID, ok := doc.UUID("parent_id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing parent_id")
	}
	folderType, ok := doc.Int("type")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing type")
	}
	name, ok := doc.String("name")
	if !ok || name == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing name")
	}

	h.inventory.CreateFolder(&services.InventoryFolder{
		FolderID: folderID,
		ParentID: parentID,
		Type:     folderType,
		Name:     name,
		AgentID:  session.AgentID(),
	})

	response := llsd.NewMap()
	response.Set("folder_id", folderID)
	response.Set("parent_id", parentID)
	response.Set("type", folderType)
	response.Set("name", name)
	return middleware.SendLLSD(c, fiber.StatusOK, response)
}
