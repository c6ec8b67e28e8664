package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"gridverse/internal/models"
	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AssetHandler implements the GetMesh and ViewerAsset fetch capabilities on
// top of the tiered resolver.
type AssetHandler struct {
	assets *services.AssetService
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(assets *services.AssetService) *AssetHandler {
	return &AssetHandler{assets: assets}
}

// typedParams maps the query parameter carrying the asset ID to the type the
// capability is allowed to serve. Order matters: the first present parameter
// wins.
var typedParams = []struct {
	param string
	kind  models.AssetType
}{
	{"mesh_id", models.AssetTypeMesh},
	{"texture_id", models.AssetTypeTexture},
	{"sound_id", models.AssetTypeSound},
	{"animation_id", models.AssetTypeAnimation},
	{"gesture_id", models.AssetTypeGesture},
}

// GetMesh serves a mesh asset by ?mesh_id=<uuid>. Missing or malformed IDs
// are 404, not 400: the error space deliberately reveals nothing about what
// shape of ID the endpoint would have accepted.
func (h *AssetHandler) GetMesh(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Query("mesh_id"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	asset, err := h.assets.Resolve(c.Context(), id, models.AssetTypeMesh)
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return serveAsset(c, asset)
}

// ViewerAsset serves typed asset fetches (?<type>_id=<uuid>) and the generic
// ?asset_id=<uuid> form. Generic fetches resolve any type and mark remote
// promotions transient.
func (h *AssetHandler) ViewerAsset(c *fiber.Ctx) error {
	for _, tp := range typedParams {
		raw := c.Query(tp.param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		asset, err := h.assets.Resolve(c.Context(), id, tp.kind)
		if err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return serveAsset(c, asset)
	}

	if raw := c.Query("asset_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		asset, err := h.assets.ResolveTransient(c.Context(), id, models.AssetTypeAny)
		if err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return serveAsset(c, asset)
	}

	return c.SendStatus(fiber.StatusNotFound)
}

// serveAsset streams an asset body, honoring a single-byte-range request.
// A request without a Range header gets the full body with 200. Multipart
// ranges and unparsable range syntax also get the full body; viewers treat
// that as a valid answer and slice locally.
func serveAsset(c *fiber.Ctx, asset *models.Asset) error {
	c.Set(fiber.HeaderContentType, asset.Type.ContentType())
	c.Set(fiber.HeaderAcceptRanges, "bytes")

	size := len(asset.Data)
	rangeHeader := c.Get(fiber.HeaderRange)
	if rangeHeader == "" {
		return c.Status(fiber.StatusOK).Send(asset.Data)
	}

	start, end, ok := parseByteRange(rangeHeader, size)
	if !ok {
		return c.Status(fiber.StatusOK).Send(asset.Data)
	}
	if start >= size {
		c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", size))
		return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
	}

	c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	log.Printf("📤 [ASSETS] Serving %s range %d-%d of %d bytes", asset.ID, start, end, size)
	return c.Status(fiber.StatusPartialContent).Send(asset.Data[start : end+1])
}

// parseByteRange parses a single "bytes=a-b" range against a body of the
// given size, returning the inclusive span. Suffix ("-n") and open-ended
// ("a-") forms are supported; anything else reports !ok.
func parseByteRange(header string, size int) (start, end int, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}

	first, last, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	if first == "" {
		// Suffix form: last n bytes.
		n, err := strconv.Atoi(last)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	start, err := strconv.Atoi(first)
	if err != nil || start < 0 {
		return 0, 0, false
	}

	if last == "" {
		return start, size - 1, true
	}
	end, err = strconv.Atoi(last)
	if err != nil || end < start {
		return 0, 0, false
	}
	if end > size-1 {
		end = size - 1
	}
	return start, end, true
}
