package middleware

import (
	"log"

	"gridverse/internal/llsd"
	"gridverse/internal/models"
	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the capability gateway for downstream handlers.
const (
	LocalSession  = "session"
	LocalGrant    = "capability"
	LocalDocument = "llsd_document"
)

// CapabilityGateway wraps every capability endpoint. It resolves the URL
// token to a session, enforces the caller's network origin and the declared
// method, and parses LLSD bodies - so handlers only ever see valid,
// authenticated calls. Unexpected handler panics are converted to a bare 500
// by the app-level recover middleware and ErrorHandler, never leaked with
// detail.
type CapabilityGateway struct {
	circuits *services.CircuitManager
	caps     *services.CapabilityRegistry
}

// NewCapabilityGateway creates the gateway over the session table and grant
// registry.
func NewCapabilityGateway(circuits *services.CircuitManager, caps *services.CapabilityRegistry) *CapabilityGateway {
	return &CapabilityGateway{circuits: circuits, caps: caps}
}

// Guard returns the middleware enforcing the gateway contract for an endpoint
// declared with the given method. Routes carry the capability token as the
// :token parameter.
func (g *CapabilityGateway) Guard(method string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		grant, exists := g.caps.Resolve(c.Params("token"))
		if !exists {
			// Unknown token gets the same 404 as a bad asset ID: probing
			// for live capabilities learns nothing about URL structure.
			return c.SendStatus(fiber.StatusNotFound)
		}

		session, exists := g.circuits.Get(grant.CircuitCode)
		if !exists {
			return c.SendStatus(fiber.StatusNotFound)
		}

		if boundIP := session.RemoteIP(); boundIP == "" || boundIP != c.IP() {
			log.Printf("🚫 [CAPS] Origin mismatch on %s: caller %s, bound %q (circuit %d)",
				grant.Name, c.IP(), boundIP, grant.CircuitCode)
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		if c.Method() != method {
			return c.SendStatus(fiber.StatusMethodNotAllowed)
		}

		c.Locals(LocalSession, session)
		c.Locals(LocalGrant, grant)
		return c.Next()
	}
}

// CapabilityEndpoint declares one capability's contract: the method it
// accepts, whether it carries an LLSD body, and the handler that runs once
// the gateway has validated the call.
type CapabilityEndpoint struct {
	Method    string
	ParseBody bool
	Handler   fiber.Handler
}

// Dispatch returns the handler for the shared /caps/:token route. The
// endpoint table is built once at startup; dispatch is a map lookup on the
// granted capability name, never introspection.
func (g *CapabilityGateway) Dispatch(endpoints map[string]CapabilityEndpoint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		grant, exists := g.caps.Resolve(c.Params("token"))
		if !exists {
			return c.SendStatus(fiber.StatusNotFound)
		}
		session, exists := g.circuits.Get(grant.CircuitCode)
		if !exists {
			return c.SendStatus(fiber.StatusNotFound)
		}
		endpoint, exists := endpoints[grant.Name]
		if !exists {
			return c.SendStatus(fiber.StatusNotFound)
		}

		if boundIP := session.RemoteIP(); boundIP == "" || boundIP != c.IP() {
			log.Printf("🚫 [CAPS] Origin mismatch on %s: caller %s, bound %q (circuit %d)",
				grant.Name, c.IP(), boundIP, grant.CircuitCode)
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		if c.Method() != endpoint.Method {
			return c.SendStatus(fiber.StatusMethodNotAllowed)
		}

		c.Locals(LocalSession, session)
		c.Locals(LocalGrant, grant)

		if endpoint.ParseBody {
			value, err := llsd.Unmarshal(c.Body())
			if err != nil {
				return c.SendStatus(fiber.StatusUnsupportedMediaType)
			}
			doc, ok := value.(*llsd.Map)
			if !ok {
				return c.Status(fiber.StatusBadRequest).SendString("expected a map document")
			}
			c.Locals(LocalDocument, doc)
		}

		return endpoint.Handler(c)
	}
}

// Session returns the authenticated session attached by Guard.
func Session(c *fiber.Ctx) *models.CircuitSession {
	session, _ := c.Locals(LocalSession).(*models.CircuitSession)
	return session
}

// Document returns the parsed LLSD map attached by ParseBody.
func Document(c *fiber.Ctx) *llsd.Map {
	doc, _ := c.Locals(LocalDocument).(*llsd.Map)
	return doc
}

// SendLLSD serializes a response document with the LLSD content type.
func SendLLSD(c *fiber.Ctx, status int, value any) error {
	payload, err := llsd.Marshal(value)
	if err != nil {
		log.Printf("❌ [CAPS] Failed to serialize response: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	c.Set(fiber.HeaderContentType, llsd.ContentType)
	return c.Status(status).Send(payload)
}
