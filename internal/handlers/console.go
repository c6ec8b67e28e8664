package handlers

import (
	"log"

	"gridverse/internal/config"
	"gridverse/internal/llsd"
	"gridverse/internal/middleware"
	"gridverse/internal/services"
	"gridverse/pkg/auth"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// ConsoleHandler implements the SimConsoleAsync capability: single-shot
// command execution plus a streaming attach for live output.
type ConsoleHandler struct {
	console      *services.ConsoleService
	cfg          *config.Config
	operatorAuth *auth.OperatorAuth // nil when no console secret is configured
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(console *services.ConsoleService, cfg *config.Config, operatorAuth *auth.OperatorAuth) *ConsoleHandler {
	return &ConsoleHandler{console: console, cfg: cfg, operatorAuth: operatorAuth}
}

// authorized reports whether the calling session may run console commands:
// either its bound agent is on the operator list, or the request carries a
// valid operator token.
func (h *ConsoleHandler) authorized(c *fiber.Ctx) bool {
	session := middleware.Session(c)
	if session != nil && h.cfg.IsOperator(session.AgentID().String()) {
		return true
	}

	if h.operatorAuth != nil {
		token, err := auth.ExtractToken(c.Get(fiber.HeaderAuthorization))
		if err == nil {
			if _, err := h.operatorAuth.ValidateToken(token); err == nil {
				return true
			}
		}
	}
	return false
}

// Execute runs one console command line. An unauthorized caller gets a
// descriptive refusal in the response document rather than a transport-level
// error; the capability itself was validly invoked.
func (h *ConsoleHandler) Execute(c *fiber.Ctx) error {
	doc := middleware.Document(c)

	line, ok := doc.String("command")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing command")
	}

	response := llsd.NewMap()
	if !h.authorized(c) {
		session := middleware.Session(c)
		log.Printf("🚫 [CONSOLE] Agent %s denied console access", session.AgentID())
		response.Set("output", []any{"You are not authorized to use the region console."})
		return middleware.SendLLSD(c, fiber.StatusOK, response)
	}

	lines := h.console.Execute(c.Context(), line)
	output := make([]any, len(lines))
	for i, l := range lines {
		output[i] = l
	}
	response.Set("output", output)
	return middleware.SendLLSD(c, fiber.StatusOK, response)
}

// Token exchanges the operator shared secret for a signed operator token.
// Registered outside the capability router; region operators are not viewer
// sessions.
func (h *ConsoleHandler) Token(c *fiber.Ctx) error {
	if h.operatorAuth == nil || h.cfg.OperatorSecretHash == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var body struct {
		AgentID string `json:"agent_id"`
		Secret  string `json:"secret"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if !auth.VerifySecret(body.Secret, h.cfg.OperatorSecretHash) {
		log.Printf("🚫 [CONSOLE] Bad operator secret from %s", c.IP())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid operator secret"})
	}

	token, err := h.operatorAuth.GenerateToken(body.AgentID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(fiber.Map{"token": token})
}

// Attach upgrades to a WebSocket that streams console output lines as they
// are produced anywhere in the grid (Redis relays across instances).
func (h *ConsoleHandler) Attach() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		lines, cancel := h.console.Subscribe()
		defer cancel()

		log.Printf("🖥️  [CONSOLE] Listener attached from %s", conn.RemoteAddr())

		// Reads only matter for detecting the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
					return
				}
			}
		}
	})
}

// RequireAuthorized guards the attach route: unlike Execute, a stream has no
// response document to carry a refusal, so unauthorized callers are rejected
// before the upgrade.
func (h *ConsoleHandler) RequireAuthorized() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !h.authorized(c) {
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}
		return c.Next()
	}
}
