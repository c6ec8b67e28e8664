package handlers

import (
	"gridverse/internal/llsd"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SyntaxHandler serves the compiled scripting-language syntax description.
// The document is generated once at startup; viewers cache it against its ID
// and only re-fetch after a version change.
type SyntaxHandler struct {
	syntaxID uuid.UUID
	document []byte
}

// NewSyntaxHandler builds the syntax document and its stable ID.
func NewSyntaxHandler() (*SyntaxHandler, error) {
	doc := buildSyntaxDocument()
	payload, err := llsd.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &SyntaxHandler{
		// Derived from the document itself so every server running the same
		// syntax version hands out the same ID.
		syntaxID: uuid.NewSHA1(uuid.NameSpaceOID, payload),
		document: payload,
	}, nil
}

// SyntaxID returns the current syntax document's identifier.
func (h *SyntaxHandler) SyntaxID() uuid.UUID {
	return h.syntaxID
}

// Serve returns the syntax document.
func (h *SyntaxHandler) Serve(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, llsd.ContentType)
	return c.Status(fiber.StatusOK).Send(h.document)
}

func buildSyntaxDocument() *llsd.Map {
	controls := llsd.NewMap()
	for _, kw := range []string{"default", "state", "if", "else", "for", "while", "do", "jump", "return"} {
		entry := llsd.NewMap()
		entry.Set("tooltip", "flow control")
		controls.Set(kw, entry)
	}

	types := llsd.NewMap()
	for _, kw := range []string{"integer", "float", "string", "key", "vector", "rotation", "list"} {
		entry := llsd.NewMap()
		entry.Set("tooltip", "type")
		types.Set(kw, entry)
	}

	events := llsd.NewMap()
	for _, kw := range []string{"state_entry", "touch_start", "listen", "timer", "collision_start"} {
		entry := llsd.NewMap()
		entry.Set("tooltip", "event handler")
		events.Set(kw, entry)
	}

	doc := llsd.NewMap()
	doc.Set("llsd-lsl-syntax-version", 2)
	doc.Set("controls", controls)
	doc.Set("types", types)
	doc.Set("events", events)
	return doc
}
