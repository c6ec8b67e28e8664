package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gridverse/internal/models"
	"gridverse/internal/services"

	"github.com/google/uuid"
)

// Message type names as they come off the wire.
const (
	MsgAgentUpdate     = "AgentUpdate"
	MsgAgentAnimation  = "AgentAnimation"
	MsgAttachmentSync  = "AttachmentSync"
	MsgTeleportRequest = "TeleportRequest"
)

// NewAgentUpdateHandler builds the handler for best-effort agent state
// updates. Updates arrive duplicated and reordered across circuits, so the
// sequencer decides which ones reach the scene; a rejected update is normal
// traffic and disappears without a trace.
func NewAgentUpdateHandler(sequencer *services.UpdateSequencer, apply func(session *models.CircuitSession, msg *models.Datagram)) HandlerFunc {
	return func(ctx context.Context, session *models.CircuitSession, msg *models.Datagram) {
		if !sequencer.Accept(session.AgentID(), msg.Sequence, time.Now()) {
			return
		}
		apply(session, msg)
	}
}

// NewAttachmentSyncHandler builds the handler for visual attachment updates.
// The same sequencing rule applies: a region may receive attachment state for
// one agent from any circuit's stream, and only sequence-fresh updates win.
func NewAttachmentSyncHandler(sequencer *services.UpdateSequencer, apply func(session *models.CircuitSession, msg *models.Datagram)) HandlerFunc {
	return func(ctx context.Context, session *models.CircuitSession, msg *models.Datagram) {
		if !sequencer.Accept(msg.AgentID, msg.Sequence, time.Now()) {
			return
		}
		apply(session, msg)
	}
}

// NewAgentAnimationHandler builds the handler for animation triggers, which
// are idempotent and skip sequencing entirely.
func NewAgentAnimationHandler(apply func(session *models.CircuitSession, msg *models.Datagram)) HandlerFunc {
	return func(ctx context.Context, session *models.CircuitSession, msg *models.Datagram) {
		apply(session, msg)
	}
}

type teleportRequestPayload struct {
	RegionID uuid.UUID `json:"region_id"`
}

// NewTeleportRequestHandler builds the handler that resolves a teleport
// target to an addressable grid placement. A locally hosted target is
// addressed at its real coordinates; a known remote target goes through the
// destination cache and is addressed at its synthesized placement. A target
// this process cannot resolve is dropped like any other unroutable traffic.
func NewTeleportRequestHandler(regions *services.RegionRegistry, destinations *services.DestinationCache, apply func(session *models.CircuitSession, region *models.Region, placement models.Placement)) HandlerFunc {
	return func(ctx context.Context, session *models.CircuitSession, msg *models.Datagram) {
		var req teleportRequestPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil || req.RegionID == uuid.Nil {
			return
		}

		region, known := regions.Get(req.RegionID)
		if !known {
			return
		}

		if region.Local {
			apply(session, region, models.Placement{GridX: region.GridX, GridY: region.GridY})
			return
		}

		handle := region.Handle()
		if _, cached := destinations.Lookup(handle); cached {
			if placement, ok := destinations.Placement(handle); ok {
				apply(session, region, placement)
				return
			}
		}

		placement := destinations.Cache(&models.DestinationInfo{
			RegionID:         region.ID,
			RegionHandle:     handle,
			RegionName:       region.Name,
			ServerURI:        fmt.Sprintf("http://%s:%d/", region.ExternalHostname, region.Port),
			ExternalHostname: region.ExternalHostname,
			Port:             region.Port,
		})
		apply(session, region, placement)
	}
}
