package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"gridverse/internal/models"
	"gridverse/internal/services"

	"github.com/google/uuid"
)

type teleportResult struct {
	region    *models.Region
	placement models.Placement
}

func setupTeleport(t *testing.T) (*dispatchEnv, *services.DestinationCache, *[]teleportResult, models.Region, models.Region) {
	t.Helper()

	env := setupDispatch(t, MsgAgentAnimation)
	regions := services.NewRegionRegistry()
	local := models.Region{ID: uuid.New(), Name: "Hosted", GridX: 1000, GridY: 1000, Local: true}
	remote := models.Region{ID: uuid.New(), Name: "Faraway", GridX: 9000, GridY: 9000,
		ExternalHostname: "far.example.com", Port: 9000}
	regions.Replace([]models.Region{local, remote})

	destinations := services.NewDestinationCache()
	var results []teleportResult
	env.dispatcher.Register(MsgTeleportRequest, NewTeleportRequestHandler(regions, destinations,
		func(session *models.CircuitSession, region *models.Region, placement models.Placement) {
			results = append(results, teleportResult{region: region, placement: placement})
		}))
	return env, destinations, &results, local, remote
}

func (e *dispatchEnv) teleport(t *testing.T, agentID uuid.UUID, target uuid.UUID) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"region_id": target.String()})
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	msg := e.datagram(MsgTeleportRequest, agentID, e.session.SessionID, 1)
	msg.Payload = payload
	e.dispatcher.Dispatch(context.Background(), msg, "203.0.113.7")
}

func TestTeleportRequest_LocalRegionUsesRealCoordinates(t *testing.T) {
	env, destinations, results, local, _ := setupTeleport(t)
	agentID := uuid.New()

	env.teleport(t, agentID, local.ID)

	if len(*results) != 1 {
		t.Fatalf("Expected 1 resolved teleport, got %d", len(*results))
	}
	got := (*results)[0]
	if got.placement.GridX != local.GridX || got.placement.GridY != local.GridY {
		t.Errorf("Expected real coordinates (%d,%d), got (%d,%d)",
			local.GridX, local.GridY, got.placement.GridX, got.placement.GridY)
	}
	if destinations.Len() != 0 {
		t.Error("Local target must not enter the destination cache")
	}
}

func TestTeleportRequest_RemoteRegionGetsSyntheticPlacement(t *testing.T) {
	env, destinations, results, _, remote := setupTeleport(t)
	agentID := uuid.New()

	env.teleport(t, agentID, remote.ID)

	if len(*results) != 1 {
		t.Fatalf("Expected 1 resolved teleport, got %d", len(*results))
	}
	placement := (*results)[0].placement
	if placement.GridX != 0 {
		t.Errorf("Synthetic placement grid X must be 0, got %d", placement.GridX)
	}
	if placement.GridY < 1 || placement.GridY > 65535 {
		t.Errorf("Synthetic placement grid Y %d outside [1, 65535]", placement.GridY)
	}

	info, cached := destinations.Lookup(remote.Handle())
	if !cached {
		t.Fatal("Remote target should be in the destination cache")
	}
	if info.RegionName != "Faraway" || info.ExternalHostname != "far.example.com" {
		t.Errorf("Wrong cached descriptor: %+v", info)
	}

	// A second teleport to the same region reuses the cached placement.
	env.teleport(t, agentID, remote.ID)
	if len(*results) != 2 {
		t.Fatalf("Expected 2 resolved teleports, got %d", len(*results))
	}
	if (*results)[1].placement != placement {
		t.Error("Cached destination should keep its placement")
	}
	if destinations.Len() != 1 {
		t.Errorf("Expected 1 cached destination, got %d", destinations.Len())
	}
}

func TestTeleportRequest_UnknownTargetDropped(t *testing.T) {
	env, destinations, results, _, _ := setupTeleport(t)

	env.teleport(t, uuid.New(), uuid.New())

	if len(*results) != 0 {
		t.Error("Unresolvable target must not produce a placement")
	}
	if destinations.Len() != 0 {
		t.Error("Unresolvable target must not be cached")
	}
}

func TestTeleportRequest_BadPayloadDropped(t *testing.T) {
	env, _, results, _, _ := setupTeleport(t)
	agentID := uuid.New()

	msg := env.datagram(MsgTeleportRequest, agentID, env.session.SessionID, 1)
	msg.Payload = []byte("not json")
	env.dispatcher.Dispatch(context.Background(), msg, "203.0.113.7")

	if len(*results) != 0 {
		t.Error("Undecodable payload must be dropped")
	}
}
