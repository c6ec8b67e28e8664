package models

import "github.com/google/uuid"

// Region cells are 256m on a side; a region handle packs the region's world
// coordinates in meters into a single 64-bit value.
const RegionCellSize = 256

// Region describes a simulator region known to this process, either hosted
// locally or reachable across the grid.
type Region struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	GridX            uint32    `json:"grid_x"`
	GridY            uint32    `json:"grid_y"`
	ExternalHostname string    `json:"external_hostname"`
	Port             int       `json:"port"`
	Local            bool      `json:"local"`
}

// Handle returns the region's 64-bit handle (world meters, X in the high
// word, Y in the low word).
func (r *Region) Handle() uint64 {
	return RegionHandle(r.GridX, r.GridY)
}

// RegionHandle packs grid cell coordinates into a region handle.
func RegionHandle(gridX, gridY uint32) uint64 {
	return uint64(gridX*RegionCellSize)<<32 | uint64(gridY*RegionCellSize)
}

// UnpackRegionHandle returns the grid cell coordinates encoded in a handle.
func UnpackRegionHandle(handle uint64) (gridX, gridY uint32) {
	return uint32(handle>>32) / RegionCellSize, uint32(handle&0xFFFFFFFF) / RegionCellSize
}

// DestinationInfo describes a remote region that a teleport can be addressed
// to. It is what the destination cache stores per region handle.
type DestinationInfo struct {
	RegionID         uuid.UUID
	RegionHandle     uint64
	RegionName       string
	ServerURI        string
	ExternalHostname string
	Port             int
}

// Placement is a synthesized local grid coordinate assigned to a faraway
// destination so it can be addressed as if it were a neighbor.
type Placement struct {
	GridX uint32
	GridY uint32
}

// RegionsConfig is the on-disk shape of regions.json.
type RegionsConfig struct {
	Regions []Region `json:"regions"`
}
