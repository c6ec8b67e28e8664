package services

import (
	"log"
	"sync"

	"gridverse/internal/models"

	"github.com/google/uuid"
)

// RegionRegistry holds the regions this process knows about: the ones it
// hosts plus grid neighbors it can resolve placements against. The set comes
// from regions.json and is swapped wholesale on reload.
type RegionRegistry struct {
	byID  map[uuid.UUID]*models.Region
	mutex sync.RWMutex
}

// NewRegionRegistry creates an empty registry.
func NewRegionRegistry() *RegionRegistry {
	return &RegionRegistry{byID: make(map[uuid.UUID]*models.Region)}
}

// Replace swaps in a new region set, returning how many regions are known.
func (r *RegionRegistry) Replace(regions []models.Region) int {
	byID := make(map[uuid.UUID]*models.Region, len(regions))
	for i := range regions {
		region := regions[i]
		byID[region.ID] = &region
	}

	r.mutex.Lock()
	r.byID = byID
	r.mutex.Unlock()

	log.Printf("🌍 [REGIONS] Loaded %d region definitions", len(byID))
	return len(byID)
}

// Get resolves a region by ID.
func (r *RegionRegistry) Get(id uuid.UUID) (*models.Region, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	region, exists := r.byID[id]
	return region, exists
}

// Local resolves a region by ID only if it is hosted by this process.
func (r *RegionRegistry) Local(id uuid.UUID) (*models.Region, bool) {
	region, exists := r.Get(id)
	if !exists || !region.Local {
		return nil, false
	}
	return region, true
}

// Offset returns the grid offset of from relative to to. Both regions must be
// resolvable for a placement to exist.
func (r *RegionRegistry) Offset(to, from *models.Region) (dx, dy int64) {
	return int64(from.GridX) - int64(to.GridX), int64(from.GridY) - int64(to.GridY)
}
