package services

import (
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"gridverse/internal/models"

	"github.com/patrickmn/go-cache"
)

// DestinationTTL is how long a cached teleport destination stays addressable.
const DestinationTTL = 240 * time.Second

type destinationEntry struct {
	info      *models.DestinationInfo
	placement models.Placement
	cachedAt  time.Time
}

// DestinationCache hands faraway or cross-domain regions a temporary local
// grid coordinate so a teleport can be addressed as if the destination were a
// neighbor. Entries expire after DestinationTTL; validity is re-checked on
// every read and expired entries are swept on every insert rather than by a
// background janitor.
type DestinationCache struct {
	cache *cache.Cache
	rng   *rand.Rand
	mu    sync.Mutex // guards rng
}

// NewDestinationCache creates a cache with the standard TTL.
func NewDestinationCache() *DestinationCache {
	return NewDestinationCacheWithTTL(DestinationTTL)
}

// NewDestinationCacheWithTTL creates a cache with a custom TTL. Used by tests
// that cannot wait four minutes for expiry.
func NewDestinationCacheWithTTL(ttl time.Duration) *DestinationCache {
	// Cleanup interval 0 disables go-cache's janitor goroutine; expiry is
	// evaluated lazily on reads and swept explicitly on inserts.
	return &DestinationCache{
		cache: cache.New(ttl, 0),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Cache sweeps expired entries, stores the destination under its region
// handle, and returns a synthesized placement with grid X fixed at 0 and
// grid Y drawn uniformly from [1, 65535]. Keeping X at 0 parks synthetic
// coordinates in a column no real region occupies, so the temporary handle
// cannot collide with genuine neighbors.
func (dc *DestinationCache) Cache(info *models.DestinationInfo) models.Placement {
	dc.cache.DeleteExpired()

	dc.mu.Lock()
	placement := models.Placement{
		GridX: 0,
		GridY: uint32(1 + dc.rng.Intn(65535)),
	}
	dc.mu.Unlock()

	entry := &destinationEntry{
		info:      info,
		placement: placement,
		cachedAt:  time.Now(),
	}
	dc.cache.Set(handleKey(info.RegionHandle), entry, cache.DefaultExpiration)

	log.Printf("🗺️  [DEST-CACHE] Cached destination %s (handle: %d, placement: %d,%d)",
		info.RegionName, info.RegionHandle, placement.GridX, placement.GridY)
	return placement
}

// Lookup returns the destination cached under a region handle, or a miss if
// none was cached within the TTL. A miss sweeps expired entries on the way
// out, matching the insert path.
func (dc *DestinationCache) Lookup(regionHandle uint64) (*models.DestinationInfo, bool) {
	value, found := dc.cache.Get(handleKey(regionHandle))
	if !found {
		dc.cache.DeleteExpired()
		return nil, false
	}
	entry := value.(*destinationEntry)
	return entry.info, true
}

// Placement returns the synthesized placement recorded for a cached handle.
func (dc *DestinationCache) Placement(regionHandle uint64) (models.Placement, bool) {
	value, found := dc.cache.Get(handleKey(regionHandle))
	if !found {
		return models.Placement{}, false
	}
	return value.(*destinationEntry).placement, true
}

// Len returns the number of unexpired entries. ItemCount alone would also
// count entries past their TTL that no janitor has collected yet.
func (dc *DestinationCache) Len() int {
	dc.cache.DeleteExpired()
	return dc.cache.ItemCount()
}

func handleKey(handle uint64) string {
	return strconv.FormatUint(handle, 10)
}
