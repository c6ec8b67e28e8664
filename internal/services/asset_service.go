package services

import (
	"context"
	"errors"
	"log"

	"gridverse/internal/models"

	"github.com/google/uuid"
)

// AssetService resolves content blobs across the local and remote tiers. The
// local store is authoritative when it has a copy; a remote hit is promoted
// into the local store as a best-effort side effect so the next lookup stays
// local. Store I/O may block on the network, so the service holds no locks of
// its own - each tier is responsible for its own concurrency.
type AssetService struct {
	local  AssetStore
	remote AssetStore // nil when the region has no upstream asset service
}

// NewAssetService creates a resolver over the two tiers. remote may be nil.
func NewAssetService(local, remote AssetStore) *AssetService {
	return &AssetService{local: local, remote: remote}
}

// Resolve looks an asset up through the tiers. expectedType narrows the
// lookup: a resolved asset of a different type is reported as not found, so
// a capability scoped to one content kind can never leak another. Pass
// models.AssetTypeAny to accept any type.
func (s *AssetService) Resolve(ctx context.Context, id uuid.UUID, expectedType models.AssetType) (*models.Asset, error) {
	return s.resolve(ctx, id, expectedType, false)
}

// ResolveTransient is Resolve for the generic-content endpoint: an asset that
// had to be fetched remotely is promoted with the temporary flag set, keeping
// it out of the region's durable content.
func (s *AssetService) ResolveTransient(ctx context.Context, id uuid.UUID, expectedType models.AssetType) (*models.Asset, error) {
	return s.resolve(ctx, id, expectedType, true)
}

func (s *AssetService) resolve(ctx context.Context, id uuid.UUID, expectedType models.AssetType, markTransient bool) (*models.Asset, error) {
	asset, err := s.local.Get(ctx, id)
	if err == nil {
		return checkType(asset, expectedType)
	}
	if !errors.Is(err, ErrAssetNotFound) {
		// Local tier unavailable: fall through to the remote tier rather
		// than failing the lookup outright.
		log.Printf("⚠️ [ASSETS] Local store error for %s: %v", id, err)
	}

	if s.remote == nil {
		return nil, ErrAssetNotFound
	}

	asset, err = s.remote.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return nil, ErrAssetNotFound
		}
		log.Printf("⚠️ [ASSETS] Remote store error for %s: %v", id, err)
		return nil, ErrAssetNotFound
	}

	// Best-effort promotion into the local tier. A failure is logged and
	// swallowed - the fetch itself still succeeds.
	promoted := *asset
	if markTransient {
		promoted.Temporary = true
	}
	if err := s.local.Store(ctx, &promoted); err != nil {
		log.Printf("⚠️ [ASSETS] Failed to promote %s to local store: %v", id, err)
	} else {
		log.Printf("📦 [ASSETS] Promoted %s to local store (%d bytes, temporary: %t)",
			id, len(promoted.Data), promoted.Temporary)
	}

	return checkType(asset, expectedType)
}

func checkType(asset *models.Asset, expectedType models.AssetType) (*models.Asset, error) {
	if expectedType != models.AssetTypeAny && asset.Type != expectedType {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}
