package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gridverse/internal/models"

	"github.com/google/uuid"
)

// fakeAssetStore is an in-memory AssetStore that counts calls and can be
// forced to fail, standing in for both tiers.
type fakeAssetStore struct {
	mu       sync.Mutex
	assets   map[uuid.UUID]*models.Asset
	gets     int
	stores   int
	getErr   error
	storeErr error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{assets: make(map[uuid.UUID]*models.Asset)}
}

func (f *fakeAssetStore) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	asset, ok := f.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	copied := *asset
	return &copied, nil
}

func (f *fakeAssetStore) Store(ctx context.Context, asset *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.storeErr != nil {
		return f.storeErr
	}
	copied := *asset
	f.assets[asset.ID] = &copied
	return nil
}

func (f *fakeAssetStore) put(asset *models.Asset) {
	f.assets[asset.ID] = asset
}

func testAsset(assetType models.AssetType) *models.Asset {
	return &models.Asset{
		ID:   uuid.New(),
		Type: assetType,
		Name: "test asset",
		Data: []byte("blob bytes"),
	}
}

func TestAssetService_LocalHitSkipsRemote(t *testing.T) {
	local := newFakeAssetStore()
	remote := newFakeAssetStore()
	asset := testAsset(models.AssetTypeTexture)
	local.put(asset)

	svc := NewAssetService(local, remote)
	got, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeTexture)
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if got.ID != asset.ID {
		t.Errorf("Expected asset %s, got %s", asset.ID, got.ID)
	}
	if remote.gets != 0 {
		t.Errorf("Remote tier consulted on a local hit: %d gets", remote.gets)
	}
}

func TestAssetService_RemoteHitIsPromoted(t *testing.T) {
	local := newFakeAssetStore()
	remote := newFakeAssetStore()
	asset := testAsset(models.AssetTypeMesh)
	remote.put(asset)

	svc := NewAssetService(local, remote)
	got, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeMesh)
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if string(got.Data) != "blob bytes" {
		t.Errorf("Unexpected asset data: %q", got.Data)
	}
	if local.stores != 1 {
		t.Errorf("Expected 1 promotion into the local tier, got %d", local.stores)
	}
	if promoted := local.assets[asset.ID]; promoted == nil || promoted.Temporary {
		t.Error("Resolve promotion should not mark the asset temporary")
	}

	// Second resolve must come from the local tier.
	remoteGets := remote.gets
	if _, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeMesh); err != nil {
		t.Fatalf("Failed to resolve promoted asset: %v", err)
	}
	if remote.gets != remoteGets {
		t.Error("Promoted asset should resolve without another remote fetch")
	}
}

func TestAssetService_TransientPromotionMarksTemporary(t *testing.T) {
	local := newFakeAssetStore()
	remote := newFakeAssetStore()
	asset := testAsset(models.AssetTypeSound)
	remote.put(asset)

	svc := NewAssetService(local, remote)
	got, err := svc.ResolveTransient(context.Background(), asset.ID, models.AssetTypeAny)
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if got.Temporary {
		t.Error("Returned asset should carry the origin's flags, not the promotion's")
	}
	promoted := local.assets[asset.ID]
	if promoted == nil {
		t.Fatal("Expected the asset promoted into the local tier")
	}
	if !promoted.Temporary {
		t.Error("Transient promotion must mark the local copy temporary")
	}
}

func TestAssetService_PromotionFailureDoesNotFailResolve(t *testing.T) {
	local := newFakeAssetStore()
	local.storeErr = errors.New("disk full")
	remote := newFakeAssetStore()
	asset := testAsset(models.AssetTypeTexture)
	remote.put(asset)

	svc := NewAssetService(local, remote)
	got, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeTexture)
	if err != nil {
		t.Fatalf("Resolve should survive a failed promotion: %v", err)
	}
	if got.ID != asset.ID {
		t.Errorf("Expected asset %s, got %s", asset.ID, got.ID)
	}
}

func TestAssetService_LocalErrorFallsThroughToRemote(t *testing.T) {
	local := newFakeAssetStore()
	local.getErr = errors.New("connection refused")
	remote := newFakeAssetStore()
	asset := testAsset(models.AssetTypeTexture)
	remote.put(asset)

	svc := NewAssetService(local, remote)
	got, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeTexture)
	if err != nil {
		t.Fatalf("A broken local tier should not fail the lookup: %v", err)
	}
	if got.ID != asset.ID {
		t.Errorf("Expected asset %s, got %s", asset.ID, got.ID)
	}
}

func TestAssetService_TypeMismatchReportsNotFound(t *testing.T) {
	local := newFakeAssetStore()
	asset := testAsset(models.AssetTypeSound)
	local.put(asset)

	svc := NewAssetService(local, nil)
	if _, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeMesh); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Expected ErrAssetNotFound for a type mismatch, got %v", err)
	}
	// AssetTypeAny accepts anything.
	if _, err := svc.Resolve(context.Background(), asset.ID, models.AssetTypeAny); err != nil {
		t.Errorf("AssetTypeAny should match any type: %v", err)
	}
}

func TestAssetService_MissEverywhere(t *testing.T) {
	svc := NewAssetService(newFakeAssetStore(), newFakeAssetStore())
	if _, err := svc.Resolve(context.Background(), uuid.New(), models.AssetTypeAny); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Expected ErrAssetNotFound, got %v", err)
	}

	// No remote tier configured at all.
	svcLocalOnly := NewAssetService(newFakeAssetStore(), nil)
	if _, err := svcLocalOnly.Resolve(context.Background(), uuid.New(), models.AssetTypeAny); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Expected ErrAssetNotFound without a remote tier, got %v", err)
	}
}
