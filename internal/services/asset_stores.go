package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gridverse/internal/database"
	"gridverse/internal/models"

	"github.com/google/uuid"
)

// ErrAssetNotFound is returned when a store has no copy of an asset. Any
// other error from a store means the tier itself is unavailable.
var ErrAssetNotFound = errors.New("asset not found")

// AssetStore is one content tier: the region-hosted database or the session
// owner's remote asset service.
type AssetStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	Store(ctx context.Context, asset *models.Asset) error
}

// LocalAssetStore is the region-hosted, authoritative asset tier backed by
// MySQL.
type LocalAssetStore struct {
	db *database.DB
}

// NewLocalAssetStore creates a store over an initialized database.
func NewLocalAssetStore(db *database.DB) *LocalAssetStore {
	return &LocalAssetStore{db: db}
}

// Get fetches an asset row by ID.
func (s *LocalAssetStore) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	asset := &models.Asset{ID: id}
	var assetType int
	err := s.db.QueryRowContext(ctx, `
		SELECT asset_type, name, temporary, data, created_at
		FROM assets WHERE id = ?
	`, id.String()).Scan(&assetType, &asset.Name, &asset.Temporary, &asset.Data, &asset.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local asset lookup failed: %w", err)
	}
	asset.Type = models.AssetType(assetType)
	return asset, nil
}

// Store inserts an asset, ignoring duplicates so concurrent promotions of
// the same asset stay idempotent.
func (s *LocalAssetStore) Store(ctx context.Context, asset *models.Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO assets (id, asset_type, name, temporary, data)
		VALUES (?, ?, ?, ?, ?)
	`, asset.ID.String(), int(asset.Type), asset.Name, asset.Temporary, asset.Data)
	if err != nil {
		return fmt.Errorf("local asset store failed: %w", err)
	}
	return nil
}

// remoteAsset is the JSON shape the remote asset service speaks.
type remoteAsset struct {
	ID        string `json:"id"`
	AssetType int    `json:"asset_type"`
	Name      string `json:"name"`
	Temporary bool   `json:"temporary"`
	Data      []byte `json:"data"`
}

// RemoteAssetStore is the session-owner-hosted asset tier, reached over HTTP.
type RemoteAssetStore struct {
	baseURL string
	client  *http.Client
}

// NewRemoteAssetStore creates a client for a remote asset service.
func NewRemoteAssetStore(baseURL string, timeout time.Duration) *RemoteAssetStore {
	return &RemoteAssetStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Get fetches an asset from the remote service.
func (s *RemoteAssetStore) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/assets/"+id.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("remote asset request failed: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote asset fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrAssetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote asset service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("remote asset read failed: %w", err)
	}

	var raw remoteAsset
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("remote asset decode failed: %w", err)
	}
	assetID, err := uuid.Parse(raw.ID)
	if err != nil {
		return nil, fmt.Errorf("remote asset has bad id %q", raw.ID)
	}

	return &models.Asset{
		ID:        assetID,
		Type:      models.AssetType(raw.AssetType),
		Name:      raw.Name,
		Temporary: raw.Temporary,
		Data:      raw.Data,
	}, nil
}

// Store uploads an asset to the remote service.
func (s *RemoteAssetStore) Store(ctx context.Context, asset *models.Asset) error {
	payload, err := json.Marshal(remoteAsset{
		ID:        asset.ID.String(),
		AssetType: int(asset.Type),
		Name:      asset.Name,
		Temporary: asset.Temporary,
		Data:      asset.Data,
	})
	if err != nil {
		return fmt.Errorf("remote asset encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/assets", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("remote asset request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote asset upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("remote asset service returned %d", resp.StatusCode)
	}
	return nil
}
