package models

import "testing"

func TestRegionHandle_RoundTrip(t *testing.T) {
	cases := []struct{ x, y uint32 }{
		{0, 0},
		{1000, 1000},
		{0, 1},
		{65535, 65535},
	}
	for _, tc := range cases {
		handle := RegionHandle(tc.x, tc.y)
		x, y := UnpackRegionHandle(handle)
		if x != tc.x || y != tc.y {
			t.Errorf("RegionHandle(%d,%d) round-tripped to (%d,%d)", tc.x, tc.y, x, y)
		}
	}
}

func TestRegionHandle_PacksWorldMeters(t *testing.T) {
	handle := RegionHandle(1000, 2000)
	if high := uint32(handle >> 32); high != 1000*RegionCellSize {
		t.Errorf("Expected high word %d, got %d", 1000*RegionCellSize, high)
	}
	if low := uint32(handle & 0xFFFFFFFF); low != 2000*RegionCellSize {
		t.Errorf("Expected low word %d, got %d", 2000*RegionCellSize, low)
	}

	region := &Region{GridX: 1000, GridY: 2000}
	if region.Handle() != handle {
		t.Error("Region.Handle should match RegionHandle of its coordinates")
	}
}

func TestAssetType_ContentType(t *testing.T) {
	cases := []struct {
		kind AssetType
		want string
	}{
		{AssetTypeTexture, "image/x-j2c"},
		{AssetTypeSound, "audio/ogg"},
		{AssetTypeMesh, "application/vnd.ll.mesh"},
		{AssetTypeNotecard, "text/plain"},
	}
	for _, tc := range cases {
		if got := tc.kind.ContentType(); got != tc.want {
			t.Errorf("ContentType(%d) = %q, want %q", tc.kind, got, tc.want)
		}
	}
	if AssetTypeClothing.ContentType() == "" {
		t.Error("Every asset type needs a usable content type")
	}
}
