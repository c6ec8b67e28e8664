package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetType identifies the kind of content stored in an asset blob. The
// numeric values are fixed by the wire protocol.
type AssetType int

const (
	AssetTypeAny       AssetType = -1
	AssetTypeTexture   AssetType = 0
	AssetTypeSound     AssetType = 1
	AssetTypeLandmark  AssetType = 3
	AssetTypeClothing  AssetType = 5
	AssetTypeNotecard  AssetType = 7
	AssetTypeLSLText   AssetType = 10
	AssetTypeBodypart  AssetType = 13
	AssetTypeAnimation AssetType = 20
	AssetTypeGesture   AssetType = 21
	AssetTypeMesh      AssetType = 49
)

// ContentType returns the MIME type served for assets of this type.
func (t AssetType) ContentType() string {
	switch t {
	case AssetTypeTexture:
		return "image/x-j2c"
	case AssetTypeSound:
		return "audio/ogg"
	case AssetTypeMesh:
		return "application/vnd.ll.mesh"
	case AssetTypeNotecard, AssetTypeLSLText:
		return "text/plain"
	case AssetTypeAnimation:
		return "application/vnd.ll.animation"
	default:
		return "application/octet-stream"
	}
}

// Asset is an immutable content blob identified by UUID. Temporary assets
// were promoted into the local store as a caching side effect and are not
// part of the region's durable content.
type Asset struct {
	ID        uuid.UUID
	Type      AssetType
	Name      string
	Temporary bool
	Data      []byte
	CreatedAt time.Time
}
