package services

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// InventoryFolder is a container created through the capability channel. The
// real inventory backend lives off-region; this service tracks what the
// session layer has created so duplicate and forged requests are observable.
type InventoryFolder struct {
	FolderID uuid.UUID
	ParentID uuid.UUID
	Type     int
	Name     string
	AgentID  uuid.UUID
}

// InventoryService records inventory containers created per agent.
type InventoryService struct {
	folders map[uuid.UUID]*InventoryFolder
	mutex   sync.RWMutex
}

// NewInventoryService creates an empty service.
func NewInventoryService() *InventoryService {
	return &InventoryService{folders: make(map[uuid.UUID]*InventoryFolder)}
}

// CreateFolder records a new container. Creating the same folder ID twice is
// a no-op; viewers retry capability calls on slow links.
func (s *InventoryService) CreateFolder(folder *InventoryFolder) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.folders[folder.FolderID]; exists {
		return
	}
	s.folders[folder.FolderID] = folder
	log.Printf("📁 [INVENTORY] Created folder %q (%s, type %d) for agent %s",
		folder.Name, folder.FolderID, folder.Type, folder.AgentID)
}

// Get returns a recorded folder.
func (s *InventoryService) Get(folderID uuid.UUID) (*InventoryFolder, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	folder, exists := s.folders[folderID]
	return folder, exists
}

// Count returns the number of recorded folders.
func (s *InventoryService) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.folders)
}
