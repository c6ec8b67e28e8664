package services

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gridverse/internal/models"

	"github.com/google/uuid"
)

// How many times admission re-draws a random circuit code before giving up.
// Collisions are vanishingly rare in a 32-bit space; the retry loop exists so
// duplicate registration is impossible rather than merely unlikely.
const circuitCodeRetries = 5

var (
	// ErrCircuitCodeInUse is returned when a circuit code is already registered.
	ErrCircuitCodeInUse = errors.New("circuit code already in use")
	// ErrCircuitNotFound is returned for lookups of unknown circuit codes.
	ErrCircuitNotFound = errors.New("circuit not found")
)

// CircuitManager is the process-wide session table. It is read on every
// inbound datagram and capability call and written only on admission and
// teardown, so lookups take the read lock and writes are short-held.
type CircuitManager struct {
	circuits map[uint32]*models.CircuitSession
	mutex    sync.RWMutex
}

// NewCircuitManager creates an empty session table.
func NewCircuitManager() *CircuitManager {
	return &CircuitManager{
		circuits: make(map[uint32]*models.CircuitSession),
	}
}

// Establish allocates a new session for an agent entering regionID from
// originRegionID: a uniformly random 32-bit circuit code, a random 128-bit
// session ID, and a registered table entry. The agent identity and remote
// endpoint stay unbound until the first datagram arrives.
func (cm *CircuitManager) Establish(regionID, originRegionID uuid.UUID) (*models.CircuitSession, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for attempt := 0; attempt < circuitCodeRetries; attempt++ {
		code, err := randomCircuitCode()
		if err != nil {
			return nil, fmt.Errorf("failed to draw circuit code: %w", err)
		}
		if _, exists := cm.circuits[code]; exists {
			continue
		}

		session := &models.CircuitSession{
			CircuitCode:    code,
			SessionID:      uuid.New(),
			RegionID:       regionID,
			OriginRegionID: originRegionID,
			CreatedAt:      time.Now(),
		}
		cm.circuits[code] = session
		log.Printf("✅ [CIRCUIT] Established circuit %d session %s (region: %s, total: %d)",
			code, session.SessionID, regionID, len(cm.circuits))
		return session, nil
	}

	return nil, ErrCircuitCodeInUse
}

// Register inserts an externally constructed session, failing on a duplicate
// circuit code.
func (cm *CircuitManager) Register(session *models.CircuitSession) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if _, exists := cm.circuits[session.CircuitCode]; exists {
		return ErrCircuitCodeInUse
	}
	cm.circuits[session.CircuitCode] = session
	return nil
}

// Get retrieves a session by circuit code.
func (cm *CircuitManager) Get(code uint32) (*models.CircuitSession, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	session, exists := cm.circuits[code]
	return session, exists
}

// Remove tears down a session.
func (cm *CircuitManager) Remove(code uint32) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if _, exists := cm.circuits[code]; exists {
		delete(cm.circuits, code)
		log.Printf("❌ [CIRCUIT] Removed circuit %d (total: %d)", code, len(cm.circuits))
	}
}

// Count returns the number of live sessions.
func (cm *CircuitManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.circuits)
}

// All returns a snapshot of the live sessions.
func (cm *CircuitManager) All() []*models.CircuitSession {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	sessions := make([]*models.CircuitSession, 0, len(cm.circuits))
	for _, s := range cm.circuits {
		sessions = append(sessions, s)
	}
	return sessions
}

// BindAgent binds the agent identity and remote endpoint to a circuit. The
// binding happens exactly once, on the first datagram whose claimed session
// ID matches; it is never reassigned afterwards. The once-only decision is
// made under the session's own lock, so a concurrent second bind loses
// cleanly.
func (cm *CircuitManager) BindAgent(code uint32, agentID uuid.UUID, remoteIP string) bool {
	cm.mutex.RLock()
	session, exists := cm.circuits[code]
	cm.mutex.RUnlock()

	if !exists || !session.Bind(agentID, remoteIP) {
		return false
	}
	log.Printf("🔗 [CIRCUIT] Bound agent %s to circuit %d (endpoint: %s)", agentID, code, remoteIP)
	return true
}

// SetLanguage updates the session's viewer language preference.
func (cm *CircuitManager) SetLanguage(code uint32, language string, isPublic bool) error {
	cm.mutex.RLock()
	session, exists := cm.circuits[code]
	cm.mutex.RUnlock()

	if !exists {
		return ErrCircuitNotFound
	}
	session.SetLanguage(language, isPublic)
	return nil
}

// randomCircuitCode draws an unguessable 32-bit circuit code.
func randomCircuitCode() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}
