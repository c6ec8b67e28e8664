package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CircuitSession is the authenticated binding between one agent, one region
// and one network endpoint. The circuit code and session ID are handed out by
// circuit admission and never change; the agent identity and remote endpoint
// bind on the first datagram that arrives over the circuit and are never
// reassigned afterwards.
//
// Session pointers escape the circuit manager and are read concurrently by
// the datagram dispatch goroutine and capability handlers, so the mutable
// fields live behind the session's own lock and are reachable only through
// accessors.
type CircuitSession struct {
	CircuitCode    uint32
	SessionID      uuid.UUID
	RegionID       uuid.UUID // region hosting the circuit
	OriginRegionID uuid.UUID // region the agent is arriving from
	CreatedAt      time.Time

	mu       sync.RWMutex
	agentID  uuid.UUID // zero until the first datagram binds it
	remoteIP string    // zero until the first datagram binds it

	// Viewer preferences, mutable through capabilities.
	language         string
	languageIsPublic bool
}

// Bound reports whether an agent identity has been bound to the circuit yet.
func (s *CircuitSession) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentID != uuid.Nil
}

// AgentID returns the bound agent identity, or uuid.Nil before binding.
func (s *CircuitSession) AgentID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentID
}

// RemoteIP returns the bound remote endpoint, or "" before binding.
func (s *CircuitSession) RemoteIP() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteIP
}

// Bind binds the agent identity and remote endpoint. The binding happens
// exactly once; a second call reports false and changes nothing.
func (s *CircuitSession) Bind(agentID uuid.UUID, remoteIP string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agentID != uuid.Nil {
		return false
	}
	s.agentID = agentID
	s.remoteIP = remoteIP
	return true
}

// Language returns the viewer's language preference and its public flag.
func (s *CircuitSession) Language() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language, s.languageIsPublic
}

// SetLanguage updates the viewer's language preference.
func (s *CircuitSession) SetLanguage(language string, isPublic bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
	s.languageIsPublic = isPublic
}
