package services

import (
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CapabilityGrant ties an opaque URL token to one capability of one session.
type CapabilityGrant struct {
	CircuitCode uint32
	Name        string
	Token       string
}

// CapabilityRegistry maps the random tokens embedded in capability URLs back
// to the session and capability name they were granted for. Grants are built
// at seed time from an explicit name list - there is no introspection anywhere
// in dispatch.
type CapabilityRegistry struct {
	byToken   map[string]*CapabilityGrant
	bySession map[uint32]map[string]string // circuit code -> cap name -> token
	mutex     sync.RWMutex
}

// NewCapabilityRegistry creates an empty registry.
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{
		byToken:   make(map[string]*CapabilityGrant),
		bySession: make(map[uint32]map[string]string),
	}
}

// Grant issues (or re-issues) a capability token for a session. Granting the
// same name twice returns the existing token so a re-requested seed stays
// stable.
func (r *CapabilityRegistry) Grant(circuitCode uint32, name string) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tokens, exists := r.bySession[circuitCode]; exists {
		if token, granted := tokens[name]; granted {
			return token
		}
	} else {
		r.bySession[circuitCode] = make(map[string]string)
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	r.byToken[token] = &CapabilityGrant{
		CircuitCode: circuitCode,
		Name:        name,
		Token:       token,
	}
	r.bySession[circuitCode][name] = token
	return token
}

// Resolve looks a grant up by URL token.
func (r *CapabilityRegistry) Resolve(token string) (*CapabilityGrant, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	grant, exists := r.byToken[token]
	return grant, exists
}

// Revoke drops every grant issued to a session, typically at teardown.
func (r *CapabilityRegistry) Revoke(circuitCode uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tokens, exists := r.bySession[circuitCode]
	if !exists {
		return
	}
	for _, token := range tokens {
		delete(r.byToken, token)
	}
	delete(r.bySession, circuitCode)
	log.Printf("🔒 [CAPS] Revoked %d capabilities for circuit %d", len(tokens), circuitCode)
}

// Count returns the number of live grants.
func (r *CapabilityRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.byToken)
}
