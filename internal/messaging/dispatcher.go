package messaging

import (
	"context"
	"log"
	"sync"

	"gridverse/internal/models"
	"gridverse/internal/services"

	"golang.org/x/time/rate"
)

// Per-circuit ingest budget. Viewers send a steady trickle of updates; the
// bucket only bites on floods.
const (
	circuitRateLimit = 200 // datagrams per second
	circuitRateBurst = 400
)

// HandlerFunc processes one authenticated datagram. By the time a handler
// runs, the identity guard has already passed; handlers never see forged
// traffic.
type HandlerFunc func(ctx context.Context, session *models.CircuitSession, msg *models.Datagram)

// Dispatcher routes inbound datagrams to handlers. The handler table is built
// once at startup by explicit registration and dispatch is a map lookup.
// Every message passes the identity guard first; failures are dropped
// silently and show up only in the drop counters.
type Dispatcher struct {
	circuits *services.CircuitManager
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	limiters sync.Map // circuit code -> *rate.Limiter
}

// NewDispatcher creates a dispatcher over the session table.
func NewDispatcher(circuits *services.CircuitManager) *Dispatcher {
	return &Dispatcher{
		circuits: circuits,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a message type to its handler. Registration happens at
// startup, before any traffic flows.
func (d *Dispatcher) Register(msgType string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[msgType]; exists {
		log.Printf("⚠️ [DISPATCH] Handler for %s replaced", msgType)
	}
	d.handlers[msgType] = handler
}

// Dispatch processes one inbound datagram. remoteIP is the packet's source
// address as seen by the transport; it binds the agent endpoint on the first
// valid datagram of a fresh circuit.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *models.Datagram, remoteIP string) {
	session, exists := d.circuits.Get(msg.CircuitCode)
	if !exists {
		datagramsDropped.WithLabelValues(dropNoCircuit).Inc()
		return
	}

	if !d.limiter(msg.CircuitCode).Allow() {
		datagramsDropped.WithLabelValues(dropRateLimited).Inc()
		return
	}

	// A fresh circuit has no agent bound yet. The first datagram whose
	// claimed session ID matches the one issued at admission performs the
	// binding; everything else on an unbound circuit is dropped.
	if !session.Bound() {
		if msg.SessionID != session.SessionID ||
			!d.circuits.BindAgent(msg.CircuitCode, msg.AgentID, remoteIP) {
			datagramsDropped.WithLabelValues(dropIdentity).Inc()
			return
		}
	}

	if !VerifyIdentity(session, msg) {
		datagramsDropped.WithLabelValues(dropIdentity).Inc()
		return
	}

	d.mu.RLock()
	handler, handled := d.handlers[msg.Type]
	d.mu.RUnlock()

	if !handled {
		datagramsDropped.WithLabelValues(dropUnhandled).Inc()
		return
	}

	datagramsHandled.WithLabelValues(msg.Type).Inc()
	handler(ctx, session, msg)
}

// Forget drops per-circuit dispatch state after teardown.
func (d *Dispatcher) Forget(circuitCode uint32) {
	d.limiters.Delete(circuitCode)
}

func (d *Dispatcher) limiter(circuitCode uint32) *rate.Limiter {
	if l, ok := d.limiters.Load(circuitCode); ok {
		return l.(*rate.Limiter)
	}
	l, _ := d.limiters.LoadOrStore(circuitCode, rate.NewLimiter(rate.Limit(circuitRateLimit), circuitRateBurst))
	return l.(*rate.Limiter)
}
