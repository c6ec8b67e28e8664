package messaging

import (
	"gridverse/internal/models"
)

// VerifyIdentity is the single identity check applied to every inbound
// datagram before its handler runs: the message's claimed agent and session
// IDs must both equal the circuit's bound values. A mismatch produces no
// response, no side effect and no error - silence denies an attacker probing
// identities any oracle, so callers must not "helpfully" surface the failure.
func VerifyIdentity(session *models.CircuitSession, msg *models.Datagram) bool {
	if !session.Bound() {
		return false
	}
	return msg.AgentID == session.AgentID() && msg.SessionID == session.SessionID
}
