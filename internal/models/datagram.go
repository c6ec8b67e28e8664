package models

import "github.com/google/uuid"

// Datagram is one inbound unit of circuit traffic, already decoded from the
// wire by the transport. The transport resolves the packet to a circuit code;
// the agent and session IDs are the sender's claim and must be verified
// against the circuit before any handler runs.
type Datagram struct {
	Type        string
	CircuitCode uint32
	AgentID     uuid.UUID // claimed
	SessionID   uuid.UUID // claimed
	Sequence    uint32
	Payload     []byte
}
