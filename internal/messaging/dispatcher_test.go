package messaging

import (
	"context"
	"testing"

	"gridverse/internal/models"
	"gridverse/internal/services"

	"github.com/google/uuid"
)

type dispatchEnv struct {
	circuits   *services.CircuitManager
	dispatcher *Dispatcher
	session    *models.CircuitSession
	handled    []*models.Datagram
}

func setupDispatch(t *testing.T, msgType string) *dispatchEnv {
	t.Helper()

	env := &dispatchEnv{circuits: services.NewCircuitManager()}
	session, err := env.circuits.Establish(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Failed to establish circuit: %v", err)
	}
	env.session = session

	env.dispatcher = NewDispatcher(env.circuits)
	env.dispatcher.Register(msgType, func(ctx context.Context, s *models.CircuitSession, msg *models.Datagram) {
		env.handled = append(env.handled, msg)
	})
	return env
}

func (e *dispatchEnv) datagram(msgType string, agentID, sessionID uuid.UUID, seq uint32) *models.Datagram {
	return &models.Datagram{
		Type:        msgType,
		CircuitCode: e.session.CircuitCode,
		AgentID:     agentID,
		SessionID:   sessionID,
		Sequence:    seq,
	}
}

func TestDispatcher_BindsAgentOnFirstValidDatagram(t *testing.T) {
	env := setupDispatch(t, MsgAgentAnimation)
	agentID := uuid.New()

	msg := env.datagram(MsgAgentAnimation, agentID, env.session.SessionID, 1)
	env.dispatcher.Dispatch(context.Background(), msg, "203.0.113.7")

	if len(env.handled) != 1 {
		t.Fatalf("Expected 1 handled datagram, got %d", len(env.handled))
	}
	if !env.session.Bound() {
		t.Fatal("First valid datagram should bind the agent")
	}
	if env.session.AgentID() != agentID || env.session.RemoteIP() != "203.0.113.7" {
		t.Errorf("Wrong binding: agent=%s ip=%s", env.session.AgentID(), env.session.RemoteIP())
	}
}

func TestDispatcher_WrongSessionNeverBinds(t *testing.T) {
	env := setupDispatch(t, MsgAgentAnimation)

	// Claimed session ID does not match the one issued at admission.
	msg := env.datagram(MsgAgentAnimation, uuid.New(), uuid.New(), 1)
	env.dispatcher.Dispatch(context.Background(), msg, "198.51.100.9")

	if len(env.handled) != 0 {
		t.Error("Datagram with a wrong session ID must not reach a handler")
	}
	if env.session.Bound() {
		t.Error("Wrong session ID must not bind an agent")
	}
}

func TestDispatcher_IdentityMismatchDroppedSilently(t *testing.T) {
	env := setupDispatch(t, MsgAgentAnimation)
	agentID := uuid.New()

	// Bind the legitimate agent first.
	env.dispatcher.Dispatch(context.Background(),
		env.datagram(MsgAgentAnimation, agentID, env.session.SessionID, 1), "203.0.113.7")
	if len(env.handled) != 1 {
		t.Fatalf("Setup dispatch failed: %d handled", len(env.handled))
	}

	// Forged agent ID on the bound circuit.
	env.dispatcher.Dispatch(context.Background(),
		env.datagram(MsgAgentAnimation, uuid.New(), env.session.SessionID, 2), "203.0.113.7")
	// Forged session ID.
	env.dispatcher.Dispatch(context.Background(),
		env.datagram(MsgAgentAnimation, agentID, uuid.New(), 3), "203.0.113.7")

	if len(env.handled) != 1 {
		t.Errorf("Forged datagrams reached the handler: %d handled", len(env.handled))
	}
	if env.session.AgentID() != agentID {
		t.Error("Forged traffic must not rebind the circuit")
	}
}

func TestDispatcher_UnknownCircuitDropped(t *testing.T) {
	env := setupDispatch(t, MsgAgentAnimation)

	msg := &models.Datagram{
		Type:        MsgAgentAnimation,
		CircuitCode: env.session.CircuitCode + 1,
		AgentID:     uuid.New(),
		SessionID:   env.session.SessionID,
	}
	env.dispatcher.Dispatch(context.Background(), msg, "203.0.113.7")
	if len(env.handled) != 0 {
		t.Error("Datagram for an unknown circuit must be dropped")
	}
}

func TestDispatcher_UnregisteredTypeDropped(t *testing.T) {
	env := setupDispatch(t, MsgAgentAnimation)
	agentID := uuid.New()

	env.dispatcher.Dispatch(context.Background(),
		env.datagram("SomethingElse", agentID, env.session.SessionID, 1), "203.0.113.7")
	if len(env.handled) != 0 {
		t.Error("Unregistered message type must not be handled")
	}
	// The datagram was valid, so it still binds the circuit.
	if !env.session.Bound() {
		t.Error("Valid datagram of an unhandled type should still bind")
	}
}

func TestDispatcher_AgentUpdateSequencing(t *testing.T) {
	env := setupDispatch(t, MsgAgentAnimation)
	sequencer := services.NewUpdateSequencer()
	var applied []uint32
	env.dispatcher.Register(MsgAgentUpdate, NewAgentUpdateHandler(sequencer,
		func(s *models.CircuitSession, msg *models.Datagram) {
			applied = append(applied, msg.Sequence)
		}))

	agentID := uuid.New()
	send := func(seq uint32) {
		env.dispatcher.Dispatch(context.Background(),
			env.datagram(MsgAgentUpdate, agentID, env.session.SessionID, seq), "203.0.113.7")
	}

	send(10)
	send(11)
	send(11) // duplicate
	send(5)  // stale

	want := []uint32{10, 11}
	if len(applied) != len(want) {
		t.Fatalf("Expected %v applied, got %v", want, applied)
	}
	for i := range want {
		if applied[i] != want[i] {
			t.Errorf("Expected %v applied, got %v", want, applied)
		}
	}
}

func TestVerifyIdentity(t *testing.T) {
	agentID := uuid.New()
	sessionID := uuid.New()
	session := &models.CircuitSession{
		CircuitCode: 1,
		SessionID:   sessionID,
	}
	session.Bind(agentID, "203.0.113.7")

	ok := &models.Datagram{AgentID: agentID, SessionID: sessionID}
	if !VerifyIdentity(session, ok) {
		t.Error("Matching identity should verify")
	}
	if VerifyIdentity(session, &models.Datagram{AgentID: uuid.New(), SessionID: sessionID}) {
		t.Error("Wrong agent ID should not verify")
	}
	if VerifyIdentity(session, &models.Datagram{AgentID: agentID, SessionID: uuid.New()}) {
		t.Error("Wrong session ID should not verify")
	}

	unbound := &models.CircuitSession{CircuitCode: 2, SessionID: sessionID}
	if VerifyIdentity(unbound, ok) {
		t.Error("Unbound circuit should never verify")
	}
}
