package services

import "testing"

func TestCapabilityRegistry_GrantAndResolve(t *testing.T) {
	reg := NewCapabilityRegistry()

	token := reg.Grant(1001, "GetMesh")
	if token == "" {
		t.Fatal("Expected a non-empty token")
	}

	grant, exists := reg.Resolve(token)
	if !exists {
		t.Fatal("Granted token should resolve")
	}
	if grant.CircuitCode != 1001 || grant.Name != "GetMesh" {
		t.Errorf("Wrong grant: circuit=%d name=%s", grant.CircuitCode, grant.Name)
	}

	if _, exists := reg.Resolve("unknown-token"); exists {
		t.Error("Unknown token must not resolve")
	}
}

func TestCapabilityRegistry_GrantIsIdempotentPerName(t *testing.T) {
	reg := NewCapabilityRegistry()

	first := reg.Grant(1001, "Seed")
	second := reg.Grant(1001, "Seed")
	if first != second {
		t.Error("Re-granting the same capability should return the same token")
	}

	other := reg.Grant(1001, "GetMesh")
	if other == first {
		t.Error("Different capabilities must get different tokens")
	}

	// Same name on a different circuit is a separate grant.
	elsewhere := reg.Grant(2002, "Seed")
	if elsewhere == first {
		t.Error("Grants must be scoped per circuit")
	}
	if reg.Count() != 3 {
		t.Errorf("Expected 3 live grants, got %d", reg.Count())
	}
}

func TestCapabilityRegistry_Revoke(t *testing.T) {
	reg := NewCapabilityRegistry()
	t1 := reg.Grant(1001, "Seed")
	t2 := reg.Grant(1001, "GetMesh")
	keep := reg.Grant(2002, "Seed")

	reg.Revoke(1001)

	for _, token := range []string{t1, t2} {
		if _, exists := reg.Resolve(token); exists {
			t.Errorf("Token %s should be revoked", token)
		}
	}
	if _, exists := reg.Resolve(keep); !exists {
		t.Error("Revoke must not touch other circuits' grants")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 live grant after revoke, got %d", reg.Count())
	}

	// Revoking a circuit with no grants is a no-op.
	reg.Revoke(9999)
}
