package symtable

import "testing"

func TestGroupRegistryReferenceIsIdempotent(t *testing.T) {
	g := NewGroupRegistry()
	i1, err := g.Reference("visible")
	if err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	i2, err := g.Reference("visible")
	if err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	if i1 != i2 {
		t.Errorf("repeated Reference gave different indices: %d vs %d", i1, i2)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}

func TestGroupRegistryIndicesAreRegistrationOrder(t *testing.T) {
	g := NewGroupRegistry()
	iB, _ := g.Reference("b")
	iA, _ := g.Reference("a")
	if iB != 0 || iA != 1 {
		t.Errorf("got iB=%d iA=%d, want 0/1", iB, iA)
	}
	if names := g.Names(); len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names() = %v, want [b a]", names)
	}
}

func TestGroupRegistryFrozenRejectsNewNames(t *testing.T) {
	g := NewGroupRegistry()
	g.Reference("a")
	g.Freeze()
	if _, err := g.Reference("b"); err == nil {
		t.Fatal("expected Reference of a new name to fail once frozen")
	}
	if _, err := g.Reference("a"); err != nil {
		t.Errorf("re-referencing an already-known name should still work once frozen: %v", err)
	}
}
