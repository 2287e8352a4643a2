package symtable

import (
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

func TestAttributeRegistryMergesAccessOnRepeatedReference(t *testing.T) {
	r := NewAttributeRegistry()
	if err := r.Reference("density", axtypes.TF32, AccessRead); err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	if err := r.Reference("density", axtypes.TF32, AccessWrite); err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	entry, ok := r.Lookup("density")
	if !ok {
		t.Fatal("density was not registered")
	}
	if entry.Access != AccessRead|AccessWrite {
		t.Errorf("Access = %s, want read-write", entry.Access)
	}
}

func TestAttributeRegistryRejectsTypeConflict(t *testing.T) {
	r := NewAttributeRegistry()
	if err := r.Reference("x", axtypes.TF32, AccessRead); err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	if err := r.Reference("x", axtypes.TI32, AccessRead); err == nil {
		t.Fatal("expected a type conflict error")
	}
}

func TestAttributeRegistryIndexIsRegistrationOrder(t *testing.T) {
	r := NewAttributeRegistry()
	r.Reference("b", axtypes.TF32, AccessRead)
	r.Reference("a", axtypes.TI32, AccessRead)
	entries := r.Entries()
	if len(entries) != 2 || entries[0].Name != "b" || entries[0].Index != 0 {
		t.Errorf("entries[0] = %+v, want Name=b Index=0", entries[0])
	}
	if entries[1].Name != "a" || entries[1].Index != 1 {
		t.Errorf("entries[1] = %+v, want Name=a Index=1", entries[1])
	}
}

func TestAttributeRegistryFreezeRejectsFurtherReferences(t *testing.T) {
	r := NewAttributeRegistry()
	r.Reference("x", axtypes.TF32, AccessRead)
	r.Freeze()
	if !r.Frozen() {
		t.Fatal("Frozen() should report true after Freeze")
	}
	if err := r.Reference("y", axtypes.TF32, AccessRead); err == nil {
		t.Fatal("expected Reference to fail on a frozen registry")
	}
}

func TestAccessFlagsString(t *testing.T) {
	cases := []struct {
		f    AccessFlags
		want string
	}{
		{AccessRead, "read"},
		{AccessWrite, "write"},
		{AccessRead | AccessWrite, "read-write"},
	}
	for _, c := range cases {
		if got := c.f.String(); got != c.want {
			t.Errorf("%v.String() = %q, want %q", c.f, got, c.want)
		}
	}
}
