package functions

import (
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

func oneArgSig(param, ret axtypes.Type) Signature {
	return Signature{Params: []Param{{Type: param}}, Return: ret, Linkage: External, Symbol: "ax_test"}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(Group{Name: "sqrt", Signatures: []Signature{oneArgSig(axtypes.TF32, axtypes.TF32)}})

	g, ok := r.Lookup("sqrt")
	if !ok {
		t.Fatal("expected sqrt to be registered")
	}
	if len(g.Signatures) != 1 {
		t.Errorf("len(Signatures) = %d, want 1", len(g.Signatures))
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Error("expected an unregistered name to miss")
	}
}

func TestRegistryRegisterPanicsOnDuplicateName(t *testing.T) {
	r := NewRegistry()
	r.Register(Group{Name: "sqrt", Signatures: []Signature{oneArgSig(axtypes.TF32, axtypes.TF32)}})
	defer func() {
		if recover() == nil {
			t.Fatal("expected Register to panic on a duplicate group name")
		}
	}()
	r.Register(Group{Name: "sqrt", Signatures: []Signature{oneArgSig(axtypes.TF64, axtypes.TF64)}})
}

func TestRegistryRegisterPanicsOnEmptySignatures(t *testing.T) {
	r := NewRegistry()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Register to panic on an empty signature list")
		}
	}()
	r.Register(Group{Name: "empty"})
}

func TestSignatureArity(t *testing.T) {
	sig := Signature{Params: []Param{{Type: axtypes.TF32}, {Type: axtypes.TF32}}}
	if sig.Arity() != 2 {
		t.Errorf("Arity() = %d, want 2", sig.Arity())
	}
}
