package functions

import (
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// buildAbsRegistry mirrors the real catalogue's pattern of one overload per
// scalar type, the shape overload resolution spends most of its time on.
func buildAbsRegistry() *Registry {
	r := NewRegistry()
	r.Register(Group{Name: "abs", Signatures: []Signature{
		oneArgSig(axtypes.TI32, axtypes.TI32),
		oneArgSig(axtypes.TI64, axtypes.TI64),
		oneArgSig(axtypes.TF32, axtypes.TF32),
		oneArgSig(axtypes.TF64, axtypes.TF64),
	}})
	return r
}

func TestSelectExactMatchHasZeroCost(t *testing.T) {
	r := buildAbsRegistry()
	sig, err := Select(r, "abs", []axtypes.Type{axtypes.TF32})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if !sig.Return.Equal(axtypes.TF32) {
		t.Errorf("Return = %s, want f32", sig.Return)
	}
}

// OVERLOAD-DET: an i16 argument should resolve to an i32 overload (cost 1,
// IntSignExtend) over an f64 one (cost 2, IntToFP) — the cheaper
// conversion family wins regardless of declaration order.
func TestSelectPrefersCheapestConversionFamily(t *testing.T) {
	r := NewRegistry()
	r.Register(Group{Name: "widen", Signatures: []Signature{
		oneArgSig(axtypes.TF64, axtypes.TF64),
		oneArgSig(axtypes.TI32, axtypes.TI32),
	}})
	sig, err := Select(r, "widen", []axtypes.Type{axtypes.TI16})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if !sig.Return.Equal(axtypes.TI32) {
		t.Errorf("Return = %s, want i32 (cheapest conversion family from i16)", sig.Return)
	}
}

// Two equally-ranked widening targets (i16 -> i32 and i16 -> i64 are both
// IntSignExtend, cost 1) tie exactly and must be reported ambiguous rather
// than silently picked by declaration order.
func TestSelectTiedConversionFamilyIsAmbiguous(t *testing.T) {
	r := buildAbsRegistry()
	_, err := Select(r, "abs", []axtypes.Type{axtypes.TI16})
	if _, ok := err.(*AmbiguousOverloadError); !ok {
		t.Fatalf("expected *AmbiguousOverloadError, got %T: %v", err, err)
	}
}

func TestSelectUnknownNameIsFunctionLookupError(t *testing.T) {
	r := buildAbsRegistry()
	_, err := Select(r, "nope", []axtypes.Type{axtypes.TF32})
	if _, ok := err.(*FunctionLookupError); !ok {
		t.Fatalf("expected *FunctionLookupError, got %T: %v", err, err)
	}
}

func TestSelectWrongArityIsFunctionLookupError(t *testing.T) {
	r := buildAbsRegistry()
	_, err := Select(r, "abs", []axtypes.Type{axtypes.TF32, axtypes.TF32})
	if _, ok := err.(*FunctionLookupError); !ok {
		t.Fatalf("expected *FunctionLookupError, got %T: %v", err, err)
	}
}

func TestSelectNoValidConversionIsFunctionLookupError(t *testing.T) {
	r := NewRegistry()
	r.Register(Group{Name: "onlyint", Signatures: []Signature{oneArgSig(axtypes.TI32, axtypes.TI32)}})
	// string has no implicit conversion to any scalar.
	_, err := Select(r, "onlyint", []axtypes.Type{axtypes.TString})
	if _, ok := err.(*FunctionLookupError); !ok {
		t.Fatalf("expected *FunctionLookupError, got %T: %v", err, err)
	}
}

func TestSelectAmbiguousTieIsAmbiguousOverloadError(t *testing.T) {
	r := NewRegistry()
	// Two signatures both taking f32 (exact match, cost 0) and differing
	// only in Return: an identical cost vector and sum for both
	// candidates, which step 5 flags as ambiguous regardless of
	// declaration order.
	r.Register(Group{Name: "amb", Signatures: []Signature{
		oneArgSig(axtypes.TF32, axtypes.TF32),
		oneArgSig(axtypes.TF32, axtypes.TF64),
	}})
	_, err := Select(r, "amb", []axtypes.Type{axtypes.TF32})
	if _, ok := err.(*AmbiguousOverloadError); !ok {
		t.Fatalf("expected *AmbiguousOverloadError, got %T: %v", err, err)
	}
}

// costVector/conversionCost are exercised indirectly above; this locks down
// the one surprising rule directly: a float->int implicit conversion is
// offered to overload resolution, but at the most expensive narrowing rank
// (cost 3, spec.md §4.3 step 2), same as any other narrowing conversion.
func TestConversionCostRanksFloatToIntAsNarrowing(t *testing.T) {
	if c := conversionCost(axtypes.TF32, axtypes.TI32); c != 3 {
		t.Errorf("conversionCost(f32, i32) = %d, want 3", c)
	}
}

func TestConversionCostRejectsMismatchedArrayLength(t *testing.T) {
	if c := conversionCost(axtypes.TVec3F, axtypes.TVec4F); c != infiniteCost {
		t.Errorf("conversionCost(vec3f, vec4f) = %d, want infiniteCost", c)
	}
}
