package axtypes

import "testing"

func TestCommonElementTypePicksHighestPrecedence(t *testing.T) {
	got, err := CommonElementType([]Type{TI16, TF32, TI64})
	if err != nil {
		t.Fatalf("CommonElementType returned error: %v", err)
	}
	if !got.Equal(TF32) {
		t.Errorf("got=%s, want f32", got)
	}
}

func TestCommonElementTypeRejectsEmpty(t *testing.T) {
	if _, err := CommonElementType(nil); err == nil {
		t.Fatal("expected an error for an empty element list")
	}
}

func TestCommonElementTypeRejectsNonScalar(t *testing.T) {
	if _, err := CommonElementType([]Type{TI32, TVec3F}); err == nil {
		t.Fatal("expected an error for a non-scalar element")
	}
}

func TestValidateIndexBounds(t *testing.T) {
	if err := ValidateIndex(TVec3F, 2); err != nil {
		t.Errorf("index 2 into a len-3 array should be valid: %v", err)
	}
	if err := ValidateIndex(TVec3F, 3); err == nil {
		t.Error("index 3 into a len-3 array should be out of bounds")
	}
	if err := ValidateIndex(TVec3F, -1); err == nil {
		t.Error("negative index should be out of bounds")
	}
	if err := ValidateIndex(TF32, 0); err == nil {
		t.Error("indexing a scalar type should be an error")
	}
}
