package axtypes

import "testing"

func TestClassifyConversionTable(t *testing.T) {
	cases := []struct {
		from, to Type
		want     ConversionKind
	}{
		{TI32, TI32, NoConversion},
		{TI32, TI64, IntSignExtend},
		{TI64, TI32, IntTruncate},
		{TF32, TF64, FPExtend},
		{TF64, TF32, FPTruncate},
		{TF32, TI32, FPToInt},
		{TI32, TF32, IntToFP},
		{TBool, TF32, BoolToFP},
		{TBool, TI32, BoolToInt},
		{TI32, TBool, IntToBool},
		{TF32, TBool, FPToBool},
	}
	for _, c := range cases {
		got := ClassifyConversion(c.from, c.to)
		if got != c.want {
			t.Errorf("ClassifyConversion(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsNarrowing(t *testing.T) {
	narrowing := []ConversionKind{FPTruncate, IntTruncate, FPToInt, FPToBool}
	for _, k := range narrowing {
		if !IsNarrowing(k) {
			t.Errorf("IsNarrowing(%v) = false, want true", k)
		}
	}
	widening := []ConversionKind{NoConversion, FPExtend, IntSignExtend, IntToFP, BoolToFP, BoolToInt, IntToBool}
	for _, k := range widening {
		if IsNarrowing(k) {
			t.Errorf("IsNarrowing(%v) = true, want false", k)
		}
	}
}

// RequiresExplicitCast singles out FPToInt from every other conversion
// family, including narrowing ones like f64 -> f32 or i64 -> i32.
func TestRequiresExplicitCastOnlyForFPToInt(t *testing.T) {
	if !RequiresExplicitCast(FPToInt) {
		t.Error("RequiresExplicitCast(FPToInt) = false, want true")
	}
	for _, k := range []ConversionKind{NoConversion, FPExtend, FPTruncate, IntSignExtend, IntTruncate, IntToFP, BoolToFP, BoolToInt, IntToBool, FPToBool} {
		if RequiresExplicitCast(k) {
			t.Errorf("RequiresExplicitCast(%v) = true, want false", k)
		}
	}
}
